package summary

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type CategoryTotalDTO struct {
	Category string `json:"category"`
	Spent    string `json:"spent"`
	Received string `json:"received"`
	Count    int    `json:"count"`
}

type MonthSummaryDTO struct {
	Month         string             `json:"month"`
	Categories    []CategoryTotalDTO `json:"categories"`
	TotalSpent    string             `json:"totalSpent"`
	TotalReceived string             `json:"totalReceived"`
	Count         int                `json:"count"`
}

// CsvRenderer renders a month summary to csv text.
type CsvRenderer interface {
	RenderSummary(summary MonthSummary) (string, error)
}

type Handler struct {
	service  Service
	renderer CsvRenderer
}

func NewHandler(service Service, renderer CsvRenderer) *Handler {
	return &Handler{service: service, renderer: renderer}
}

// GetSummary godoc
// @Summary Get the per-category totals of one month
// @Tags Summary
// @Produce json
// @Param month path string true "Year-month, e.g. 2025-04"
// @Param format query string false "json (default) or csv"
// @Success 200 {object} MonthSummaryDTO
// @Failure 500 {string} string "Internal Server Error"
// @Router /api/summary/{month} [get]
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	log.Debug("Getting month summary")
	vars := mux.Vars(r)
	month := vars["month"]

	summary, err := h.service.MonthSummary(r.Context(), month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		rendered, err := h.renderer.RenderSummary(summary)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(rendered)); err != nil {
			log.Errorf("failed to write csv response: %v", err)
		}
		return
	}

	dto := MonthSummaryDTO{
		Month:         summary.Month,
		Categories:    make([]CategoryTotalDTO, 0, len(summary.Categories)),
		TotalSpent:    summary.TotalSpent.String(),
		TotalReceived: summary.TotalReceived.String(),
		Count:         summary.Count,
	}
	for _, total := range summary.Categories {
		dto.Categories = append(dto.Categories, CategoryTotalDTO{
			Category: total.Category,
			Spent:    total.Spent.String(),
			Received: total.Received.String(),
			Count:    total.Count,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
