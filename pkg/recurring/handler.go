package recurring

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/noteledger/noteledger/pkg/expense"
	log "github.com/sirupsen/logrus"
)

type ScheduleDTO struct {
	Amount        string `json:"amount"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Anchor        string `json:"anchor"`
	Shop          string `json:"shop,omitempty"`
	Attachment    string `json:"attachment,omitempty"`
	Period        string `json:"period"`
	LastProcessed string `json:"lastProcessed,omitempty"`
	NextDue       string `json:"nextDue"`
	Enabled       bool   `json:"enabled"`
	SourceNoteId  string `json:"sourceNoteId,omitempty"`
}

type ResultDTO struct {
	Processed int                  `json:"processed"`
	Created   int                  `json:"created"`
	Errors    []string             `json:"errors"`
	Records   []expense.ExpenseDTO `json:"records"`
}

// Processor triggers one processing pass.
type Processor interface {
	ProcessAll(ctx context.Context) Result
}

type Handler struct {
	book      *Book
	processor Processor
	expenses  *expense.Codec
}

func NewHandler(book *Book, processor Processor, expenses *expense.Codec) *Handler {
	return &Handler{book: book, processor: processor, expenses: expenses}
}

// ListSchedules godoc
// @Summary List recurring schedules
// @Description Get all recurring schedules from the schedule note
// @Tags Recurring
// @Produce json
// @Success 200 {array} ScheduleDTO
// @Failure 500 {string} string "Internal Server Error"
// @Router /api/recurring [get]
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing recurring schedules")
	w.Header().Set("Content-Type", "application/json")
	schedules, err := h.book.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]ScheduleDTO, 0, len(schedules))
	for _, s := range schedules {
		dtos = append(dtos, h.toDTO(s))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// Process godoc
// @Summary Run a processing pass
// @Description Evaluate every schedule, generate due records (with backfill) and commit schedule state
// @Tags Recurring
// @Produce json
// @Success 200 {object} ResultDTO
// @Router /api/recurring/process [post]
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	log.Debug("Running recurring processing pass")
	w.Header().Set("Content-Type", "application/json")
	result := h.processor.ProcessAll(r.Context())

	dto := ResultDTO{
		Processed: result.Processed,
		Created:   result.Created,
		Errors:    result.Errors,
		Records:   make([]expense.ExpenseDTO, 0, len(result.Records)),
	}
	if dto.Errors == nil {
		dto.Errors = []string{}
	}
	for _, record := range result.Records {
		date := ""
		if record.Time != nil {
			date = h.expenses.Normalizer().Format(*record.Time)
		}
		dto.Records = append(dto.Records, expense.ExpenseDTO{
			Amount:      record.Amount.String(),
			Description: record.Description,
			Category:    record.Category.String(),
			Date:        date,
			Shop:        record.Shop,
			Attachment:  record.Attachment,
		})
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) toDTO(s Schedule) ScheduleDTO {
	normalizer := h.expenses.Normalizer()
	anchor := ""
	if s.Template.Time != nil {
		anchor = normalizer.Format(*s.Template.Time)
	}
	lastProcessed := ""
	if s.LastProcessed != nil {
		lastProcessed = normalizer.Format(*s.LastProcessed)
	}
	return ScheduleDTO{
		Amount:        s.Template.Amount.String(),
		Description:   s.Template.Description,
		Category:      s.Template.Category.String(),
		Anchor:        anchor,
		Shop:          s.Template.Shop,
		Attachment:    s.Template.Attachment,
		Period:        s.Period.String(),
		LastProcessed: lastProcessed,
		NextDue:       normalizer.Format(s.NextDue),
		Enabled:       s.Enabled,
		SourceNoteId:  s.SourceNoteID,
	}
}
