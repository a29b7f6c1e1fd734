package expense

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type ExpenseDTO struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date,omitempty"`
	Shop        string `json:"shop,omitempty"`
	Attachment  string `json:"attachment,omitempty"`
	Recurring   string `json:"recurring,omitempty"`
}

type Handler struct {
	service Service
	codec   *Codec
}

func NewHandler(service Service, codec *Codec) *Handler {
	return &Handler{service: service, codec: codec}
}

// ListExpenses godoc
// @Summary List expenses of one month
// @Description Get all expense records from the month's note table
// @Tags Expense
// @Produce json
// @Param month query string true "Year-month, e.g. 2025-04"
// @Success 200 {array} ExpenseDTO
// @Failure 500 {string} string "Internal Server Error"
// @Router /api/expense [get]
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing expenses")
	w.Header().Set("Content-Type", "application/json")
	month := r.URL.Query().Get("month")
	if month == "" {
		http.Error(w, "month query parameter is required", http.StatusBadRequest)
		return
	}

	expenses, err := h.service.List(r.Context(), month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]ExpenseDTO, 0, len(expenses))
	for _, e := range expenses {
		dtos = append(dtos, h.toDTO(e))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// CreateExpense godoc
// @Summary Record a new expense
// @Description Append an expense record to its month note; a recurring tag also registers a schedule
// @Tags Expense
// @Accept json
// @Produce json
// @Param expense body ExpenseDTO true "Expense"
// @Success 201 {object} ExpenseDTO
// @Failure 400 {string} string "Bad Request"
// @Router /api/expense [post]
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new expense")
	w.Header().Set("Content-Type", "application/json")
	var dto ExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	e, err := h.fromDTO(dto)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.service.Add(r.Context(), e)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(h.toDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// UpdateExpense godoc
// @Summary Update an expense by position
// @Description Replace the expense at the given position within the month's table
// @Tags Expense
// @Accept json
// @Produce json
// @Param index path int true "Row position"
// @Param month query string true "Year-month"
// @Param expense body ExpenseDTO true "Expense"
// @Success 200 {object} ExpenseDTO
// @Failure 400 {string} string "Bad Request"
// @Router /api/expense/{index} [put]
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	log.Debug("Updating expense")
	w.Header().Set("Content-Type", "application/json")
	index, month, ok := h.position(w, r)
	if !ok {
		return
	}

	var dto ExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	e, err := h.fromDTO(dto)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.service.Update(r.Context(), month, index, e)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(h.toDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// DeleteExpense godoc
// @Summary Delete an expense by position
// @Tags Expense
// @Param index path int true "Row position"
// @Param month query string true "Year-month"
// @Success 204 {string} string "No Content"
// @Failure 400 {string} string "Bad Request"
// @Router /api/expense/{index} [delete]
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	log.Debug("Deleting expense")
	index, month, ok := h.position(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), month, index); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) position(w http.ResponseWriter, r *http.Request) (int, string, bool) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		http.Error(w, "invalid position", http.StatusBadRequest)
		return 0, "", false
	}
	month := r.URL.Query().Get("month")
	if month == "" {
		http.Error(w, "month query parameter is required", http.StatusBadRequest)
		return 0, "", false
	}
	return index, month, true
}

func (h *Handler) toDTO(e Expense) ExpenseDTO {
	date := ""
	if e.Time != nil {
		date = h.codec.Normalizer().Format(*e.Time)
	}
	return ExpenseDTO{
		Amount:      e.Amount.String(),
		Description: e.Description,
		Category:    e.Category.String(),
		Date:        date,
		Shop:        e.Shop,
		Attachment:  e.Attachment,
		Recurring:   e.RecurringTag,
	}
}

func (h *Handler) fromDTO(dto ExpenseDTO) (Expense, error) {
	amount, err := decimal.NewFromString(dto.Amount)
	if err != nil {
		return Expense{}, err
	}
	category, err := NewCategory(dto.Category)
	if err != nil {
		return Expense{}, err
	}

	e := Expense{
		Amount:       amount,
		Description:  dto.Description,
		Category:     category,
		Shop:         dto.Shop,
		Attachment:   dto.Attachment,
		RecurringTag: dto.Recurring,
	}
	if dto.Date != "" {
		outcome := h.codec.Normalizer().Parse(dto.Date)
		e.Time = &outcome.Time
	}
	return e, nil
}
