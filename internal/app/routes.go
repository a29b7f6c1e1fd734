package app

import (
	"github.com/gorilla/mux"
	"github.com/noteledger/noteledger/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Expenses
	r.HandleFunc("/api/expense", deps.ExpenseHandler.ListExpenses).Queries("month", "{month}").Methods("GET")
	r.HandleFunc("/api/expense", deps.ExpenseHandler.CreateExpense).Methods("POST")
	r.HandleFunc("/api/expense/{index}", deps.ExpenseHandler.UpdateExpense).Queries("month", "{month}").Methods("PUT")
	r.HandleFunc("/api/expense/{index}", deps.ExpenseHandler.DeleteExpense).Queries("month", "{month}").Methods("DELETE")

	// Recurring schedules
	r.HandleFunc("/api/recurring", deps.RecurringHandler.ListSchedules).Methods("GET")
	r.HandleFunc("/api/recurring/process", deps.RecurringHandler.Process).Methods("POST")

	// Summaries
	r.HandleFunc("/api/summary/{month}", deps.SummaryHandler.GetSummary).Methods("GET")
}
