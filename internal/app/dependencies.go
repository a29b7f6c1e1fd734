package app

import (
	"database/sql"
	"fmt"

	"github.com/noteledger/noteledger/internal/config"
	"github.com/noteledger/noteledger/internal/event_bus"
	"github.com/noteledger/noteledger/internal/utils"
	"github.com/noteledger/noteledger/pkg/expense"
	"github.com/noteledger/noteledger/pkg/notes"
	"github.com/noteledger/noteledger/pkg/recurring"
	"github.com/noteledger/noteledger/pkg/summary"
	"github.com/noteledger/noteledger/pkg/timeparse"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus

	NoteStore     notes.Store
	MonthResolver notes.MonthResolver

	Normalizer     *timeparse.Normalizer
	ExpenseCodec   *expense.Codec
	ExpenseService *expense.ServiceImpl
	ExpenseHandler *expense.Handler

	ScheduleCodec    *recurring.Codec
	ScheduleBook     *recurring.Book
	Coordinator      *recurring.Coordinator
	RecurringHandler *recurring.Handler

	SummaryService *summary.ServiceImpl
	CsvRenderer    *summary.CsvSummaryRendererImpl
	SummaryHandler *summary.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
// db is only consulted for the postgres storage backend.
func BuildDependencies(db *sql.DB, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	policy, err := timeparse.ParsePolicy(cfg.Time.Policy)
	if err != nil {
		return nil, fmt.Errorf("invalid time policy: %w", err)
	}

	deps.Clock = &utils.SystemClock{}
	deps.EventBus = event_bus.NewEventBus()

	switch cfg.Storage.Backend {
	case "postgres":
		deps.NoteStore = notes.NewPostgresStore(db)
	case "vault", "":
		deps.NoteStore = notes.NewVaultStore(cfg.Vault.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	deps.MonthResolver = notes.NewFolderMonthResolver(deps.NoteStore, cfg.Vault.ExpenseFolder)

	deps.Normalizer = timeparse.NewNormalizer(policy, deps.Clock)
	deps.ExpenseCodec = expense.NewCodec(deps.Normalizer)

	deps.ScheduleCodec = recurring.NewCodec(deps.ExpenseCodec)
	deps.ScheduleBook = recurring.NewBook(deps.NoteStore, deps.ScheduleCodec, cfg.Vault.ScheduleNote)

	deps.ExpenseService = expense.NewService(deps.NoteStore, deps.MonthResolver, deps.ExpenseCodec,
		deps.ScheduleBook, deps.EventBus, deps.Clock)
	deps.ExpenseHandler = expense.NewHandler(deps.ExpenseService, deps.ExpenseCodec)

	deps.Coordinator = recurring.NewCoordinator(deps.ScheduleBook, deps.NoteStore, deps.MonthResolver,
		deps.ExpenseCodec, deps.EventBus, deps.Clock, cfg.Recurring.BackfillCap, cfg.Recurring.CommitRetries)
	deps.RecurringHandler = recurring.NewHandler(deps.ScheduleBook, deps.Coordinator, deps.ExpenseCodec)

	deps.SummaryService = summary.NewService(deps.ExpenseService, deps.EventBus)
	deps.CsvRenderer = summary.NewCsvSummaryRenderer()
	deps.SummaryHandler = summary.NewHandler(deps.SummaryService, deps.CsvRenderer)

	return deps, nil
}
