package expense

import (
	"context"
	"errors"
	"fmt"

	"github.com/noteledger/noteledger/internal/event_bus"
	"github.com/noteledger/noteledger/internal/utils"
	"github.com/noteledger/noteledger/pkg/notes"
	log "github.com/sirupsen/logrus"
)

// Registrar converts a freshly entered expense carrying a recurring tag into
// a schedule. Implemented by the recurring package; kept as an interface here
// so the dependency points one way.
type Registrar interface {
	Register(ctx context.Context, e Expense, source notes.Ref) error
}

type Service interface {
	List(ctx context.Context, month string) ([]Expense, error)
	Add(ctx context.Context, e Expense) (Expense, error)
	Update(ctx context.Context, month string, index int, e Expense) (Expense, error)
	Delete(ctx context.Context, month string, index int) error
}

type ServiceImpl struct {
	store     notes.Store
	resolver  notes.MonthResolver
	codec     *Codec
	registrar Registrar
	bus       *event_bus.EventBus
	clock     utils.Clock
}

func NewService(store notes.Store, resolver notes.MonthResolver, codec *Codec,
	registrar Registrar, bus *event_bus.EventBus, clock utils.Clock) *ServiceImpl {
	return &ServiceImpl{
		store:     store,
		resolver:  resolver,
		codec:     codec,
		registrar: registrar,
		bus:       bus,
		clock:     clock,
	}
}

func (s *ServiceImpl) List(ctx context.Context, month string) ([]Expense, error) {
	body, err := s.monthBody(ctx, month)
	if err != nil {
		return nil, err
	}

	rows := Table().Rows(body)
	expenses := make([]Expense, 0, len(rows))
	for _, row := range rows {
		expenses = append(expenses, s.codec.FromRow(row))
	}
	return expenses, nil
}

// Add appends the record to its month note. A non-empty recurring tag also
// registers a schedule; this is the one sanctioned schedule-creation path.
func (s *ServiceImpl) Add(ctx context.Context, e Expense) (Expense, error) {
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	if e.Time == nil {
		now := s.clock.Now()
		e.Time = &now
	}

	month := e.Month()
	ref, err := s.resolver.NoteFor(ctx, month)
	if err != nil {
		return Expense{}, fmt.Errorf("failed to resolve note for %s: %w", month, err)
	}
	body, err := s.readBody(ctx, ref)
	if err != nil {
		return Expense{}, err
	}

	table := Table()
	rows := append(table.Rows(body), s.codec.ToRow(e))
	if err := s.store.WriteBody(ctx, ref, table.Replace(body, rows)); err != nil {
		return Expense{}, fmt.Errorf("failed to write note for %s: %w", month, err)
	}

	if e.RecurringTag != "" && s.registrar != nil {
		if err := s.registrar.Register(ctx, e, ref); err != nil {
			return Expense{}, fmt.Errorf("expense stored but schedule registration failed: %w", err)
		}
	}

	s.publishChanged(ctx, month)
	return e, nil
}

func (s *ServiceImpl) Update(ctx context.Context, month string, index int, e Expense) (Expense, error) {
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	if e.Time == nil {
		now := s.clock.Now()
		e.Time = &now
	}

	err := s.rewrite(ctx, month, func(rows [][]string) ([][]string, error) {
		if index < 0 || index >= len(rows) {
			return nil, fmt.Errorf("no expense at position %d in %s", index, month)
		}
		rows[index] = s.codec.ToRow(e)
		return rows, nil
	})
	if err != nil {
		return Expense{}, err
	}
	return e, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, month string, index int) error {
	return s.rewrite(ctx, month, func(rows [][]string) ([][]string, error) {
		if index < 0 || index >= len(rows) {
			return nil, fmt.Errorf("no expense at position %d in %s", index, month)
		}
		return append(rows[:index], rows[index+1:]...), nil
	})
}

// rewrite applies fn to the month's parsed rows and rewrites the table.
// Record identity is positional within one rewrite.
func (s *ServiceImpl) rewrite(ctx context.Context, month string, fn func([][]string) ([][]string, error)) error {
	ref, err := s.resolver.NoteFor(ctx, month)
	if err != nil {
		return fmt.Errorf("failed to resolve note for %s: %w", month, err)
	}
	body, err := s.readBody(ctx, ref)
	if err != nil {
		return err
	}

	table := Table()
	rows, err := fn(table.Rows(body))
	if err != nil {
		return err
	}
	if err := s.store.WriteBody(ctx, ref, table.Replace(body, rows)); err != nil {
		return fmt.Errorf("failed to write note for %s: %w", month, err)
	}

	s.publishChanged(ctx, month)
	return nil
}

func (s *ServiceImpl) monthBody(ctx context.Context, month string) (string, error) {
	ref, err := s.resolver.NoteFor(ctx, month)
	if err != nil {
		return "", fmt.Errorf("failed to resolve note for %s: %w", month, err)
	}
	return s.readBody(ctx, ref)
}

func (s *ServiceImpl) readBody(ctx context.Context, ref notes.Ref) (string, error) {
	body, err := s.store.ReadBody(ctx, ref)
	if err != nil {
		if errors.Is(err, notes.ErrNoteNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read note %s: %w", ref, err)
	}
	return body, nil
}

func (s *ServiceImpl) publishChanged(ctx context.Context, month string) {
	if s.bus == nil {
		return
	}
	err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.ExpensesChanged,
		event_bus.ExpensesChangedPayload{Months: []string{month}}))
	if err != nil {
		log.Errorf("failed to publish expense change event: %v", err)
	}
}
