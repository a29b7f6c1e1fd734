package summary

import (
	"context"
	"sort"
	"sync"

	"github.com/noteledger/noteledger/internal/event_bus"
	"github.com/noteledger/noteledger/pkg/expense"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// CategoryTotal folds one category's records for a month. Spent collects
// positive amounts, Received the absolute value of negative ones, following
// the ledger convention that positive means expense.
type CategoryTotal struct {
	Category string
	Spent    decimal.Decimal
	Received decimal.Decimal
	Count    int
}

type MonthSummary struct {
	Month         string
	Categories    []CategoryTotal
	TotalSpent    decimal.Decimal
	TotalReceived decimal.Decimal
	Count         int
}

type Service interface {
	MonthSummary(ctx context.Context, month string) (MonthSummary, error)
}

// ServiceImpl derives summaries from the month tables and caches them per
// month. The cache is invalidated through bus events published by the
// expense writer and the recurring coordinator.
type ServiceImpl struct {
	expenses expense.Service

	mu    sync.Mutex
	cache map[string]MonthSummary
}

func NewService(expenses expense.Service, bus *event_bus.EventBus) *ServiceImpl {
	s := &ServiceImpl{
		expenses: expenses,
		cache:    map[string]MonthSummary{},
	}
	if bus != nil {
		event_bus.SubscribeTyped(bus, event_bus.ExpensesChanged,
			func(e event_bus.EventT[event_bus.ExpensesChangedPayload]) error {
				s.invalidate(e.Data.Months)
				return nil
			})
		event_bus.SubscribeTyped(bus, event_bus.ExpensesRecorded,
			func(e event_bus.EventT[event_bus.ExpensesRecordedPayload]) error {
				s.invalidate(e.Data.Months)
				return nil
			})
	}
	return s
}

func (s *ServiceImpl) MonthSummary(ctx context.Context, month string) (MonthSummary, error) {
	s.mu.Lock()
	cached, ok := s.cache[month]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	records, err := s.expenses.List(ctx, month)
	if err != nil {
		return MonthSummary{}, err
	}

	byCategory := map[string]CategoryTotal{}
	summary := MonthSummary{
		Month:         month,
		TotalSpent:    decimal.Zero,
		TotalReceived: decimal.Zero,
	}
	for _, record := range records {
		name := record.Category.String()
		total, ok := byCategory[name]
		if !ok {
			total = CategoryTotal{Category: name, Spent: decimal.Zero, Received: decimal.Zero}
		}
		if record.Amount.IsNegative() {
			total.Received = total.Received.Add(record.Amount.Abs())
			summary.TotalReceived = summary.TotalReceived.Add(record.Amount.Abs())
		} else {
			total.Spent = total.Spent.Add(record.Amount)
			summary.TotalSpent = summary.TotalSpent.Add(record.Amount)
		}
		total.Count++
		summary.Count++
		byCategory[name] = total
	}

	summary.Categories = make([]CategoryTotal, 0, len(byCategory))
	for _, total := range byCategory {
		summary.Categories = append(summary.Categories, total)
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].Category < summary.Categories[j].Category
	})

	s.mu.Lock()
	s.cache[month] = summary
	s.mu.Unlock()
	return summary, nil
}

func (s *ServiceImpl) invalidate(months []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, month := range months {
		if _, ok := s.cache[month]; ok {
			log.Debugf("invalidating cached summary for %s", month)
			delete(s.cache, month)
		}
	}
}
