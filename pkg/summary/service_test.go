package summary

import (
	"context"
	"fmt"
	"testing"

	"github.com/noteledger/noteledger/internal/event_bus"
	"github.com/noteledger/noteledger/pkg/expense"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExpenseService struct {
	byMonth   map[string][]expense.Expense
	failList  bool
	listCalls int
}

func (s *stubExpenseService) List(ctx context.Context, month string) ([]expense.Expense, error) {
	s.listCalls++
	if s.failList {
		return nil, fmt.Errorf("stub list failure")
	}
	return s.byMonth[month], nil
}

func (s *stubExpenseService) Add(ctx context.Context, e expense.Expense) (expense.Expense, error) {
	return e, nil
}

func (s *stubExpenseService) Update(ctx context.Context, month string, index int, e expense.Expense) (expense.Expense, error) {
	return e, nil
}

func (s *stubExpenseService) Delete(ctx context.Context, month string, index int) error {
	return nil
}

func record(amount, category string) expense.Expense {
	return expense.Expense{
		Amount:      decimal.RequireFromString(amount),
		Description: "record",
		Category:    expense.Category(category),
	}
}

func TestServiceImpl_MonthSummary(t *testing.T) {
	t.Run("should split totals by sign per category", func(t *testing.T) {
		// given: positive amounts are spending, negative are income
		expenses := &stubExpenseService{byMonth: map[string][]expense.Expense{
			"2025-04": {
				record("10.5", "food"),
				record("4.5", "food"),
				record("-200", "salary"),
			},
		}}
		service := NewService(expenses, nil)

		// when
		summary, err := service.MonthSummary(context.Background(), "2025-04")

		// then
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Count)
		assert.True(t, summary.TotalSpent.Equal(decimal.RequireFromString("15")))
		assert.True(t, summary.TotalReceived.Equal(decimal.RequireFromString("200")))

		require.Len(t, summary.Categories, 2)
		assert.Equal(t, "food", summary.Categories[0].Category)
		assert.True(t, summary.Categories[0].Spent.Equal(decimal.RequireFromString("15")))
		assert.Equal(t, "salary", summary.Categories[1].Category)
		assert.True(t, summary.Categories[1].Received.Equal(decimal.RequireFromString("200")))
	})

	t.Run("should serve repeated reads from the cache", func(t *testing.T) {
		// given
		expenses := &stubExpenseService{byMonth: map[string][]expense.Expense{
			"2025-04": {record("10", "food")},
		}}
		service := NewService(expenses, nil)

		// when
		_, err := service.MonthSummary(context.Background(), "2025-04")
		require.NoError(t, err)
		_, err = service.MonthSummary(context.Background(), "2025-04")

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, expenses.listCalls)
	})

	t.Run("should recompute after an expense change event", func(t *testing.T) {
		// given
		bus := event_bus.NewEventBus()
		expenses := &stubExpenseService{byMonth: map[string][]expense.Expense{
			"2025-04": {record("10", "food")},
		}}
		service := NewService(expenses, bus)

		first, err := service.MonthSummary(context.Background(), "2025-04")
		require.NoError(t, err)
		require.True(t, first.TotalSpent.Equal(decimal.RequireFromString("10")))

		expenses.byMonth["2025-04"] = append(expenses.byMonth["2025-04"], record("5", "food"))

		// when
		err = bus.Publish(event_bus.NewEvent(context.Background(), event_bus.ExpensesChanged,
			event_bus.ExpensesChangedPayload{Months: []string{"2025-04"}}))
		require.NoError(t, err)
		second, err := service.MonthSummary(context.Background(), "2025-04")

		// then
		require.NoError(t, err)
		assert.True(t, second.TotalSpent.Equal(decimal.RequireFromString("15")))
	})

	t.Run("should recompute after the coordinator records expenses", func(t *testing.T) {
		// given
		bus := event_bus.NewEventBus()
		expenses := &stubExpenseService{byMonth: map[string][]expense.Expense{
			"2025-04": {record("10", "food")},
		}}
		service := NewService(expenses, bus)

		_, err := service.MonthSummary(context.Background(), "2025-04")
		require.NoError(t, err)

		// when
		err = bus.Publish(event_bus.NewEvent(context.Background(), event_bus.ExpensesRecorded,
			event_bus.ExpensesRecordedPayload{Months: []string{"2025-04"}, Created: 1}))
		require.NoError(t, err)
		_, err = service.MonthSummary(context.Background(), "2025-04")

		// then
		require.NoError(t, err)
		assert.Equal(t, 2, expenses.listCalls)
	})

	t.Run("should propagate a list failure", func(t *testing.T) {
		// given
		service := NewService(&stubExpenseService{failList: true}, nil)

		// when
		_, err := service.MonthSummary(context.Background(), "2025-04")

		// then
		assert.Error(t, err)
	})
}
