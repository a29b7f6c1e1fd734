package expense

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is a validated expense category name. Construct it with
// NewCategory; empty and placeholder values are rejected up front instead of
// being checked at each use site.
type Category string

func NewCategory(s string) (Category, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "---" {
		return "", fmt.Errorf("invalid category %q", s)
	}
	return Category(trimmed), nil
}

func (c Category) String() string {
	return string(c)
}

// Expense is one ledger entry. Positive amounts are expenses, negative are
// income. A nil Time means "now" and is resolved when the record is written.
// Records are immutable once created; edits happen by re-serializing rows in
// place during a table rewrite.
type Expense struct {
	Amount       decimal.Decimal
	Description  string
	Category     Category
	Time         *time.Time
	Shop         string
	Attachment   string
	RecurringTag string
}

func (e Expense) Validate() error {
	desc := strings.TrimSpace(e.Description)
	if desc == "" || desc == "---" {
		return fmt.Errorf("expense description must not be empty")
	}
	if e.Category == "" {
		return fmt.Errorf("expense category must not be empty")
	}
	return nil
}

// Month returns the year-month key ("2025-04") the record belongs to,
// or the empty string when the timestamp is still unresolved.
func (e Expense) Month() string {
	if e.Time == nil {
		return ""
	}
	return MonthOf(*e.Time)
}

func MonthOf(t time.Time) string {
	return t.Format("2006-01")
}
