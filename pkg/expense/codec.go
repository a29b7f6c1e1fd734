package expense

import (
	"github.com/noteledger/noteledger/pkg/tabledoc"
	"github.com/noteledger/noteledger/pkg/timeparse"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Columns is the wire-format column sequence of an expense table. Other
// tooling may read the notes as plain text, so the order and names are fixed.
var Columns = []string{"price", "description", "category", "date", "shop", "attachment", "recurring"}

// Table is the expense table signature: description and category are the key
// columns whose emptiness marks a template row.
func Table() tabledoc.Table {
	return tabledoc.Table{
		Columns:      Columns,
		KeyColumns:   []int{1, 2},
		SectionTitle: "Expenses",
	}
}

// Codec converts between Expense records and positional table rows.
// Malformed cells never fail a parse: a non-numeric price becomes zero and an
// unparsable date falls back to the current time, each with a warning, so one
// broken row cannot block a whole table.
type Codec struct {
	normalizer *timeparse.Normalizer
}

func NewCodec(normalizer *timeparse.Normalizer) *Codec {
	return &Codec{normalizer: normalizer}
}

func (c *Codec) ToRow(e Expense) []string {
	date := ""
	if e.Time != nil {
		date = c.normalizer.Format(*e.Time)
	}
	// Amounts are serialized without implicit rounding: 10.5 stays 10.5.
	return []string{
		e.Amount.String(),
		e.Description,
		e.Category.String(),
		date,
		e.Shop,
		e.Attachment,
		e.RecurringTag,
	}
}

// FromRow parses one data row. The row is expected to have passed the table's
// placeholder filtering, so the key cells are non-empty.
func (c *Codec) FromRow(cells []string) Expense {
	amount, err := decimal.NewFromString(cells[0])
	if err != nil {
		log.Warnf("non-numeric price %q, substituting zero", cells[0])
		amount = decimal.Zero
	}

	outcome := c.normalizer.Parse(cells[3])
	parsed := outcome.Time

	return Expense{
		Amount:       amount,
		Description:  cells[1],
		Category:     Category(cells[2]),
		Time:         &parsed,
		Shop:         cells[4],
		Attachment:   cells[5],
		RecurringTag: cells[6],
	}
}

func (c *Codec) Normalizer() *timeparse.Normalizer {
	return c.normalizer
}
