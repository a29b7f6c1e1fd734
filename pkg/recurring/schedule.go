package recurring

import (
	"strconv"
	"time"

	"github.com/noteledger/noteledger/pkg/expense"
	"github.com/noteledger/noteledger/pkg/tabledoc"
	log "github.com/sirupsen/logrus"
)

// Columns is the recurring-schedule table wire format: the expense columns
// plus the scheduling state.
var Columns = append(append([]string{}, expense.Columns...),
	"lastprocessed", "nextdue", "enabled", "sourcenoteid")

func Table() tabledoc.Table {
	return tabledoc.Table{
		Columns:      Columns,
		KeyColumns:   []int{1, 2},
		SectionTitle: "Recurring expenses",
	}
}

// Schedule is a template plus scheduling state. Template holds the fields
// stamped onto generated records; Template.Time is the anchor date the
// schedule was created from. A nil LastProcessed means the schedule has never
// been processed, which triggers backfill from the anchor.
type Schedule struct {
	Template      expense.Expense
	Period        Period
	LastProcessed *time.Time
	NextDue       time.Time
	Enabled       bool
	SourceNoteID  string
}

// Anchor is the schedule's original anchor date.
func (s Schedule) Anchor() time.Time {
	if s.Template.Time == nil {
		return s.NextDue
	}
	return *s.Template.Time
}

// Codec converts schedules to and from 11-cell table rows.
type Codec struct {
	expenses *expense.Codec
}

func NewCodec(expenses *expense.Codec) *Codec {
	return &Codec{expenses: expenses}
}

func (c *Codec) ToRow(s Schedule) []string {
	template := s.Template
	template.RecurringTag = s.Period.String()

	lastProcessed := ""
	if s.LastProcessed != nil {
		lastProcessed = c.expenses.Normalizer().Format(*s.LastProcessed)
	}

	row := c.expenses.ToRow(template)
	return append(row,
		lastProcessed,
		c.expenses.Normalizer().Format(s.NextDue),
		strconv.FormatBool(s.Enabled),
		s.SourceNoteID,
	)
}

// FromRow parses one schedule row. Malformed scheduling cells degrade to the
// safe side: an unreadable lastProcessed counts as never (re-runs capped
// backfill instead of skipping), an unreadable nextDue is recomputed from the
// anchor, an unreadable enabled flag disables the schedule.
func (c *Codec) FromRow(cells []string) Schedule {
	template := c.expenses.FromRow(cells[:len(expense.Columns)])
	period := ParsePeriod(template.RecurringTag)
	template.RecurringTag = ""

	s := Schedule{
		Template:     template,
		Period:       period,
		SourceNoteID: cells[10],
	}

	if cells[7] != "" {
		if outcome := c.expenses.Normalizer().Parse(cells[7]); !outcome.FellBack {
			s.LastProcessed = &outcome.Time
		}
	}

	if outcome := c.expenses.Normalizer().Parse(cells[8]); !outcome.FellBack {
		s.NextDue = outcome.Time
	} else {
		s.NextDue = NextOccurrence(s.Anchor(), period)
	}

	enabled, err := strconv.ParseBool(cells[9])
	if err != nil {
		log.Warnf("unreadable enabled flag %q for schedule %q, treating as disabled", cells[9], template.Description)
		enabled = false
	}
	s.Enabled = enabled

	return s
}
