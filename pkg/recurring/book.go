package recurring

import (
	"context"
	"errors"
	"fmt"

	"github.com/noteledger/noteledger/pkg/expense"
	"github.com/noteledger/noteledger/pkg/notes"
	log "github.com/sirupsen/logrus"
)

// Book reads and rewrites the recurring-schedule table in the schedule note.
type Book struct {
	store        notes.Store
	codec        *Codec
	schedulePath string
}

func NewBook(store notes.Store, codec *Codec, schedulePath string) *Book {
	return &Book{store: store, codec: codec, schedulePath: schedulePath}
}

func (b *Book) List(ctx context.Context) ([]Schedule, error) {
	body, _, err := b.readBody(ctx)
	if err != nil {
		return nil, err
	}

	rows := Table().Rows(body)
	schedules := make([]Schedule, 0, len(rows))
	for _, row := range rows {
		schedules = append(schedules, b.codec.FromRow(row))
	}
	return schedules, nil
}

// Register converts a user-entered expense with a recurring tag into a
// schedule: enabled, never processed, next due one period after the record's
// own date (the anchor). Implements expense.Registrar.
func (b *Book) Register(ctx context.Context, e expense.Expense, source notes.Ref) error {
	period := ParsePeriod(e.RecurringTag)
	if period == None {
		return fmt.Errorf("unknown recurring tag %q", e.RecurringTag)
	}
	if e.Time == nil {
		return fmt.Errorf("cannot register a schedule without an anchor date")
	}

	template := e
	template.RecurringTag = ""
	s := Schedule{
		Template:     template,
		Period:       period,
		NextDue:      NextOccurrence(*e.Time, period),
		Enabled:      true,
		SourceNoteID: string(source),
	}

	schedules, err := b.List(ctx)
	if err != nil {
		return err
	}
	if err := b.save(ctx, append(schedules, s)); err != nil {
		return err
	}
	log.Infof("registered %s schedule %q anchored at %s", period, e.Description, e.Time.Format("2006-01-02"))
	return nil
}

// Update re-reads the schedule note and replaces the row matching s. Rows are
// matched by source note id when one is present, falling back to the
// description+category+amount triple for legacy rows without one. Two
// distinct schedules with an identical triple and no source id would collide
// under the fallback; that looseness mirrors the stored format, which carries
// no dedicated schedule identifier.
func (b *Book) Update(ctx context.Context, s Schedule) error {
	schedules, err := b.List(ctx)
	if err != nil {
		return err
	}

	matched := false
	for i := range schedules {
		if !sameSchedule(schedules[i], s) {
			continue
		}
		schedules[i] = s
		matched = true
		break
	}
	if !matched {
		return fmt.Errorf("schedule %q not found in schedule note", s.Template.Description)
	}
	return b.save(ctx, schedules)
}

func (b *Book) save(ctx context.Context, schedules []Schedule) error {
	body, ref, err := b.readBody(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(schedules))
	for _, s := range schedules {
		rows = append(rows, b.codec.ToRow(s))
	}
	if err := b.store.WriteBody(ctx, ref, Table().Replace(body, rows)); err != nil {
		return fmt.Errorf("failed to write schedule note: %w", err)
	}
	return nil
}

func (b *Book) readBody(ctx context.Context) (string, notes.Ref, error) {
	ref, err := b.store.ResolveOrCreate(ctx, b.schedulePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve schedule note: %w", err)
	}
	body, err := b.store.ReadBody(ctx, ref)
	if err != nil {
		if errors.Is(err, notes.ErrNoteNotFound) {
			return "", ref, nil
		}
		return "", "", fmt.Errorf("failed to read schedule note: %w", err)
	}
	return body, ref, nil
}

func sameSchedule(a, b Schedule) bool {
	if a.SourceNoteID != "" && b.SourceNoteID != "" {
		return a.SourceNoteID == b.SourceNoteID &&
			a.Template.Description == b.Template.Description &&
			a.Template.Category == b.Template.Category
	}
	return a.Template.Description == b.Template.Description &&
		a.Template.Category == b.Template.Category &&
		a.Template.Amount.Equal(b.Template.Amount)
}
