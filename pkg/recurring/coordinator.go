package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noteledger/noteledger/internal/event_bus"
	"github.com/noteledger/noteledger/internal/utils"
	"github.com/noteledger/noteledger/pkg/expense"
	"github.com/noteledger/noteledger/pkg/notes"
	log "github.com/sirupsen/logrus"
)

const commitBackoff = 100 * time.Millisecond

// Result is the outcome of one processing pass. Errors are non-fatal and
// human readable; Records carries the produced expenses for downstream
// summary refresh. A fresh Result is built per pass; no state survives
// between passes except through the schedule note itself.
type Result struct {
	Processed int
	Created   int
	Errors    []string
	Records   []expense.Expense
}

// Coordinator runs a full processing pass: read the schedule table, evaluate
// due-ness, generate records (with backfill on first activation), write them
// to their month notes, and commit the updated schedule state with bounded
// retries. Schedules are processed sequentially; the per-month notes are
// shared targets and out-of-order writes would corrupt table ranges.
type Coordinator struct {
	book           *Book
	store          notes.Store
	resolver       notes.MonthResolver
	expenses       *expense.Codec
	bus            *event_bus.EventBus
	clock          utils.Clock
	backfillCap    int
	commitAttempts int
	sleep          func(time.Duration)
}

func NewCoordinator(book *Book, store notes.Store, resolver notes.MonthResolver,
	expenses *expense.Codec, bus *event_bus.EventBus, clock utils.Clock,
	backfillCap, commitAttempts int) *Coordinator {
	if backfillCap <= 0 {
		backfillCap = 24
	}
	if commitAttempts <= 0 {
		commitAttempts = 3
	}
	return &Coordinator{
		book:           book,
		store:          store,
		resolver:       resolver,
		expenses:       expenses,
		bus:            bus,
		clock:          clock,
		backfillCap:    backfillCap,
		commitAttempts: commitAttempts,
		sleep:          time.Sleep,
	}
}

// ProcessAll runs one pass over every schedule. One broken schedule never
// aborts the batch: its error lands in Result.Errors and processing moves on.
// A failure to read the schedule note itself yields a single-element error
// list with zero counts.
func (c *Coordinator) ProcessAll(ctx context.Context) Result {
	var res Result

	schedules, err := c.book.List(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("failed to read schedule note: %v", err))
		return res
	}

	now := c.clock.Now()
	for _, s := range schedules {
		if !IsDue(s, now) {
			continue
		}
		res.Processed++
		c.processOne(ctx, s, now, &res)
	}

	log.Infof("recurring pass finished: %d processed, %d created, %d error(s)",
		res.Processed, res.Created, len(res.Errors))
	c.publish(ctx, res)
	return res
}

func (c *Coordinator) processOne(ctx context.Context, s Schedule, now time.Time, res *Result) {
	records, err := c.generate(s, now)
	if err != nil {
		log.Errorf("failed to generate records for schedule %q: %v", s.Template.Description, err)
		res.Errors = append(res.Errors, fmt.Sprintf("schedule %q: %v", s.Template.Description, err))
		return
	}

	written, lastOccurrence := c.writeRecords(ctx, records, res)
	if len(written) == 0 {
		// Nothing confirmed on disk, so the schedule state must not move.
		return
	}
	res.Created += len(written)
	res.Records = append(res.Records, written...)

	if s.LastProcessed == nil {
		// First activation: advance from the anchor past now, not merely past
		// the last generated occurrence, to avoid immediately re-triggering.
		s.NextDue = advancePast(s.Anchor(), s.Period, now)
	} else {
		s.NextDue = NextOccurrence(lastOccurrence, s.Period)
	}
	lastProcessed := now
	s.LastProcessed = &lastProcessed

	c.commit(ctx, s, res)
}

// generate computes the dated records a due schedule owes. On first-time
// activation this backfills missed occurrences from the anchor, capped, and
// also materializes the current due occurrence. In steady state exactly one
// record is produced for the current nextDue. Occurrence dates keep the
// anchor's wall-clock time, so a "daily at 9am" schedule does not drift
// across a backfill. Panics during generation are converted to per-schedule
// errors.
func (c *Coordinator) generate(s Schedule, now time.Time) (records []expense.Expense, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation failed: %v", r)
		}
	}()

	var dates []time.Time
	if s.LastProcessed == nil {
		anchor := s.Anchor()
		dates = MissedOccurrences(anchor, s.Period, now, c.backfillCap)
		last := anchor
		if len(dates) > 0 {
			last = dates[len(dates)-1]
		}
		if cur := NextOccurrence(last, s.Period); !now.Before(cur) && len(dates) < c.backfillCap {
			dates = append(dates, cur)
		}
		if len(dates) > 0 {
			log.Infof("backfilling %d occurrence(s) for schedule %q from anchor %s",
				len(dates), s.Template.Description, anchor.Format("2006-01-02"))
		}
	} else {
		dates = []time.Time{s.NextDue}
	}

	for _, d := range dates {
		record := s.Template
		occurrence := d
		record.Time = &occurrence
		// Recurrence does not cascade: generated records carry no tag.
		record.RecurringTag = ""
		records = append(records, record)
	}
	return records, nil
}

// writeRecords groups records by target month and appends each group to its
// month note through a table rewrite. A failed group is reported and skipped;
// it neither blocks other groups nor invalidates already-written ones.
func (c *Coordinator) writeRecords(ctx context.Context, records []expense.Expense, res *Result) ([]expense.Expense, time.Time) {
	var order []string
	groups := map[string][]expense.Expense{}
	for _, r := range records {
		month := r.Month()
		if _, ok := groups[month]; !ok {
			order = append(order, month)
		}
		groups[month] = append(groups[month], r)
	}

	table := expense.Table()
	var written []expense.Expense
	var last time.Time
	for _, month := range order {
		group := groups[month]

		ref, err := c.resolver.NoteFor(ctx, month)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("failed to resolve note for %s: %v", month, err))
			continue
		}
		body, err := c.store.ReadBody(ctx, ref)
		if err != nil && !errors.Is(err, notes.ErrNoteNotFound) {
			res.Errors = append(res.Errors, fmt.Sprintf("failed to read note for %s: %v", month, err))
			continue
		}

		rows := table.Rows(body)
		for _, r := range group {
			rows = append(rows, c.expenses.ToRow(r))
		}
		if err := c.store.WriteBody(ctx, ref, table.Replace(body, rows)); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("failed to write %d record(s) to %s: %v", len(group), month, err))
			continue
		}

		written = append(written, group...)
		for _, r := range group {
			if r.Time.After(last) {
				last = *r.Time
			}
		}
	}
	return written, last
}

// commit writes the updated schedule state with bounded retries. Exhausted
// retries surface a critical error: the generated records exist, the stale
// nextDue will make the schedule due again on the next run, and the backfill
// path re-derives what is owed.
func (c *Coordinator) commit(ctx context.Context, s Schedule, res *Result) {
	var err error
	for attempt := 0; attempt < c.commitAttempts; attempt++ {
		if attempt > 0 {
			c.sleep(commitBackoff << (attempt - 1))
		}
		if err = c.book.Update(ctx, s); err == nil {
			return
		}
		log.Warnf("schedule commit attempt %d/%d failed for %q: %v",
			attempt+1, c.commitAttempts, s.Template.Description, err)
	}
	res.Errors = append(res.Errors, fmt.Sprintf(
		"CRITICAL: records created but schedule %q could not be committed after %d attempts: %v",
		s.Template.Description, c.commitAttempts, err))
}

func (c *Coordinator) publish(ctx context.Context, res Result) {
	if c.bus == nil || res.Created == 0 {
		return
	}

	seen := map[string]bool{}
	var months []string
	for _, r := range res.Records {
		if month := r.Month(); !seen[month] {
			seen[month] = true
			months = append(months, month)
		}
	}
	err := c.bus.Publish(event_bus.NewEvent(ctx, event_bus.ExpensesRecorded,
		event_bus.ExpensesRecordedPayload{Months: months, Created: res.Created}))
	if err != nil {
		log.Errorf("failed to publish recurring pass event: %v", err)
	}
}
