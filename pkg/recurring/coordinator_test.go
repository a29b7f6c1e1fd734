package recurring

import (
	"context"
	"testing"
	"time"

	"github.com/noteledger/noteledger/internal/utils"
	"github.com/noteledger/noteledger/pkg/expense"
	"github.com/noteledger/noteledger/pkg/notes"
	"github.com/noteledger/noteledger/pkg/timeparse"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schedulePath = "Expenses/Recurring.md"

var testNow = time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store       *notes.StubStore
	clock       *utils.MockClock
	codec       *expense.Codec
	scheduleCod *Codec
	book        *Book
	coordinator *Coordinator
}

func newFixture(t *testing.T) *fixture {
	policy, err := timeparse.ParsePolicy("utc")
	require.NoError(t, err)

	store := notes.NewStubStore()
	clock := &utils.MockClock{FixedNow: testNow}
	codec := expense.NewCodec(timeparse.NewNormalizer(policy, clock))
	scheduleCod := NewCodec(codec)
	book := NewBook(store, scheduleCod, schedulePath)
	resolver := notes.NewFolderMonthResolver(store, "Expenses")

	coordinator := NewCoordinator(book, store, resolver, codec, nil, clock, 24, 3)
	coordinator.sleep = func(time.Duration) {}

	return &fixture{
		store:       store,
		clock:       clock,
		codec:       codec,
		scheduleCod: scheduleCod,
		book:        book,
		coordinator: coordinator,
	}
}

func (f *fixture) seedSchedule(t *testing.T, s Schedule) {
	schedules, err := f.book.List(context.Background())
	require.NoError(t, err)
	require.NoError(t, f.book.save(context.Background(), append(schedules, s)))
}

func monthlySchedule(anchor time.Time) Schedule {
	occurrence := anchor
	return Schedule{
		Template: expense.Expense{
			Amount:      decimal.RequireFromString("9.99"),
			Description: "Streaming",
			Category:    expense.Category("subscriptions"),
			Time:        &occurrence,
			Shop:        "FlixCo",
		},
		Period:       Monthly,
		NextDue:      NextOccurrence(anchor, Monthly),
		Enabled:      true,
		SourceNoteID: "Expenses/2025-01.md",
	}
}

func monthRows(f *fixture, month string) [][]string {
	return expense.Table().Rows(f.store.Body(notes.Ref("Expenses/" + month + ".md")))
}

func TestCoordinator_ProcessAll_FirstActivation(t *testing.T) {
	t.Run("should backfill missed occurrences and the current due one", func(t *testing.T) {
		// given: a never-processed monthly schedule anchored Jan 1
		f := newFixture(t)
		anchor := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
		f.seedSchedule(t, monthlySchedule(anchor))

		// when
		result := f.coordinator.ProcessAll(context.Background())

		// then: Feb 1 and Mar 1 were missed, Apr 1 is due — three records
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 3, result.Created)
		assert.Empty(t, result.Errors)
		require.Len(t, result.Records, 3)

		for _, month := range []string{"2025-02", "2025-03", "2025-04"} {
			rows := monthRows(f, month)
			require.Len(t, rows, 1, "month %s", month)
			assert.Equal(t, "9.99", rows[0][0])
			assert.Equal(t, "Streaming", rows[0][1])
			// recurrence does not cascade
			assert.Equal(t, "", rows[0][6])
		}

		// and the occurrence keeps the anchor's wall-clock time
		assert.Equal(t, "2025-02-01T09:00:00Z", monthRows(f, "2025-02")[0][3])
	})

	t.Run("should commit nextDue past now, advanced from the anchor", func(t *testing.T) {
		// given
		f := newFixture(t)
		anchor := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
		f.seedSchedule(t, monthlySchedule(anchor))

		// when
		f.coordinator.ProcessAll(context.Background())

		// then
		schedules, err := f.book.List(context.Background())
		require.NoError(t, err)
		require.Len(t, schedules, 1)
		assert.Equal(t, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), schedules[0].NextDue.UTC())
		require.NotNil(t, schedules[0].LastProcessed)
		assert.True(t, schedules[0].LastProcessed.Equal(testNow))
	})

	t.Run("should not create duplicates when re-run after a completed pass", func(t *testing.T) {
		// given
		f := newFixture(t)
		anchor := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
		f.seedSchedule(t, monthlySchedule(anchor))
		first := f.coordinator.ProcessAll(context.Background())
		require.Equal(t, 3, first.Created)

		// when
		second := f.coordinator.ProcessAll(context.Background())

		// then: schedule is no longer due, nothing changes
		assert.Equal(t, 0, second.Processed)
		assert.Equal(t, 0, second.Created)
		assert.Len(t, monthRows(f, "2025-04"), 1)
	})
}

func TestCoordinator_ProcessAll_SteadyState(t *testing.T) {
	t.Run("should generate exactly one record for the current nextDue", func(t *testing.T) {
		// given: a previously processed schedule due Apr 1
		f := newFixture(t)
		anchor := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
		s := monthlySchedule(anchor)
		lastRun := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		s.LastProcessed = &lastRun
		s.NextDue = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
		f.seedSchedule(t, s)

		// when
		result := f.coordinator.ProcessAll(context.Background())

		// then
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Created)
		assert.Len(t, monthRows(f, "2025-04"), 1)
		assert.Empty(t, monthRows(f, "2025-02"))

		schedules, err := f.book.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), schedules[0].NextDue.UTC())
	})

	t.Run("should skip disabled and not-yet-due schedules without side effects", func(t *testing.T) {
		// given
		f := newFixture(t)
		anchor := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

		disabled := monthlySchedule(anchor)
		disabled.Enabled = false

		future := monthlySchedule(anchor)
		future.Template.Description = "Not yet"
		lastRun := testNow
		future.LastProcessed = &lastRun
		future.NextDue = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

		f.seedSchedule(t, disabled)
		f.seedSchedule(t, future)
		scheduleWrites := f.store.WriteCounts[notes.Ref(schedulePath)]

		// when
		result := f.coordinator.ProcessAll(context.Background())

		// then
		assert.Equal(t, 0, result.Processed)
		assert.Equal(t, 0, result.Created)
		assert.Equal(t, scheduleWrites, f.store.WriteCounts[notes.Ref(schedulePath)])
	})
}

func TestCoordinator_ProcessAll_Failures(t *testing.T) {
	t.Run("should isolate a failed month group and still commit", func(t *testing.T) {
		// given: the March note rejects writes
		f := newFixture(t)
		anchor := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
		f.seedSchedule(t, monthlySchedule(anchor))
		f.store.FailWrites[notes.Ref("Expenses/2025-03.md")] = true

		// when
		result := f.coordinator.ProcessAll(context.Background())

		// then: the other groups landed and the schedule advanced
		assert.Equal(t, 2, result.Created)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "2025-03")
		assert.Len(t, monthRows(f, "2025-02"), 1)
		assert.Len(t, monthRows(f, "2025-04"), 1)

		schedules, err := f.book.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), schedules[0].NextDue.UTC())
	})

	t.Run("should not touch the schedule when every group failed", func(t *testing.T) {
		// given: a steady-state schedule whose only target month rejects writes
		f := newFixture(t)
		anchor := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
		s := monthlySchedule(anchor)
		lastRun := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		s.LastProcessed = &lastRun
		s.NextDue = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
		f.seedSchedule(t, s)
		f.store.FailWrites[notes.Ref("Expenses/2025-04.md")] = true
		scheduleWrites := f.store.WriteCounts[notes.Ref(schedulePath)]

		// when
		result := f.coordinator.ProcessAll(context.Background())

		// then
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 0, result.Created)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, scheduleWrites, f.store.WriteCounts[notes.Ref(schedulePath)])
	})

	t.Run("should surface a critical error after exhausted commit retries", func(t *testing.T) {
		// given: record writes succeed but the schedule note rejects writes
		f := newFixture(t)
		anchor := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
		f.seedSchedule(t, monthlySchedule(anchor))
		writesBefore := f.store.WriteCounts[notes.Ref(schedulePath)]
		f.store.FailWrites[notes.Ref(schedulePath)] = true

		// when
		result := f.coordinator.ProcessAll(context.Background())

		// then: records exist, the pass reports them, and the commit failure
		// is flagged as critical after three attempts
		assert.Equal(t, 3, result.Created)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "CRITICAL")
		assert.Equal(t, writesBefore+3, f.store.WriteCounts[notes.Ref(schedulePath)])
		assert.Len(t, monthRows(f, "2025-04"), 1)
	})

	t.Run("should continue with the next schedule when one fails", func(t *testing.T) {
		// given: two due schedules, the first one's target month rejects writes
		f := newFixture(t)
		anchorJan := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
		broken := monthlySchedule(anchorJan)
		broken.Template.Description = "Broken"
		lastRun := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
		broken.LastProcessed = &lastRun
		broken.NextDue = time.Date(2025, 4, 5, 9, 0, 0, 0, time.UTC)
		broken.SourceNoteID = "a"

		healthy := monthlySchedule(anchorJan)
		healthy.Template.Description = "Healthy"
		healthy.Template.Shop = "OtherCo"
		healthy.SourceNoteID = "b"

		f.seedSchedule(t, broken)
		f.seedSchedule(t, healthy)

		// April rejects writes: the broken schedule's only target month, and
		// one of three for the healthy backfill
		f.store.FailWrites[notes.Ref("Expenses/2025-04.md")] = true

		// when
		result := f.coordinator.ProcessAll(context.Background())

		// then: both schedules were evaluated; the healthy one still produced
		// its February and March backfill records even though April failed
		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 2, result.Created)
		assert.NotEmpty(t, result.Errors)
		assert.Len(t, monthRows(f, "2025-02"), 1)
		assert.Len(t, monthRows(f, "2025-03"), 1)
	})

	t.Run("should report a single error when the schedule note cannot be read", func(t *testing.T) {
		// given
		f := newFixture(t)
		_, err := f.store.ResolveOrCreate(context.Background(), schedulePath)
		require.NoError(t, err)
		f.store.FailReads[notes.Ref(schedulePath)] = true

		// when
		result := f.coordinator.ProcessAll(context.Background())

		// then
		assert.Equal(t, 0, result.Processed)
		assert.Equal(t, 0, result.Created)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "schedule note")
	})
}
