package recurring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func TestNextOccurrence(t *testing.T) {
	t.Run("should advance by the period length", func(t *testing.T) {
		anchor := date(2025, 1, 15)

		assert.Equal(t, date(2025, 1, 16), NextOccurrence(anchor, Daily))
		assert.Equal(t, date(2025, 1, 22), NextOccurrence(anchor, Weekly))
		assert.Equal(t, date(2025, 2, 15), NextOccurrence(anchor, Monthly))
		assert.Equal(t, date(2026, 1, 15), NextOccurrence(anchor, Yearly))
	})

	t.Run("should be the identity for None", func(t *testing.T) {
		anchor := date(2025, 1, 15)
		assert.Equal(t, anchor, NextOccurrence(anchor, None))
	})

	t.Run("should clamp monthly to the target month's last day", func(t *testing.T) {
		assert.Equal(t, date(2025, 2, 28), NextOccurrence(date(2025, 1, 31), Monthly))
		assert.Equal(t, date(2024, 2, 29), NextOccurrence(date(2024, 1, 31), Monthly))
		assert.Equal(t, date(2025, 4, 30), NextOccurrence(date(2025, 3, 31), Monthly))
	})

	t.Run("should clamp a Feb 29 anchor to Feb 28 in non-leap years", func(t *testing.T) {
		assert.Equal(t, date(2025, 2, 28), NextOccurrence(date(2024, 2, 29), Yearly))
	})

	t.Run("should preserve the wall-clock time across occurrences", func(t *testing.T) {
		anchor := time.Date(2025, 1, 1, 9, 30, 0, 0, time.FixedZone("UTC+2", 2*3600))
		next := NextOccurrence(anchor, Monthly)

		hh, mm, _ := next.Clock()
		assert.Equal(t, 9, hh)
		assert.Equal(t, 30, mm)
		assert.Equal(t, anchor.Location(), next.Location())
	})

	t.Run("should strictly advance for every non-None period", func(t *testing.T) {
		anchor := date(2024, 2, 29)
		for _, p := range []Period{Daily, Weekly, Monthly, Yearly} {
			first := NextOccurrence(anchor, p)
			second := NextOccurrence(first, p)
			assert.True(t, first.After(anchor), "period %s did not advance", p)
			assert.True(t, second.After(first), "period %s did not advance twice", p)
		}
	})
}

func TestIsDue(t *testing.T) {
	now := date(2025, 4, 15)

	t.Run("should be due when enabled and nextDue has passed", func(t *testing.T) {
		s := Schedule{Enabled: true, Period: Monthly, NextDue: date(2025, 4, 1)}
		assert.True(t, IsDue(s, now))
	})

	t.Run("should be due exactly at nextDue", func(t *testing.T) {
		s := Schedule{Enabled: true, Period: Daily, NextDue: now}
		assert.True(t, IsDue(s, now))
	})

	t.Run("should never be due when disabled, regardless of nextDue", func(t *testing.T) {
		s := Schedule{Enabled: false, Period: Monthly, NextDue: date(2020, 1, 1)}
		assert.False(t, IsDue(s, now))
	})

	t.Run("should never be due for a None period", func(t *testing.T) {
		s := Schedule{Enabled: true, Period: None, NextDue: date(2020, 1, 1)}
		assert.False(t, IsDue(s, now))
	})

	t.Run("should not be due before nextDue", func(t *testing.T) {
		s := Schedule{Enabled: true, Period: Monthly, NextDue: date(2025, 5, 1)}
		assert.False(t, IsDue(s, now))
	})
}

func TestMissedOccurrences(t *testing.T) {
	t.Run("should exclude the anchor and the current due occurrence", func(t *testing.T) {
		// given: a monthly schedule anchored Jan 1, evaluated Apr 15
		anchor := date(2025, 1, 1)
		now := date(2025, 4, 15)

		// when
		missed := MissedOccurrences(anchor, Monthly, now, 24)

		// then: Feb 1 and Mar 1 were missed; Apr 1 is the current due
		// occurrence, left for the caller to materialize
		require.Len(t, missed, 2)
		assert.Equal(t, date(2025, 2, 1), missed[0])
		assert.Equal(t, date(2025, 3, 1), missed[1])
	})

	t.Run("should honor the cap even when more would qualify", func(t *testing.T) {
		// given: an anchor three years in the past
		anchor := date(2022, 4, 15)
		now := date(2025, 4, 15)

		// when
		missed := MissedOccurrences(anchor, Monthly, now, 24)

		// then
		assert.Len(t, missed, 24)
	})

	t.Run("should return dates in chronological order, all strictly before now", func(t *testing.T) {
		anchor := date(2025, 1, 3)
		now := date(2025, 3, 20)

		missed := MissedOccurrences(anchor, Weekly, now, 24)

		require.NotEmpty(t, missed)
		prev := anchor
		for _, d := range missed {
			assert.True(t, d.After(prev))
			assert.True(t, d.Before(now))
			prev = d
		}
	})

	t.Run("should return nothing for None or a fresh anchor", func(t *testing.T) {
		assert.Nil(t, MissedOccurrences(date(2025, 1, 1), None, date(2026, 1, 1), 24))
		assert.Nil(t, MissedOccurrences(date(2025, 4, 14), Monthly, date(2025, 4, 15), 24))
	})
}

func TestAdvancePast(t *testing.T) {
	t.Run("should land strictly after now, staying on the anchor grid", func(t *testing.T) {
		anchor := date(2025, 1, 1)
		now := date(2025, 4, 15)

		next := advancePast(anchor, Monthly, now)

		assert.Equal(t, date(2025, 5, 1), next)
	})

	t.Run("should skip an occurrence that coincides with now", func(t *testing.T) {
		anchor := date(2025, 4, 14)
		now := date(2025, 4, 15)

		assert.Equal(t, date(2025, 4, 16), advancePast(anchor, Daily, now))
	})
}
