package recurring

import "time"

// NextOccurrence advances a date by one period, preserving the wall-clock
// time and location. Monthly keeps the day-of-month where the target month
// supports it and clamps to the month's last day otherwise; Yearly clamps a
// Feb 29 anchor to Feb 28 in non-leap target years. None is the identity.
func NextOccurrence(t time.Time, p Period) time.Time {
	switch p {
	case Daily:
		return addDays(t, 1)
	case Weekly:
		return addDays(t, 7)
	case Monthly:
		return addMonths(t, 1)
	case Yearly:
		return addYears(t, 1)
	default:
		return t
	}
}

// IsDue reports whether the schedule should produce an occurrence at now.
// A disabled schedule or a None period is never due, regardless of NextDue.
func IsDue(s Schedule, now time.Time) bool {
	return s.Enabled && s.Period != None && !now.Before(s.NextDue)
}

// MissedOccurrences enumerates occurrences after anchor that are at least one
// full period in the past at now, in chronological order, stopping at cap
// elements. The anchor itself is never returned, and neither is the current
// due occurrence: that one is the schedule's nextDue, which the caller
// materializes itself.
func MissedOccurrences(anchor time.Time, p Period, now time.Time, cap int) []time.Time {
	if p == None || cap <= 0 {
		return nil
	}

	var missed []time.Time
	cur := NextOccurrence(anchor, p)
	for len(missed) < cap && !now.Before(NextOccurrence(cur, p)) {
		missed = append(missed, cur)
		cur = NextOccurrence(cur, p)
	}
	return missed
}

// advancePast returns the first occurrence after anchor that is strictly
// after now. Used on first-time activation so the committed nextDue does not
// immediately re-trigger.
func advancePast(anchor time.Time, p Period, now time.Time) time.Time {
	next := NextOccurrence(anchor, p)
	for !next.After(now) {
		next = NextOccurrence(next, p)
	}
	return next
}

func addDays(t time.Time, days int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	return time.Date(y, m, d+days, hh, mm, ss, t.Nanosecond(), t.Location())
}

func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	// Normalize the target month first, then clamp the day, so Jan 31 + 1
	// month is Feb 28/29 rather than Mar 2/3.
	first := time.Date(y, m+time.Month(months), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if max := daysIn(first.Year(), first.Month()); d > max {
		d = max
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func addYears(t time.Time, years int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	if max := daysIn(y+years, m); d > max {
		d = max
	}
	return time.Date(y+years, m, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
