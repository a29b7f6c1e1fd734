package recurring

import "strings"

// Period is the closed set of recurrence kinds. The zero value None never
// produces occurrences.
type Period int

const (
	None Period = iota
	Daily
	Weekly
	Monthly
	Yearly
)

// ParsePeriod maps a recurring tag to its Period. Unknown tags map to None.
func ParsePeriod(s string) Period {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return Daily
	case "weekly":
		return Weekly
	case "monthly":
		return Monthly
	case "yearly":
		return Yearly
	default:
		return None
	}
}

func (p Period) String() string {
	switch p {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	default:
		return ""
	}
}
