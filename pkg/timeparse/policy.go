package timeparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type PolicyKind int

const (
	// PolicyLocal interprets naive date strings in the host's local calendar.
	PolicyLocal PolicyKind = iota
	// PolicyUTC gives naive date strings a zero offset.
	PolicyUTC
	// PolicyOffset interprets naive date strings at a fixed hour offset.
	PolicyOffset
)

// Policy resolves the timezone of naive date strings. Strings that already
// carry an explicit offset or a Z suffix are absolute regardless of policy.
type Policy struct {
	Kind        PolicyKind
	OffsetHours int
}

// ParsePolicy accepts "local", "utc", or a fixed hour offset like "+2" or "-5".
func ParsePolicy(s string) (Policy, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "local":
		return Policy{Kind: PolicyLocal}, nil
	case "utc":
		return Policy{Kind: PolicyUTC}, nil
	default:
		hours, err := strconv.Atoi(strings.TrimPrefix(v, "+"))
		if err != nil {
			return Policy{}, fmt.Errorf("invalid time policy %q", s)
		}
		if hours < -14 || hours > 14 {
			return Policy{}, fmt.Errorf("time policy offset out of range: %d", hours)
		}
		return Policy{Kind: PolicyOffset, OffsetHours: hours}, nil
	}
}

// Location returns the *time.Location naive strings are interpreted in.
func (p Policy) Location() *time.Location {
	switch p.Kind {
	case PolicyUTC:
		return time.UTC
	case PolicyOffset:
		name := fmt.Sprintf("UTC%+d", p.OffsetHours)
		return time.FixedZone(name, p.OffsetHours*3600)
	default:
		return time.Local
	}
}
