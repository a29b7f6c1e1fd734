package timeparse

import (
	"strings"
	"time"

	"github.com/noteledger/noteledger/internal/utils"
	log "github.com/sirupsen/logrus"
)

// absoluteLayouts carry their own offset (or Z) and ignore the policy.
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
}

// naiveLayouts are resolved in the policy's location.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Outcome is the result of normalizing one date string. A malformed or empty
// input never fails the caller: it falls back to the current time, and the
// fallback is explicit so callers and tests can branch on it.
type Outcome struct {
	Time     time.Time
	FellBack bool
	Reason   string
}

// Normalizer parses date strings of mixed precision into absolute instants
// under a timezone policy.
type Normalizer struct {
	policy Policy
	clock  utils.Clock
}

func NewNormalizer(policy Policy, clock utils.Clock) *Normalizer {
	return &Normalizer{policy: policy, clock: clock}
}

// Parse turns text into an absolute instant. It never returns an error:
// unparsable input yields a fallback Outcome carrying the current time.
func (n *Normalizer) Parse(text string) Outcome {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Outcome{Time: n.clock.Now(), FellBack: true, Reason: "empty value"}
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return Outcome{Time: t}
		}
	}

	loc := n.policy.Location()
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return Outcome{Time: t}
		}
	}

	log.Warnf("unparsable date %q, falling back to current time", text)
	return Outcome{Time: n.clock.Now(), FellBack: true, Reason: "unparsable date: " + trimmed}
}

// Format emits a policy-independent explicit-offset representation, so a
// round trip through storage never re-introduces ambiguity.
func (n *Normalizer) Format(t time.Time) string {
	return t.Format(time.RFC3339)
}
