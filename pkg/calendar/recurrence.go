package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const (
	// MaxPlanOccurrences caps how many windows one plan may expand into.
	MaxPlanOccurrences = 200
	defaultPlanHorizon = 365 * 24 * time.Hour
)

// Plan is a recurring maintenance schedule, e.g. "FREQ=MONTHLY;INTERVAL=3".
type Plan struct {
	RRule    string
	Start    time.Time
	Until    time.Time
	Duration time.Duration
}

// ExpandPlan returns the windows of p between Start and Until inclusive. A
// zero Until means one year after Start. The second result reports whether
// the expansion was truncated at MaxPlanOccurrences.
func ExpandPlan(p Plan) ([]Range, bool, error) {
	if p.Start.IsZero() {
		return nil, false, errors.New("plan start is required")
	}
	if p.Duration <= 0 {
		return nil, false, errors.New("plan duration must be positive")
	}
	until := p.Until
	if until.IsZero() {
		until = p.Start.Add(defaultPlanHorizon)
	}
	if until.Before(p.Start) {
		return nil, false, errors.New("plan until is before start")
	}

	rule, err := rrule.StrToRRule(strings.TrimPrefix(strings.TrimSpace(p.RRule), "RRULE:"))
	if err != nil {
		return nil, false, fmt.Errorf("parse rrule: %w", err)
	}
	rule.DTStart(p.Start)

	starts := rule.Between(p.Start, until, true)
	truncated := false
	if len(starts) > MaxPlanOccurrences {
		starts = starts[:MaxPlanOccurrences]
		truncated = true
	}

	out := make([]Range, 0, len(starts))
	for _, s := range starts {
		out = append(out, Range{Start: s, End: s.Add(p.Duration)})
	}
	return out, truncated, nil
}
