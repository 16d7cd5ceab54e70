package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimeRange is a half-open [Start, End) interval.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func NewTimeRange(start time.Time, d time.Duration) TimeRange {
	return TimeRange{Start: start, End: start.Add(d)}
}

// Literal renders the range as the bracketed form the store persists,
// e.g. `["2026-09-01T18:00:00Z","2026-09-01T19:00:00Z")`.
func (r TimeRange) Literal() string {
	return fmt.Sprintf("[%q,%q)", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

// pg renders tstzrange bounds without the T separator and with a short
// numeric offset.
const pgTimeLayout = "2006-01-02 15:04:05.999999999-07"

// ParseTimeRange parses a bracketed range literal as returned by the store
// (`["start","end")`), accepting both RFC 3339 and postgres timestamp
// rendering for the bounds.
func ParseTimeRange(s string) (TimeRange, error) {
	raw := strings.TrimSpace(s)
	if len(raw) < 2 {
		return TimeRange{}, fmt.Errorf("malformed range literal %q", s)
	}
	if (raw[0] != '[' && raw[0] != '(') || (raw[len(raw)-1] != ')' && raw[len(raw)-1] != ']') {
		return TimeRange{}, fmt.Errorf("malformed range literal %q", s)
	}
	parts := strings.SplitN(raw[1:len(raw)-1], ",", 2)
	if len(parts) != 2 {
		return TimeRange{}, fmt.Errorf("malformed range literal %q", s)
	}
	start, err := parseBound(parts[0])
	if err != nil {
		return TimeRange{}, fmt.Errorf("range start: %w", err)
	}
	end, err := parseBound(parts[1])
	if err != nil {
		return TimeRange{}, fmt.Errorf("range end: %w", err)
	}
	return TimeRange{Start: start, End: end}, nil
}

func parseBound(s string) (time.Time, error) {
	b := strings.Trim(strings.TrimSpace(s), `"`)
	if t, err := time.Parse(time.RFC3339, b); err == nil {
		return t, nil
	}
	if t, err := time.Parse(pgTimeLayout, b); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05-07", b)
}
