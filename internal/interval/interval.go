// Package interval implements the pure time-interval algebra behind
// availability resolution: overlap tests, buffered busy checks and
// clipping candidate slots to venue operating hours.
package interval

import (
	"time"

	"github.com/tablemeet/venue-scheduler/internal/domain"
)

// DefaultBuffer is the margin applied around a proposed meeting so neither
// party ends up with back-to-back commitments.
const DefaultBuffer = 15 * time.Minute

// Overlaps reports whether a and b intersect. With inclusive set, touching
// endpoints count as an overlap; otherwise the ranges are treated as
// half-open.
func Overlaps(a, b domain.TimeRange, inclusive bool) bool {
	if inclusive {
		return !a.Start.After(b.End) && !b.Start.After(a.End)
	}
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// IsBusy expands [start, start+d) by buffer on both sides and reports
// whether the expanded range touches any conflict, inclusively. A zero or
// negative buffer means no expansion.
func IsBusy(start time.Time, d time.Duration, conflicts []domain.TimeRange, buffer time.Duration) bool {
	if buffer < 0 {
		buffer = 0
	}
	padded := domain.TimeRange{
		Start: start.Add(-buffer),
		End:   start.Add(d).Add(buffer),
	}
	for _, c := range conflicts {
		if Overlaps(padded, c, true) {
			return true
		}
	}
	return false
}

// ClipToHours drops candidate starts that would place any part of a
// d-long meeting outside the [opens, closes) window.
func ClipToHours(slots []time.Time, d time.Duration, opens, closes time.Time) []time.Time {
	var kept []time.Time
	for _, s := range slots {
		if s.Before(opens) {
			continue
		}
		if s.Add(d).After(closes) {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// HourlyStarts synthesizes one candidate per whole hour inside
// [opens, closes), keeping only starts that fit a d-long meeting.
func HourlyStarts(opens, closes time.Time, d time.Duration) []time.Time {
	first := time.Date(opens.Year(), opens.Month(), opens.Day(), opens.Hour(), 0, 0, 0, opens.Location())
	if first.Before(opens) {
		first = first.Add(time.Hour)
	}
	var slots []time.Time
	for s := first; !s.Add(d).After(closes); s = s.Add(time.Hour) {
		slots = append(slots, s)
	}
	return slots
}
