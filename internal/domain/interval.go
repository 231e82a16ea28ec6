package domain

import "time"

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Valid reports whether End is strictly after Start.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps reports whether candidate and existing share any instant. Intervals that only touch
// (one ends exactly when the other starts) do not overlap.
//
// Equivalent to: candidate starts inside existing, candidate ends inside existing,
// or candidate contains existing.
func Overlaps(candidate, existing Interval) bool {
	return candidate.Start.Before(existing.End) && existing.Start.Before(candidate.End)
}

// OverlapsAny returns true if candidate overlaps at least one of existing.
func OverlapsAny(candidate Interval, existing []Interval) bool {
	for _, e := range existing {
		if Overlaps(candidate, e) {
			return true
		}
	}
	return false
}
