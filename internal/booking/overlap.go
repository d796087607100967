package booking

import "time"

// Interval is a half-open time interval [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether a and b share any instant. Half-open semantics:
// back-to-back intervals where a.End == b.Start are compatible.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// AnyOverlap reports whether candidate overlaps any member of existing.
// Reservations per field per day stay small, so a linear scan is enough.
func AnyOverlap(candidate Interval, existing []Interval) bool {
	for _, e := range existing {
		if Overlaps(candidate, e) {
			return true
		}
	}
	return false
}
