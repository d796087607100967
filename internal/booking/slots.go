package booking

import (
	"time"

	"github.com/fieldbook-app/fieldbook/internal/civil"
)

// OperatingWindow is the effective open window of a field on one date,
// resolved from the weekly schedule and any override. A nil *OperatingWindow
// means the field is closed that day.
type OperatingWindow struct {
	Date     civil.Date
	OpenAt   civil.TimeOfDay
	CloseAt  civil.TimeOfDay
	Location *time.Location
}

// OpenInstant returns the absolute opening instant in the venue's zone.
func (w OperatingWindow) OpenInstant() time.Time {
	return w.OpenAt.On(w.Date, w.Location)
}

// CloseInstant returns the absolute closing instant in the venue's zone.
func (w OperatingWindow) CloseInstant() time.Time {
	return w.CloseAt.On(w.Date, w.Location)
}

// Interval returns the window as a half-open interval of instants.
func (w OperatingWindow) Interval() Interval {
	return Interval{Start: w.OpenInstant(), End: w.CloseInstant()}
}

// Slots enumerates the candidate bookable intervals of exactly slotLength
// within the window, starting at the opening time and stepping by slotLength.
// A slot that would spill past closing is dropped entirely, never truncated.
// A nil window (closed day) yields no slots. Pure function of its inputs.
func Slots(w *OperatingWindow, slotLength time.Duration) ([]Interval, error) {
	if slotLength <= 0 {
		return nil, ConfigurationError{Reason: "slot length must be positive"}
	}
	if w == nil {
		return nil, nil
	}

	open := w.OpenInstant()
	close := w.CloseInstant()

	var slots []Interval
	for start := open; !start.Add(slotLength).After(close); start = start.Add(slotLength) {
		slots = append(slots, Interval{Start: start, End: start.Add(slotLength)})
	}
	return slots, nil
}
