// Package civil provides zone-naive calendar date and wall-clock time values.
//
// Schedules are entered as wall-clock times ("the venue opens at 08:00") and
// only become absolute instants when combined with a calendar date and the
// venue's IANA time zone. Keeping the two representations as distinct types
// makes that combination a single explicit operation instead of scattered
// string formatting.
package civil

import (
	"fmt"
	"time"
)

// Date is a calendar date without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: must be YYYY-MM-DD", value)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	year, month, day := t.Date()
	return Date{Year: year, Month: month, Day: day}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Weekday returns the day of week of d. A calendar date falls on the same
// weekday in every zone, so no location is needed.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// TimeOfDay is a wall-clock time without a date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

const timeLayout = "15:04"

// ParseTimeOfDay parses a wall-clock time in HH:MM form.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time %q: must be HH:MM", value)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Before reports whether t is earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	if t.Hour != other.Hour {
		return t.Hour < other.Hour
	}
	return t.Minute < other.Minute
}

// Minutes returns the offset of t from midnight in minutes.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// On combines t with a calendar date in the given location to produce an
// absolute instant. This is the only place wall-clock schedule values become
// instants; callers must pass the venue's zone, never assume UTC.
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, loc)
}
