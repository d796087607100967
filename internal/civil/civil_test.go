package civil

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-09")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if d.Year != 2026 || d.Month != time.March || d.Day != 9 {
		t.Fatalf("unexpected date: %+v", d)
	}
	if d.String() != "2026-03-09" {
		t.Fatalf("string: %s", d.String())
	}
	if d.Weekday() != time.Monday {
		t.Fatalf("weekday: %s", d.Weekday())
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, value := range []string{"", "2026-3-9", "09-03-2026", "2026-13-01", "garbage"} {
		if _, err := ParseDate(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("08:30")
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	if tod.Hour != 8 || tod.Minute != 30 {
		t.Fatalf("unexpected time: %+v", tod)
	}
	if tod.String() != "08:30" {
		t.Fatalf("string: %s", tod.String())
	}
}

func TestParseTimeOfDay_Invalid(t *testing.T) {
	for _, value := range []string{"", "8am", "25:00", "08:60"} {
		if _, err := ParseTimeOfDay(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestTimeOfDayBefore(t *testing.T) {
	a := TimeOfDay{Hour: 8, Minute: 0}
	b := TimeOfDay{Hour: 8, Minute: 30}
	c := TimeOfDay{Hour: 22, Minute: 0}
	if !a.Before(b) || !b.Before(c) {
		t.Fatal("expected 08:00 < 08:30 < 22:00")
	}
	if b.Before(a) || a.Before(a) {
		t.Fatal("Before is strict")
	}
}

func TestOn_UsesLocation(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	d := Date{Year: 2026, Month: time.March, Day: 9}
	open := TimeOfDay{Hour: 8, Minute: 0}

	instant := open.On(d, jakarta)
	if instant.Hour() != 8 {
		t.Fatalf("wall clock hour: %d", instant.Hour())
	}
	// Jakarta is UTC+7, so 08:00 local is 01:00 UTC.
	if got := instant.UTC().Hour(); got != 1 {
		t.Fatalf("utc hour: %d", got)
	}
}
