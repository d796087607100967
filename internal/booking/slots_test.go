package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/fieldbook-app/fieldbook/internal/civil"
)

func testWindow(t *testing.T, open, close string) *OperatingWindow {
	t.Helper()

	openAt, err := civil.ParseTimeOfDay(open)
	if err != nil {
		t.Fatalf("parse open: %v", err)
	}
	closeAt, err := civil.ParseTimeOfDay(close)
	if err != nil {
		t.Fatalf("parse close: %v", err)
	}
	return &OperatingWindow{
		Date:     civil.Date{Year: 2026, Month: time.September, Day: 1},
		OpenAt:   openAt,
		CloseAt:  closeAt,
		Location: time.UTC,
	}
}

func TestSlotsFullDay(t *testing.T) {
	slots, err := Slots(testWindow(t, "09:00", "17:00"), time.Hour)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(slots) != 8 {
		t.Fatalf("slot count: got %d, want 8", len(slots))
	}
	if got := slots[0].Start.Format("15:04"); got != "09:00" {
		t.Fatalf("first slot start: %s", got)
	}
	if got := slots[7].End.Format("15:04"); got != "17:00" {
		t.Fatalf("last slot end: %s", got)
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].Start.Equal(slots[i-1].End) {
			t.Fatalf("slots %d and %d are not contiguous", i-1, i)
		}
	}
}

func TestSlotsDropsPartialTrailingSlot(t *testing.T) {
	slots, err := Slots(testWindow(t, "09:00", "10:30"), time.Hour)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("slot count: got %d, want 1", len(slots))
	}
	if got := slots[0].End.Format("15:04"); got != "10:00" {
		t.Fatalf("slot end: %s", got)
	}
}

func TestSlotsWindowShorterThanSlot(t *testing.T) {
	slots, err := Slots(testWindow(t, "09:00", "09:30"), time.Hour)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("slot count: got %d, want 0", len(slots))
	}
}

func TestSlotsClosedDay(t *testing.T) {
	slots, err := Slots(nil, time.Hour)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if slots != nil {
		t.Fatalf("closed day slots: %v", slots)
	}
}

func TestSlotsInvalidSlotLength(t *testing.T) {
	var configErr ConfigurationError
	if _, err := Slots(testWindow(t, "09:00", "17:00"), 0); !errors.As(err, &configErr) {
		t.Fatalf("zero slot length error: %v", err)
	}
	if _, err := Slots(testWindow(t, "09:00", "17:00"), -time.Hour); !errors.As(err, &configErr) {
		t.Fatalf("negative slot length error: %v", err)
	}
}

func TestSlotsHalfHourGranularity(t *testing.T) {
	slots, err := Slots(testWindow(t, "09:00", "11:00"), 30*time.Minute)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("slot count: got %d, want 4", len(slots))
	}
}

func TestSlotsUseVenueZone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	w := testWindow(t, "09:00", "12:00")
	w.Location = loc

	slots, err := Slots(w, time.Hour)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("slot count: got %d, want 3", len(slots))
	}
	// Wall-clock labels stay 09:00 local regardless of zone offset.
	if got := slots[0].Start.Format("15:04"); got != "09:00" {
		t.Fatalf("first slot start: %s", got)
	}
	if slots[0].Start.Location() != loc {
		t.Fatalf("slot location: %v", slots[0].Start.Location())
	}
}
