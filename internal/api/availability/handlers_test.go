package availability

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fieldbook-app/fieldbook/internal/booking"
	"github.com/fieldbook-app/fieldbook/internal/civil"
	appdb "github.com/fieldbook-app/fieldbook/internal/db"
	"github.com/fieldbook-app/fieldbook/internal/testutil"
)

type stubGateway struct{}

func (stubGateway) OpenIntent(context.Context, booking.PaymentIntentRequest) (booking.PaymentIntent, error) {
	return booking.PaymentIntent{Reference: "tok-1"}, nil
}

func setupAvailabilityTest(t *testing.T) (*appdb.DB, *booking.Service, int64) {
	t.Helper()

	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database, "UTC")
	field := testutil.SeedField(t, database, venue.ID, 5000)
	open, _ := civil.ParseTimeOfDay("09:00")
	close, _ := civil.ParseTimeOfDay("12:00")
	testutil.SeedWeeklyHours(t, database, venue.ID, open, close)

	svc := booking.NewService(database, stubGateway{})

	service = nil
	serviceOnce = sync.Once{}
	InitHandlers(svc)

	t.Cleanup(func() {
		service = nil
		serviceOnce = sync.Once{}
	})

	return database, svc, field.ID
}

func getAvailability(t *testing.T, query string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability?"+query, nil)
	recorder := httptest.NewRecorder()
	HandleAvailability(recorder, req)
	return recorder
}

func TestHandleAvailability(t *testing.T) {
	_, svc, fieldID := setupAvailabilityTest(t)

	recorder := getAvailability(t, fmt.Sprintf("field_id=%d&date=2026-09-01", fieldID))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d, body: %s", recorder.Code, recorder.Body.String())
	}

	var resp availabilityResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Slots) != 3 {
		t.Fatalf("slot count: %d", len(resp.Slots))
	}
	if resp.Slots[0].StartTime != "09:00" || resp.Slots[0].EndTime != "10:00" {
		t.Fatalf("first slot: %+v", resp.Slots[0])
	}

	// Book one slot and check it disappears.
	_, err := svc.Create(context.Background(), booking.CreateParams{
		FieldID:  fieldID,
		UserID:   1,
		Date:     civil.Date{Year: 2026, Month: time.September, Day: 1},
		Start:    civil.TimeOfDay{Hour: 10},
		Duration: time.Hour,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	recorder = getAvailability(t, fmt.Sprintf("field_id=%d&date=2026-09-01", fieldID))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Slots) != 2 {
		t.Fatalf("slot count after booking: %d", len(resp.Slots))
	}
	for _, slot := range resp.Slots {
		if slot.StartTime == "10:00" {
			t.Fatal("booked slot still listed")
		}
	}
}

func TestHandleAvailabilityClosedDayIsEmpty(t *testing.T) {
	database, _, fieldID := setupAvailabilityTest(t)

	date, _ := civil.ParseDate("2026-09-01")
	_, err := database.Queries.UpsertScheduleOverride(context.Background(), appdb.UpsertScheduleOverrideParams{
		FieldID:  fieldID,
		Date:     date,
		IsClosed: true,
	})
	if err != nil {
		t.Fatalf("seed override: %v", err)
	}

	// A closed day is an empty list, not an error and not null.
	recorder := getAvailability(t, fmt.Sprintf("field_id=%d&date=2026-09-01", fieldID))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}

	var resp availabilityResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Slots == nil {
		t.Fatal("slots must encode as an array, not null")
	}
	if len(resp.Slots) != 0 {
		t.Fatalf("slot count on closed day: %d", len(resp.Slots))
	}
}

func TestHandleAvailabilityValidation(t *testing.T) {
	_, _, fieldID := setupAvailabilityTest(t)

	if code := getAvailability(t, "date=2026-09-01").Code; code != http.StatusBadRequest {
		t.Fatalf("missing field_id status: %d", code)
	}
	if code := getAvailability(t, fmt.Sprintf("field_id=%d&date=yesterday", fieldID)).Code; code != http.StatusBadRequest {
		t.Fatalf("bad date status: %d", code)
	}
	if code := getAvailability(t, "field_id=9999&date=2026-09-01").Code; code != http.StatusNotFound {
		t.Fatalf("unknown field status: %d", code)
	}
}
