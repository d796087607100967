package bookings

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fieldbook-app/fieldbook/internal/booking"
	"github.com/fieldbook-app/fieldbook/internal/civil"
	"github.com/fieldbook-app/fieldbook/internal/ratelimit"
	"github.com/fieldbook-app/fieldbook/internal/testutil"
)

type stubGateway struct{}

func (stubGateway) OpenIntent(_ context.Context, req booking.PaymentIntentRequest) (booking.PaymentIntent, error) {
	return booking.PaymentIntent{Reference: "tok-" + req.OrderRef}, nil
}

func setupBookingsTest(t *testing.T, limiterCfg *ratelimit.Config) (*booking.Service, int64) {
	t.Helper()

	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database, "UTC")
	field := testutil.SeedField(t, database, venue.ID, 5000)
	open, _ := civil.ParseTimeOfDay("09:00")
	close, _ := civil.ParseTimeOfDay("17:00")
	testutil.SeedWeeklyHours(t, database, venue.ID, open, close)

	svc := booking.NewService(database, stubGateway{})

	var l *ratelimit.Limiter
	if limiterCfg != nil {
		l = ratelimit.New(limiterCfg)
		t.Cleanup(l.Close)
	}

	service = nil
	limiter = nil
	serviceOnce = sync.Once{}
	InitHandlers(svc, l, false)

	t.Cleanup(func() {
		service = nil
		limiter = nil
		serviceOnce = sync.Once{}
	})

	return svc, field.ID
}

func createBody(fieldID int64, start string, minutes int64) string {
	return fmt.Sprintf(`{"field_id":%d,"user_id":1,"date":"2026-09-01","start_time":"%s","duration_minutes":%d}`,
		fieldID, start, minutes)
}

func postCreate(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	HandleCreate(recorder, req)
	return recorder
}

func TestHandleCreate(t *testing.T) {
	_, fieldID := setupBookingsTest(t, nil)

	recorder := postCreate(t, createBody(fieldID, "10:00", 60))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status: %d, body: %s", recorder.Code, recorder.Body.String())
	}

	var resp reservationResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "PENDING" {
		t.Fatalf("status: %s", resp.Status)
	}
	if resp.TotalPrice != 5000 {
		t.Fatalf("total price: %d", resp.TotalPrice)
	}
	if resp.PaymentRef == "" {
		t.Fatal("payment ref missing")
	}
}

func TestHandleCreateConflict(t *testing.T) {
	_, fieldID := setupBookingsTest(t, nil)

	if code := postCreate(t, createBody(fieldID, "10:00", 60)).Code; code != http.StatusCreated {
		t.Fatalf("first create status: %d", code)
	}
	if code := postCreate(t, createBody(fieldID, "10:00", 60)).Code; code != http.StatusConflict {
		t.Fatalf("conflicting create status: %d", code)
	}
	// Back-to-back is allowed.
	if code := postCreate(t, createBody(fieldID, "11:00", 60)).Code; code != http.StatusCreated {
		t.Fatalf("back-to-back create status: %d", code)
	}
}

func TestHandleCreateValidation(t *testing.T) {
	_, fieldID := setupBookingsTest(t, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"field_id":}`, http.StatusBadRequest},
		{"missing field id", createBody(0, "10:00", 60), http.StatusBadRequest},
		{"bad date", fmt.Sprintf(`{"field_id":%d,"user_id":1,"date":"tomorrow","start_time":"10:00","duration_minutes":60}`, fieldID), http.StatusBadRequest},
		{"bad start time", fmt.Sprintf(`{"field_id":%d,"user_id":1,"date":"2026-09-01","start_time":"10am","duration_minutes":60}`, fieldID), http.StatusBadRequest},
		{"zero duration", createBody(fieldID, "10:00", 0), http.StatusBadRequest},
		{"short duration", createBody(fieldID, "10:00", 30), http.StatusBadRequest},
		{"outside hours", createBody(fieldID, "07:00", 60), http.StatusUnprocessableEntity},
		{"unknown field", createBody(9999, "10:00", 60), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := postCreate(t, tt.body).Code; code != tt.want {
				t.Fatalf("status: %d, want %d", code, tt.want)
			}
		})
	}
}

func TestHandleCreateRateLimited(t *testing.T) {
	_, fieldID := setupBookingsTest(t, &ratelimit.Config{
		CreateCooldown:     time.Minute,
		CreateMaxPerHour:   30,
		CreateMaxIPPerHour: 120,
	})

	if code := postCreate(t, createBody(fieldID, "10:00", 60)).Code; code != http.StatusCreated {
		t.Fatalf("first create status: %d", code)
	}

	recorder := postCreate(t, createBody(fieldID, "11:00", 60))
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("limited create status: %d", recorder.Code)
	}
	if recorder.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After header missing")
	}
}

func lifecycleRequest(t *testing.T, handler http.HandlerFunc, id int64, action string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/bookings/%d/%s", id, action), nil)
	req.SetPathValue("id", strconv.FormatInt(id, 10))
	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder
}

func TestHandleLifecycle(t *testing.T) {
	svc, fieldID := setupBookingsTest(t, nil)

	created, err := svc.Create(context.Background(), booking.CreateParams{
		FieldID:  fieldID,
		UserID:   1,
		Date:     civil.Date{Year: 2026, Month: time.September, Day: 1},
		Start:    civil.TimeOfDay{Hour: 10},
		Duration: time.Hour,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	recorder := lifecycleRequest(t, HandleConfirm, created.ID, "confirm")
	if recorder.Code != http.StatusOK {
		t.Fatalf("confirm status: %d, body: %s", recorder.Code, recorder.Body.String())
	}
	var resp reservationResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "CONFIRMED" {
		t.Fatalf("status after confirm: %s", resp.Status)
	}

	if code := lifecycleRequest(t, HandleConfirm, created.ID, "confirm").Code; code != http.StatusConflict {
		t.Fatalf("double confirm status: %d", code)
	}

	if code := lifecycleRequest(t, HandleComplete, created.ID, "complete").Code; code != http.StatusOK {
		t.Fatalf("complete status: %d", code)
	}

	if code := lifecycleRequest(t, HandleCancel, created.ID, "cancel").Code; code != http.StatusConflict {
		t.Fatalf("cancel completed status: %d", code)
	}
}

func TestHandleList(t *testing.T) {
	svc, fieldID := setupBookingsTest(t, nil)

	for _, hour := range []int{10, 14} {
		_, err := svc.Create(context.Background(), booking.CreateParams{
			FieldID:  fieldID,
			UserID:   1,
			Date:     civil.Date{Year: 2026, Month: time.September, Day: 1},
			Start:    civil.TimeOfDay{Hour: hour},
			Duration: time.Hour,
		})
		if err != nil {
			t.Fatalf("create at %d: %v", hour, err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/bookings?field_id=%d&date=2026-09-01", fieldID), nil)
	recorder := httptest.NewRecorder()
	HandleList(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("list status: %d, body: %s", recorder.Code, recorder.Body.String())
	}

	var listed []reservationResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("reservation count: %d", len(listed))
	}

	// No bookings on another day is an empty array, not null.
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/bookings?field_id=%d&date=2026-09-02", fieldID), nil)
	recorder = httptest.NewRecorder()
	HandleList(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("empty list status: %d", recorder.Code)
	}
	if body := strings.TrimSpace(recorder.Body.String()); body != "[]" {
		t.Fatalf("empty list body: %s", body)
	}
}

func TestHandleGet(t *testing.T) {
	svc, fieldID := setupBookingsTest(t, nil)

	created, err := svc.Create(context.Background(), booking.CreateParams{
		FieldID:  fieldID,
		UserID:   1,
		Date:     civil.Date{Year: 2026, Month: time.September, Day: 1},
		Start:    civil.TimeOfDay{Hour: 10},
		Duration: time.Hour,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", created.ID), nil)
	req.SetPathValue("id", strconv.FormatInt(created.ID, 10))
	recorder := httptest.NewRecorder()
	HandleGet(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("get status: %d", recorder.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings/9999", nil)
	req.SetPathValue("id", "9999")
	recorder = httptest.NewRecorder()
	HandleGet(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("missing reservation status: %d", recorder.Code)
	}
}
