package payments

// NOTE: Tests cannot use t.Parallel() due to shared package state.

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
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

func setupNotificationTest(t *testing.T) (*booking.Service, appdb.Reservation) {
	t.Helper()

	database := testutil.NewTestDB(t)
	venue := testutil.SeedVenue(t, database, "UTC")
	field := testutil.SeedField(t, database, venue.ID, 5000)
	open, _ := civil.ParseTimeOfDay("09:00")
	close, _ := civil.ParseTimeOfDay("17:00")
	testutil.SeedWeeklyHours(t, database, venue.ID, open, close)

	svc := booking.NewService(database, stubGateway{})
	created, err := svc.Create(context.Background(), booking.CreateParams{
		FieldID:  field.ID,
		UserID:   1,
		Date:     civil.Date{Year: 2026, Month: time.September, Day: 1},
		Start:    civil.TimeOfDay{Hour: 10},
		Duration: time.Hour,
	})
	if err != nil {
		t.Fatalf("create reservation: %v", err)
	}

	service = nil
	serviceOnce = sync.Once{}
	InitHandlers(svc)

	t.Cleanup(func() {
		service = nil
		serviceOnce = sync.Once{}
	})

	return svc, created
}

func postNotification(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/notifications", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	HandleNotification(recorder, req)
	return recorder
}

func notificationBody(ref, status string) string {
	return fmt.Sprintf(`{"transaction_id":"%s","order_id":"order-1","transaction_status":"%s","fraud_status":"accept"}`, ref, status)
}

func TestHandleNotificationSettlement(t *testing.T) {
	svc, created := setupNotificationTest(t)

	recorder := postNotification(t, notificationBody(created.PaymentRef, "settlement"))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d, body: %s", recorder.Code, recorder.Body.String())
	}

	updated, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if updated.Status != "CONFIRMED" || updated.PaymentStatus != "PAID" {
		t.Fatalf("after settlement: %s/%s", updated.Status, updated.PaymentStatus)
	}

	// Provider retries must stay 200.
	if code := postNotification(t, notificationBody(created.PaymentRef, "settlement")).Code; code != http.StatusOK {
		t.Fatalf("retry status: %d", code)
	}
}

func TestHandleNotificationExpire(t *testing.T) {
	svc, created := setupNotificationTest(t)

	recorder := postNotification(t, notificationBody(created.PaymentRef, "expire"))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}

	updated, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if updated.Status != "CANCELLED" || updated.PaymentStatus != "EXPIRED" {
		t.Fatalf("after expiry: %s/%s", updated.Status, updated.PaymentStatus)
	}
}

func TestHandleNotificationLateEventIgnored(t *testing.T) {
	svc, created := setupNotificationTest(t)

	if code := postNotification(t, notificationBody(created.PaymentRef, "settlement")).Code; code != http.StatusOK {
		t.Fatalf("settlement status: %d", code)
	}
	// A late expiry after settlement is acknowledged but changes nothing.
	if code := postNotification(t, notificationBody(created.PaymentRef, "expire")).Code; code != http.StatusOK {
		t.Fatalf("late expire status: %d", code)
	}

	updated, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if updated.Status != "CONFIRMED" {
		t.Fatalf("after late expire: %s", updated.Status)
	}
}

func TestHandleNotificationValidation(t *testing.T) {
	setupNotificationTest(t)

	if code := postNotification(t, `{"transaction_id":}`).Code; code != http.StatusBadRequest {
		t.Fatalf("malformed body status: %d", code)
	}
	if code := postNotification(t, notificationBody("", "settlement")).Code; code != http.StatusBadRequest {
		t.Fatalf("missing ref status: %d", code)
	}
	if code := postNotification(t, notificationBody("no-such-ref", "settlement")).Code; code != http.StatusNotFound {
		t.Fatalf("unknown ref status: %d", code)
	}
}
