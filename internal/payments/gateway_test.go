package payments

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldbook-app/fieldbook/internal/booking"
)

func TestOpenIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: %s", r.Method)
		}
		if r.URL.Path != "/v2/charges" {
			t.Errorf("path: %s", r.URL.Path)
		}
		username, _, ok := r.BasicAuth()
		if !ok || username != "server-key" {
			t.Errorf("basic auth username: %q", username)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok-123"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "server-key", time.Second)
	intent, err := client.OpenIntent(context.Background(), booking.PaymentIntentRequest{
		ReservationID: 1,
		OrderRef:      "order-1",
		Amount:        5000,
	})
	if err != nil {
		t.Fatalf("open intent: %v", err)
	}
	if intent.Reference != "tok-123" {
		t.Fatalf("reference: %s", intent.Reference)
	}
}

func TestOpenIntentTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"token":"tok-123"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "server-key", 20*time.Millisecond)
	_, err := client.OpenIntent(context.Background(), booking.PaymentIntentRequest{OrderRef: "order-1"})
	if !errors.Is(err, booking.ErrGatewayTimeout) {
		t.Fatalf("timeout error: %v", err)
	}
}

func TestOpenIntentProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "server key invalid", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key", time.Second)
	if _, err := client.OpenIntent(context.Background(), booking.PaymentIntentRequest{OrderRef: "order-1"}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestOpenIntentMissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status_message":"declined"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "server-key", time.Second)
	if _, err := client.OpenIntent(context.Background(), booking.PaymentIntentRequest{OrderRef: "order-1"}); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestMapProviderStatus(t *testing.T) {
	tests := []struct {
		transactionStatus string
		fraudStatus       string
		want              booking.Outcome
	}{
		{"capture", "accept", booking.OutcomeCaptured},
		{"capture", "challenge", booking.OutcomeStillPending},
		{"settlement", "", booking.OutcomeCaptured},
		{"deny", "", booking.OutcomeDenied},
		{"cancel", "", booking.OutcomeExpired},
		{"expire", "", booking.OutcomeExpired},
		{"pending", "", booking.OutcomeStillPending},
		{"refund", "", booking.OutcomeStillPending},
		{"", "", booking.OutcomeStillPending},
	}

	for _, tt := range tests {
		got := MapProviderStatus(tt.transactionStatus, tt.fraudStatus)
		if got != tt.want {
			t.Fatalf("MapProviderStatus(%q, %q) = %s, want %s", tt.transactionStatus, tt.fraudStatus, got, tt.want)
		}
	}
}
