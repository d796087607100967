// Package payments is the HTTP client for the external payment provider and
// the translation layer between the provider's status vocabulary and the
// booking lifecycle's outcomes.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fieldbook-app/fieldbook/internal/booking"
)

// Client talks to the payment provider's REST API. It implements
// booking.PaymentGateway.
type Client struct {
	baseURL    string
	serverKey  string
	httpClient *http.Client
}

func NewClient(baseURL, serverKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		serverKey:  serverKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type intentRequest struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type intentResponse struct {
	Token         string `json:"token"`
	StatusMessage string `json:"status_message"`
}

// OpenIntent registers a charge intent with the provider and returns its
// reference token. A timed-out call returns an error wrapping
// booking.ErrGatewayTimeout; the caller decides whether the reservation is
// worth retrying.
func (c *Client) OpenIntent(ctx context.Context, req booking.PaymentIntentRequest) (booking.PaymentIntent, error) {
	body, err := json.Marshal(intentRequest{
		OrderID:     req.OrderRef,
		GrossAmount: req.Amount,
	})
	if err != nil {
		return booking.PaymentIntent{}, fmt.Errorf("encode intent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/charges", bytes.NewReader(body))
	if err != nil {
		return booking.PaymentIntent{}, fmt.Errorf("build intent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.serverKey, "")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return booking.PaymentIntent{}, fmt.Errorf("open intent for order %s: %w", req.OrderRef, booking.ErrGatewayTimeout)
		}
		return booking.PaymentIntent{}, fmt.Errorf("open intent for order %s: %w", req.OrderRef, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return booking.PaymentIntent{}, fmt.Errorf("open intent for order %s: provider returned %s", req.OrderRef, resp.Status)
	}

	var decoded intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return booking.PaymentIntent{}, fmt.Errorf("decode intent response: %w", err)
	}
	if decoded.Token == "" {
		return booking.PaymentIntent{}, fmt.Errorf("open intent for order %s: provider returned no token (%s)", req.OrderRef, decoded.StatusMessage)
	}

	log.Ctx(ctx).Debug().
		Int64("reservation_id", req.ReservationID).
		Str("order_ref", req.OrderRef).
		Msg("Payment intent opened")

	return booking.PaymentIntent{Reference: decoded.Token}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}

// Notification is the provider's webhook payload. Reference carries the token
// returned when the intent was opened.
type Notification struct {
	Reference         string `json:"transaction_id"`
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
}

// MapProviderStatus folds the provider's transaction and fraud statuses into
// the booking vocabulary. Unknown statuses map to StillPending so an
// unrecognized event can never move a reservation.
func MapProviderStatus(transactionStatus, fraudStatus string) booking.Outcome {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "challenge" {
			return booking.OutcomeStillPending
		}
		return booking.OutcomeCaptured
	case "settlement":
		return booking.OutcomeCaptured
	case "deny":
		return booking.OutcomeDenied
	case "cancel", "expire":
		return booking.OutcomeExpired
	default:
		return booking.OutcomeStillPending
	}
}
