// internal/api/payments/handlers.go
package payments

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fieldbook-app/fieldbook/internal/api/apiutil"
	"github.com/fieldbook-app/fieldbook/internal/booking"
	paymentsvc "github.com/fieldbook-app/fieldbook/internal/payments"
)

var (
	service     *booking.Service
	serviceOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(svc *booking.Service) {
	if svc == nil {
		return
	}
	serviceOnce.Do(func() {
		service = svc
	})
}

// POST /api/v1/payments/notifications
//
// The provider retries notifications until it sees a 2xx, so anything already
// applied must answer 200 rather than erroring.
func HandleNotification(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := service
	if svc == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var notification paymentsvc.Notification
	if err := apiutil.DecodeJSON(r, &notification); err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(notification.Reference) == "" {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "transaction_id is required")
		return
	}

	outcome := paymentsvc.MapProviderStatus(notification.TransactionStatus, notification.FraudStatus)

	logger.Info().
		Str("order_id", notification.OrderID).
		Str("transaction_status", notification.TransactionStatus).
		Str("outcome", string(outcome)).
		Msg("Payment notification received")

	reservation, err := svc.ApplyPaymentOutcomeByRef(r.Context(), notification.Reference, outcome)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			apiutil.WriteJSONError(w, http.StatusNotFound, "unknown transaction reference")
			return
		}
		logger.Error().Err(err).Str("order_id", notification.OrderID).Msg("Failed to apply payment outcome")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "failed to apply payment outcome")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":         reservation.Status,
		"payment_status": reservation.PaymentStatus,
	}); err != nil {
		logger.Error().Err(err).Int64("reservation_id", reservation.ID).Msg("Failed to write notification response")
	}
}
