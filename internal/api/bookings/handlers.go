// internal/api/bookings/handlers.go
package bookings

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fieldbook-app/fieldbook/internal/api/apiutil"
	"github.com/fieldbook-app/fieldbook/internal/booking"
	"github.com/fieldbook-app/fieldbook/internal/civil"
	appdb "github.com/fieldbook-app/fieldbook/internal/db"
	"github.com/fieldbook-app/fieldbook/internal/ratelimit"
)

var (
	service     *booking.Service
	limiter     *ratelimit.Limiter
	trustProxy  bool
	serviceOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
// A nil limiter disables rate limiting.
func InitHandlers(svc *booking.Service, l *ratelimit.Limiter, trustProxyHeaders bool) {
	if svc == nil {
		return
	}
	serviceOnce.Do(func() {
		service = svc
		limiter = l
		trustProxy = trustProxyHeaders
	})
}

type createRequest struct {
	FieldID         int64  `json:"field_id"`
	UserID          int64  `json:"user_id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int64  `json:"duration_minutes"`
}

type reservationResponse struct {
	ID            int64  `json:"id"`
	FieldID       int64  `json:"field_id"`
	UserID        int64  `json:"user_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	TotalPrice    int64  `json:"total_price"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	PaymentRef    string `json:"payment_ref,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toResponse(r appdb.Reservation) reservationResponse {
	return reservationResponse{
		ID:            r.ID,
		FieldID:       r.FieldID,
		UserID:        r.UserID,
		Date:          r.Date.String(),
		StartTime:     r.StartAt.UTC().Format(time.RFC3339),
		EndTime:       r.EndAt.UTC().Format(time.RFC3339),
		TotalPrice:    r.TotalPrice,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		PaymentRef:    r.PaymentRef,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// POST /api/v1/bookings
func HandleCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := service
	if svc == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req createRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FieldID <= 0 {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "field_id must be greater than 0")
		return
	}
	if req.UserID <= 0 {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "user_id must be greater than 0")
		return
	}

	date, err := civil.ParseDate(req.Date)
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
		return
	}
	start, err := civil.ParseTimeOfDay(req.StartTime)
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "start_time must be in HH:MM format")
		return
	}
	if req.DurationMinutes <= 0 {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "duration_minutes must be greater than 0")
		return
	}

	if limiter != nil {
		ip := ratelimit.GetClientIP(r, trustProxy)
		if result := limiter.CheckCreate(req.UserID, ip); !result.Allowed {
			ratelimit.LogRateLimitExceeded(req.UserID, ip, result.Reason)
			w.Header().Set("Retry-After", retryAfterSeconds(result.RetryAfter))
			apiutil.WriteJSONError(w, http.StatusTooManyRequests, "too many booking attempts")
			return
		}
		limiter.RecordCreate(req.UserID, ip)
	}

	created, err := svc.Create(r.Context(), booking.CreateParams{
		FieldID:  req.FieldID,
		UserID:   req.UserID,
		Date:     date,
		Start:    start,
		Duration: time.Duration(req.DurationMinutes) * time.Minute,
	})
	if err != nil {
		if errors.Is(err, booking.ErrGatewayTimeout) {
			// Reservation exists and holds its slot; only the payment intent
			// is missing. 202 tells the client to retry the intent.
			logger.Warn().Int64("reservation_id", created.ID).Msg("Booking created without payment intent")
			writeReservation(w, r, http.StatusAccepted, created)
			return
		}
		writeBookingError(w, r, err)
		return
	}

	writeReservation(w, r, http.StatusCreated, created)
}

// GET /api/v1/bookings?field_id={id}&date={YYYY-MM-DD}
func HandleList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := service
	if svc == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	fieldID, err := apiutil.ParsePositiveInt64Field(r.URL.Query().Get("field_id"), "field_id")
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := civil.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
		return
	}

	reservations, err := svc.ListByFieldDate(r.Context(), fieldID, date)
	if err != nil {
		writeBookingError(w, r, err)
		return
	}

	resp := make([]reservationResponse, 0, len(reservations))
	for _, reservation := range reservations {
		resp = append(resp, toResponse(reservation))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("field_id", fieldID).Msg("Failed to write reservations response")
	}
}

// GET /api/v1/bookings/{id}
func HandleGet(w http.ResponseWriter, r *http.Request) {
	svc, id, ok := serviceAndID(w, r)
	if !ok {
		return
	}

	reservation, err := svc.Get(r.Context(), id)
	if err != nil {
		writeBookingError(w, r, err)
		return
	}
	writeReservation(w, r, http.StatusOK, reservation)
}

// POST /api/v1/bookings/{id}/cancel
func HandleCancel(w http.ResponseWriter, r *http.Request) {
	svc, id, ok := serviceAndID(w, r)
	if !ok {
		return
	}

	reservation, err := svc.Cancel(r.Context(), id)
	if err != nil {
		writeBookingError(w, r, err)
		return
	}
	writeReservation(w, r, http.StatusOK, reservation)
}

// POST /api/v1/bookings/{id}/confirm
func HandleConfirm(w http.ResponseWriter, r *http.Request) {
	svc, id, ok := serviceAndID(w, r)
	if !ok {
		return
	}

	reservation, err := svc.Confirm(r.Context(), id)
	if err != nil {
		writeBookingError(w, r, err)
		return
	}
	writeReservation(w, r, http.StatusOK, reservation)
}

// POST /api/v1/bookings/{id}/complete
func HandleComplete(w http.ResponseWriter, r *http.Request) {
	svc, id, ok := serviceAndID(w, r)
	if !ok {
		return
	}

	reservation, err := svc.Complete(r.Context(), id)
	if err != nil {
		writeBookingError(w, r, err)
		return
	}
	writeReservation(w, r, http.StatusOK, reservation)
}

// POST /api/v1/bookings/{id}/payment-intent
func HandleOpenPaymentIntent(w http.ResponseWriter, r *http.Request) {
	svc, id, ok := serviceAndID(w, r)
	if !ok {
		return
	}

	reservation, err := svc.OpenPaymentIntent(r.Context(), id)
	if err != nil {
		if errors.Is(err, booking.ErrGatewayTimeout) {
			writeReservation(w, r, http.StatusAccepted, reservation)
			return
		}
		writeBookingError(w, r, err)
		return
	}
	writeReservation(w, r, http.StatusOK, reservation)
}

func serviceAndID(w http.ResponseWriter, r *http.Request) (*booking.Service, int64, bool) {
	logger := log.Ctx(r.Context())

	svc := service
	if svc == nil {
		logger.Error().Msg("Booking service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, 0, false
	}

	id, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return nil, 0, false
	}
	return svc, id, true
}

func writeReservation(w http.ResponseWriter, r *http.Request, status int, reservation appdb.Reservation) {
	if err := apiutil.WriteJSON(w, status, toResponse(reservation)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("reservation_id", reservation.ID).Msg("Failed to write reservation response")
	}
}

func writeBookingError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	var (
		conflictErr   booking.ConflictError
		transitionErr booking.InvalidTransitionError
		configErr     booking.ConfigurationError
	)
	switch {
	case errors.Is(err, booking.ErrNotFound):
		apiutil.WriteJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, booking.ErrInvalidDuration):
		apiutil.WriteJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrOutsideHours):
		apiutil.WriteJSONError(w, http.StatusUnprocessableEntity, "requested time is outside operating hours")
	case errors.Is(err, booking.ErrIntentGraceExpired):
		apiutil.WriteJSONError(w, http.StatusConflict, "payment intent window expired, book again")
	case errors.Is(err, booking.ErrIntentNotPending):
		apiutil.WriteJSONError(w, http.StatusConflict, "reservation is no longer pending payment")
	case errors.As(err, &conflictErr):
		apiutil.WriteJSONError(w, http.StatusConflict, conflictErr.Error())
	case errors.As(err, &transitionErr):
		apiutil.WriteJSONError(w, http.StatusConflict, transitionErr.Error())
	case errors.As(err, &configErr):
		logger.Error().Err(err).Msg("Schedule configuration error")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, configErr.Error())
	default:
		logger.Error().Err(err).Msg("Booking request failed")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "booking request failed")
	}
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}
