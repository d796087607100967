package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates an unknown field, venue, or reservation.
	ErrNotFound = errors.New("not found")
	// ErrInvalidDuration indicates a requested duration shorter than one slot.
	ErrInvalidDuration = errors.New("duration is shorter than the slot length")
	// ErrOutsideHours indicates a requested interval outside the field's
	// resolved operating window (including fully closed days).
	ErrOutsideHours = errors.New("requested time is outside operating hours")
	// ErrGatewayTimeout indicates the payment intent call did not complete in
	// time. The reservation stays PENDING and the intent may be retried.
	ErrGatewayTimeout = errors.New("payment gateway timed out")
	// ErrIntentGraceExpired indicates a payment intent retry arrived after the
	// grace window; the caller must re-run the full booking flow.
	ErrIntentGraceExpired = errors.New("payment intent grace window expired")
	// ErrIntentNotPending indicates a payment intent retry for a reservation
	// that has already left PENDING; there is nothing left to pay for.
	ErrIntentNotPending = errors.New("reservation is no longer pending payment")
)

// ConflictError reports that a requested interval overlaps an existing
// capacity-holding reservation. Callers may retry with a different slot,
// never the same one.
type ConflictError struct {
	FieldID int64
	Start   time.Time
	End     time.Time
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("field %d is already booked between %s and %s",
		e.FieldID, e.Start.Format("15:04"), e.End.Format("15:04"))
}

// InvalidTransitionError reports an illegal lifecycle step. These are
// programming or race errors and are logged loudly, never coerced.
type InvalidTransitionError struct {
	ReservationID int64
	From          Status
	To            Status
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("reservation %d: illegal transition %s -> %s", e.ReservationID, e.From, e.To)
}

// ConfigurationError reports schedule data that cannot be interpreted, such
// as an overnight window or an open override missing its times. Surfaced to
// the caller, never silently defaulted.
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	return "schedule configuration error: " + e.Reason
}
