package booking

// Status is the reservation lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// PaymentStatus is the parallel payment state, always set together with the
// matching Status.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
	PaymentExpired PaymentStatus = "EXPIRED"
)

// Outcome is the fixed vocabulary the core accepts from the payment gateway.
// Provider-specific statuses are mapped to these four before they reach the
// lifecycle.
type Outcome string

const (
	OutcomeCaptured     Outcome = "CAPTURED"
	OutcomeDenied       Outcome = "DENIED"
	OutcomeExpired      Outcome = "EXPIRED"
	OutcomeStillPending Outcome = "STILL_PENDING"
)

// transitions is the single transition table for reservation status. Every
// writer (booking handlers, payment webhook, sweeper) goes through it; status
// is never written directly anywhere else.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusCompleted: true,
		StatusCancelled: true,
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// IsTerminal reports whether no further transitions are possible from s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// HoldsCapacity reports whether a reservation in status s blocks its time
// slot for other bookings.
func (s Status) HoldsCapacity() bool {
	return s == StatusPending || s == StatusConfirmed
}
