package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fieldbook-app/fieldbook/internal/civil"
	appdb "github.com/fieldbook-app/fieldbook/internal/db"
)

// PaymentIntentRequest is what the core hands the gateway when a reservation
// is created. OrderRef is generated by the core and echoed back by the
// gateway in its notifications.
type PaymentIntentRequest struct {
	ReservationID int64
	OrderRef      string
	Amount        int64
}

// PaymentIntent is the gateway's handle for an opened intent.
type PaymentIntent struct {
	Reference string
}

// PaymentGateway is the outbound payment dependency. Implementations must
// bound their own call duration and return ErrGatewayTimeout (wrapped) when
// the bound is exceeded.
type PaymentGateway interface {
	OpenIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error)
}

// Service owns the reservation lifecycle. Every status write in the system
// goes through it: booking endpoints, the payment webhook, and the sweeper.
type Service struct {
	db          *appdb.DB
	resolver    *ScheduleResolver
	gateway     PaymentGateway
	slotLength  time.Duration
	intentGrace time.Duration
	now         func() time.Time

	// fieldLocks serializes the conflict-check-then-insert of Create per
	// field. Slot display reads stay lock-free; a stale read there only
	// shows a slot Create will correctly reject.
	fieldLocks sync.Map // int64 -> *sync.Mutex
}

type Option func(*Service)

// WithSlotLength overrides the default 1-hour slot granularity.
func WithSlotLength(d time.Duration) Option {
	return func(s *Service) { s.slotLength = d }
}

// WithIntentGrace overrides the payment intent retry grace window.
func WithIntentGrace(d time.Duration) Option {
	return func(s *Service) { s.intentGrace = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(database *appdb.DB, gateway PaymentGateway, opts ...Option) *Service {
	s := &Service{
		db:          database,
		resolver:    NewScheduleResolver(database.Queries),
		gateway:     gateway,
		slotLength:  time.Hour,
		intentGrace: 5 * time.Minute,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AvailableSlots returns the free candidate slots for a field on a date,
// in order. An empty result is a valid answer: the field is closed or fully
// booked. Instants are in the venue's zone, so formatting them with "15:04"
// yields venue-local labels.
func (s *Service) AvailableSlots(ctx context.Context, fieldID int64, date civil.Date) ([]Interval, error) {
	window, err := s.resolver.Resolve(ctx, fieldID, date)
	if err != nil {
		return nil, err
	}

	candidates, err := Slots(window, s.slotLength)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	held, err := s.heldIntervals(ctx, s.db.Queries, fieldID, date)
	if err != nil {
		return nil, err
	}

	free := make([]Interval, 0, len(candidates))
	for _, candidate := range candidates {
		if !AnyOverlap(candidate, held) {
			free = append(free, candidate)
		}
	}
	return free, nil
}

type CreateParams struct {
	FieldID  int64
	UserID   int64
	Date     civil.Date
	Start    civil.TimeOfDay
	Duration time.Duration
}

// Create books a field for [start, start+duration) on a date. The overlap
// check and insert run under a per-field lock inside one transaction, so two
// concurrent creates for the same field can never both pass the check against
// a stale read.
//
// On success a PENDING reservation is returned and a payment intent has been
// opened for it. If the gateway call times out the reservation is still
// created and returned alongside an error wrapping ErrGatewayTimeout; the
// caller may retry the intent via OpenPaymentIntent within the grace window.
func (s *Service) Create(ctx context.Context, params CreateParams) (appdb.Reservation, error) {
	if params.Duration < s.slotLength {
		return appdb.Reservation{}, fmt.Errorf("%w (minimum %s)", ErrInvalidDuration, s.slotLength)
	}

	field, err := s.db.Queries.GetFieldByID(ctx, params.FieldID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appdb.Reservation{}, fmt.Errorf("field %d: %w", params.FieldID, ErrNotFound)
		}
		return appdb.Reservation{}, fmt.Errorf("load field: %w", err)
	}

	window, err := s.resolver.ResolveForField(ctx, field, params.Date)
	if err != nil {
		return appdb.Reservation{}, err
	}
	if window == nil {
		return appdb.Reservation{}, ErrOutsideHours
	}

	startAt := params.Start.On(params.Date, window.Location)
	endAt := startAt.Add(params.Duration)
	if startAt.Before(window.OpenInstant()) || endAt.After(window.CloseInstant()) {
		return appdb.Reservation{}, ErrOutsideHours
	}

	// Hourly price prorated by minutes, rounded half up to the nearest
	// currency unit.
	totalPrice := (field.PricePerHour*int64(params.Duration/time.Minute) + 30) / 60

	// The lock covers only the conflict-check-then-insert. Holding it across
	// the gateway call would queue every create for the field, including
	// non-conflicting slots, behind an external HTTP round trip.
	created, err := func() (appdb.Reservation, error) {
		unlock := s.lockField(params.FieldID)
		defer unlock()

		var created appdb.Reservation
		err := s.db.RunInTx(ctx, func(txdb *appdb.DB) error {
			// Fresh read inside the critical section; never trust earlier state.
			held, err := s.heldIntervals(ctx, txdb.Queries, params.FieldID, params.Date)
			if err != nil {
				return err
			}
			if AnyOverlap(Interval{Start: startAt, End: endAt}, held) {
				return ConflictError{FieldID: params.FieldID, Start: startAt, End: endAt}
			}

			created, err = txdb.Queries.CreateReservation(ctx, appdb.CreateReservationParams{
				FieldID:       params.FieldID,
				UserID:        params.UserID,
				Date:          params.Date,
				StartAt:       startAt,
				EndAt:         endAt,
				TotalPrice:    totalPrice,
				Status:        string(StatusPending),
				PaymentStatus: string(PaymentPending),
				CreatedAt:     s.now(),
			})
			if err != nil {
				return fmt.Errorf("insert reservation: %w", err)
			}
			return nil
		})
		return created, err
	}()
	if err != nil {
		return appdb.Reservation{}, err
	}

	if err := s.openIntent(ctx, &created); err != nil {
		// The slot is held; only the intent is missing. Retryable.
		log.Ctx(ctx).Warn().Err(err).Int64("reservation_id", created.ID).Msg("Payment intent not opened, reservation stays pending")
		return created, err
	}
	return created, nil
}

// OpenPaymentIntent retries the payment intent for a PENDING reservation
// whose original intent call timed out. Allowed without re-running the
// overlap check only within the grace window after creation.
func (s *Service) OpenPaymentIntent(ctx context.Context, reservationID int64) (appdb.Reservation, error) {
	reservation, err := s.Get(ctx, reservationID)
	if err != nil {
		return appdb.Reservation{}, err
	}
	if Status(reservation.Status) != StatusPending {
		return appdb.Reservation{}, fmt.Errorf("reservation %d is %s: %w",
			reservationID, reservation.Status, ErrIntentNotPending)
	}
	if reservation.PaymentRef != "" {
		return reservation, nil
	}
	if s.now().Sub(reservation.CreatedAt) > s.intentGrace {
		return appdb.Reservation{}, ErrIntentGraceExpired
	}
	if err := s.openIntent(ctx, &reservation); err != nil {
		return reservation, err
	}
	return reservation, nil
}

func (s *Service) openIntent(ctx context.Context, reservation *appdb.Reservation) error {
	intent, err := s.gateway.OpenIntent(ctx, PaymentIntentRequest{
		ReservationID: reservation.ID,
		OrderRef:      uuid.NewString(),
		Amount:        reservation.TotalPrice,
	})
	if err != nil {
		return fmt.Errorf("open payment intent: %w", err)
	}
	if err := s.db.Queries.SetReservationPaymentRef(ctx, reservation.ID, intent.Reference); err != nil {
		return fmt.Errorf("store payment reference: %w", err)
	}
	reservation.PaymentRef = intent.Reference
	return nil
}

// ApplyPaymentOutcome applies a gateway-reported outcome. Idempotent:
// re-applying an outcome, or any outcome arriving once the reservation has
// left PENDING, is a no-op. A late "expired" must not revert a confirmed
// booking.
func (s *Service) ApplyPaymentOutcome(ctx context.Context, reservationID int64, outcome Outcome) (appdb.Reservation, error) {
	reservation, err := s.Get(ctx, reservationID)
	if err != nil {
		return appdb.Reservation{}, err
	}

	if outcome == OutcomeStillPending {
		return reservation, nil
	}

	current := Status(reservation.Status)
	if current != StatusPending {
		log.Ctx(ctx).Info().
			Int64("reservation_id", reservationID).
			Str("status", reservation.Status).
			Str("outcome", string(outcome)).
			Msg("Ignoring payment outcome for non-pending reservation")
		return reservation, nil
	}

	var (
		status  Status
		payment PaymentStatus
	)
	switch outcome {
	case OutcomeCaptured:
		status, payment = StatusConfirmed, PaymentPaid
	case OutcomeDenied:
		status, payment = StatusCancelled, PaymentFailed
	case OutcomeExpired:
		status, payment = StatusCancelled, PaymentExpired
	default:
		return appdb.Reservation{}, fmt.Errorf("unknown payment outcome %q", outcome)
	}

	return s.transition(ctx, reservation, status, payment)
}

// ApplyPaymentOutcomeByRef resolves a gateway reference token and applies the
// outcome to its reservation.
func (s *Service) ApplyPaymentOutcomeByRef(ctx context.Context, ref string, outcome Outcome) (appdb.Reservation, error) {
	reservation, err := s.db.Queries.GetReservationByPaymentRef(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appdb.Reservation{}, fmt.Errorf("payment reference %q: %w", ref, ErrNotFound)
		}
		return appdb.Reservation{}, fmt.Errorf("load reservation by payment reference: %w", err)
	}
	return s.ApplyPaymentOutcome(ctx, reservation.ID, outcome)
}

// Cancel is the caller-initiated cancellation, legal from PENDING or
// CONFIRMED. The slot is released immediately; future overlap checks see it
// free. PaymentStatus FAILED here means "no charge retained".
func (s *Service) Cancel(ctx context.Context, reservationID int64) (appdb.Reservation, error) {
	reservation, err := s.Get(ctx, reservationID)
	if err != nil {
		return appdb.Reservation{}, err
	}
	return s.transition(ctx, reservation, StatusCancelled, PaymentFailed)
}

// Confirm is the manual operator override: PENDING -> CONFIRMED without a
// gateway round trip.
func (s *Service) Confirm(ctx context.Context, reservationID int64) (appdb.Reservation, error) {
	reservation, err := s.Get(ctx, reservationID)
	if err != nil {
		return appdb.Reservation{}, err
	}
	return s.transition(ctx, reservation, StatusConfirmed, PaymentPaid)
}

// Complete advances a CONFIRMED reservation whose window has elapsed.
// Idempotent: completing a COMPLETED reservation is a no-op.
func (s *Service) Complete(ctx context.Context, reservationID int64) (appdb.Reservation, error) {
	reservation, err := s.Get(ctx, reservationID)
	if err != nil {
		return appdb.Reservation{}, err
	}
	if Status(reservation.Status) == StatusCompleted {
		return reservation, nil
	}
	return s.transition(ctx, reservation, StatusCompleted, PaymentStatus(reservation.PaymentStatus))
}

// transition applies the table-checked status change, setting both status
// columns atomically. The UPDATE is guarded on the from-status, so a writer
// racing on a stale read loses cleanly instead of overwriting whatever state
// the winner committed.
func (s *Service) transition(ctx context.Context, reservation appdb.Reservation, to Status, payment PaymentStatus) (appdb.Reservation, error) {
	from := Status(reservation.Status)
	if !CanTransition(from, to) {
		err := InvalidTransitionError{ReservationID: reservation.ID, From: from, To: to}
		log.Ctx(ctx).Error().Err(err).Msg("Illegal reservation transition attempted")
		return appdb.Reservation{}, err
	}
	updated, err := s.db.Queries.UpdateReservationStatus(ctx, appdb.UpdateReservationStatusParams{
		ID:            reservation.ID,
		FromStatus:    string(from),
		Status:        string(to),
		PaymentStatus: string(payment),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost a race: the row left `from` between our read and the write.
			current, getErr := s.Get(ctx, reservation.ID)
			if getErr != nil {
				return appdb.Reservation{}, getErr
			}
			raceErr := InvalidTransitionError{ReservationID: reservation.ID, From: Status(current.Status), To: to}
			log.Ctx(ctx).Error().Err(raceErr).Msg("Illegal reservation transition attempted")
			return appdb.Reservation{}, raceErr
		}
		return appdb.Reservation{}, fmt.Errorf("update reservation status: %w", err)
	}
	log.Ctx(ctx).Info().
		Int64("reservation_id", reservation.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("payment_status", string(payment)).
		Msg("Reservation transitioned")
	return updated, nil
}

// Get loads a reservation, mapping missing rows to ErrNotFound.
func (s *Service) Get(ctx context.Context, reservationID int64) (appdb.Reservation, error) {
	reservation, err := s.db.Queries.GetReservationByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appdb.Reservation{}, fmt.Errorf("reservation %d: %w", reservationID, ErrNotFound)
		}
		return appdb.Reservation{}, fmt.Errorf("load reservation: %w", err)
	}
	return reservation, nil
}

// ListByFieldDate returns every reservation on a field for a date, newest
// last, regardless of status.
func (s *Service) ListByFieldDate(ctx context.Context, fieldID int64, date civil.Date) ([]appdb.Reservation, error) {
	reservations, err := s.db.Queries.ListReservationsByFieldDate(ctx, fieldID, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

// CompleteElapsed bulk-advances CONFIRMED reservations whose end time has
// passed. Invoked by the sweeper; safe to run concurrently with itself.
func (s *Service) CompleteElapsed(ctx context.Context) (int64, error) {
	return s.db.Queries.CompleteElapsedReservations(ctx, s.now())
}

// ExpireStalePending cancels PENDING reservations older than ttl whose
// gateway outcome never arrived. A ttl of zero disables the sweep.
func (s *Service) ExpireStalePending(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	return s.db.Queries.ExpireStalePendingReservations(ctx, s.now().Add(-ttl))
}

func (s *Service) heldIntervals(ctx context.Context, queries *appdb.Queries, fieldID int64, date civil.Date) ([]Interval, error) {
	held, err := queries.ListHoldingReservations(ctx, fieldID, date)
	if err != nil {
		return nil, fmt.Errorf("list holding reservations: %w", err)
	}
	intervals := make([]Interval, len(held))
	for i, r := range held {
		intervals[i] = Interval{Start: r.StartAt, End: r.EndAt}
	}
	return intervals, nil
}

func (s *Service) lockField(fieldID int64) func() {
	value, _ := s.fieldLocks.LoadOrStore(fieldID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
