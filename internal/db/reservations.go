package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/fieldbook-app/fieldbook/internal/civil"
)

// Reservation is the stored booking row. Status values are owned and
// validated by the booking package; the store treats them as opaque strings.
type Reservation struct {
	ID            int64
	FieldID       int64
	UserID        int64
	Date          civil.Date
	StartAt       time.Time
	EndAt         time.Time
	TotalPrice    int64
	Status        string
	PaymentStatus string
	PaymentRef    string
	CreatedAt     time.Time
}

const reservationColumns = `id, field_id, user_id, date, start_at, end_at, total_price, status, payment_status, payment_ref, created_at`

type CreateReservationParams struct {
	FieldID       int64
	UserID        int64
	Date          civil.Date
	StartAt       time.Time
	EndAt         time.Time
	TotalPrice    int64
	Status        string
	PaymentStatus string
	CreatedAt     time.Time
}

func (q *Queries) CreateReservation(ctx context.Context, arg CreateReservationParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO reservations (field_id, user_id, date, start_at, end_at, total_price, status, payment_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+reservationColumns,
		arg.FieldID, arg.UserID, arg.Date.String(), arg.StartAt.UTC(), arg.EndAt.UTC(),
		arg.TotalPrice, arg.Status, arg.PaymentStatus, arg.CreatedAt.UTC(),
	)
	return scanReservation(row)
}

func (q *Queries) GetReservationByID(ctx context.Context, id int64) (Reservation, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = ?`,
		id,
	)
	return scanReservation(row)
}

// GetReservationByPaymentRef resolves a gateway notification reference back to
// its reservation.
func (q *Queries) GetReservationByPaymentRef(ctx context.Context, ref string) (Reservation, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE payment_ref = ?`,
		ref,
	)
	return scanReservation(row)
}

func (q *Queries) ListReservationsByFieldDate(ctx context.Context, fieldID int64, date civil.Date) ([]Reservation, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE field_id = ? AND date = ?
		ORDER BY start_at`,
		fieldID, date.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListHoldingReservations returns reservations that count against capacity
// for the field and date: PENDING and CONFIRMED. Cancelled and completed
// reservations release their slot.
func (q *Queries) ListHoldingReservations(ctx context.Context, fieldID int64, date civil.Date) ([]Reservation, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE field_id = ? AND date = ? AND status IN ('PENDING', 'CONFIRMED')
		ORDER BY start_at`,
		fieldID, date.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

type UpdateReservationStatusParams struct {
	ID            int64
	FromStatus    string
	Status        string
	PaymentStatus string
}

// UpdateReservationStatus sets both status columns in one statement so a
// payment-driven transition can never be observed half-applied. The write is
// guarded on FromStatus; if the row has already left that status the update
// matches nothing and sql.ErrNoRows is returned, so two writers racing from
// the same read can never both commit.
func (q *Queries) UpdateReservationStatus(ctx context.Context, arg UpdateReservationStatusParams) (Reservation, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE reservations
		SET status = ?, payment_status = ?
		WHERE id = ? AND status = ?
		RETURNING `+reservationColumns,
		arg.Status, arg.PaymentStatus, arg.ID, arg.FromStatus,
	)
	return scanReservation(row)
}

func (q *Queries) SetReservationPaymentRef(ctx context.Context, id int64, ref string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE reservations
		SET payment_ref = ?
		WHERE id = ?`,
		ref, id,
	)
	return err
}

// CompleteElapsedReservations advances every CONFIRMED reservation whose end
// time has passed to COMPLETED. The status filter makes the sweep idempotent
// and safe to run concurrently with cancellations.
func (q *Queries) CompleteElapsedReservations(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = 'COMPLETED'
		WHERE status = 'CONFIRMED' AND end_at < ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExpireStalePendingReservations cancels PENDING reservations created before
// the cutoff that the gateway never reported on, releasing their slots.
func (q *Queries) ExpireStalePendingReservations(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE reservations
		SET status = 'CANCELLED', payment_status = 'EXPIRED'
		WHERE status = 'PENDING' AND created_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanReservation(row *sql.Row) (Reservation, error) {
	var (
		r    Reservation
		date string
	)
	if err := row.Scan(&r.ID, &r.FieldID, &r.UserID, &date, &r.StartAt, &r.EndAt,
		&r.TotalPrice, &r.Status, &r.PaymentStatus, &r.PaymentRef, &r.CreatedAt); err != nil {
		return Reservation{}, err
	}
	var err error
	if r.Date, err = scanDate(date); err != nil {
		return Reservation{}, err
	}
	return r, nil
}

func collectReservations(rows *sql.Rows) ([]Reservation, error) {
	var reservations []Reservation
	for rows.Next() {
		var (
			r    Reservation
			date string
		)
		if err := rows.Scan(&r.ID, &r.FieldID, &r.UserID, &date, &r.StartAt, &r.EndAt,
			&r.TotalPrice, &r.Status, &r.PaymentStatus, &r.PaymentRef, &r.CreatedAt); err != nil {
			return nil, err
		}
		var err error
		if r.Date, err = scanDate(date); err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}
