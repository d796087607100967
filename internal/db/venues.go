package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/fieldbook-app/fieldbook/internal/civil"
)

type Venue struct {
	ID        int64
	Name      string
	Timezone  string
	CreatedAt time.Time
}

// VenueHours is the weekly schedule entry for one day of week. Open and close
// are wall-clock values in the venue's timezone.
type VenueHours struct {
	VenueID   int64
	DayOfWeek int64
	OpenTime  civil.TimeOfDay
	CloseTime civil.TimeOfDay
}

type CreateVenueParams struct {
	Name     string
	Timezone string
}

func (q *Queries) CreateVenue(ctx context.Context, arg CreateVenueParams) (Venue, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO venues (name, timezone)
		VALUES (?, ?)
		RETURNING id, name, timezone, created_at`,
		arg.Name, arg.Timezone,
	)
	var v Venue
	err := row.Scan(&v.ID, &v.Name, &v.Timezone, &v.CreatedAt)
	return v, err
}

func (q *Queries) GetVenueByID(ctx context.Context, id int64) (Venue, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, name, timezone, created_at
		FROM venues
		WHERE id = ?`,
		id,
	)
	var v Venue
	err := row.Scan(&v.ID, &v.Name, &v.Timezone, &v.CreatedAt)
	return v, err
}

func (q *Queries) ListVenues(ctx context.Context) ([]Venue, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, timezone, created_at
		FROM venues
		ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []Venue
	for rows.Next() {
		var v Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Timezone, &v.CreatedAt); err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

type UpsertVenueHoursParams struct {
	VenueID   int64
	DayOfWeek int64
	OpenTime  civil.TimeOfDay
	CloseTime civil.TimeOfDay
}

func (q *Queries) UpsertVenueHours(ctx context.Context, arg UpsertVenueHoursParams) (VenueHours, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO venue_hours (venue_id, day_of_week, open_time, close_time)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (venue_id, day_of_week)
		DO UPDATE SET open_time = excluded.open_time, close_time = excluded.close_time
		RETURNING venue_id, day_of_week, open_time, close_time`,
		arg.VenueID, arg.DayOfWeek, arg.OpenTime.String(), arg.CloseTime.String(),
	)
	return scanVenueHours(row)
}

// DeleteVenueHours removes the weekly entry for one day, marking the venue
// closed on that day of week.
func (q *Queries) DeleteVenueHours(ctx context.Context, venueID, dayOfWeek int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		DELETE FROM venue_hours
		WHERE venue_id = ? AND day_of_week = ?`,
		venueID, dayOfWeek,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetVenueHours returns sql.ErrNoRows when the venue has no entry for the
// given day of week.
func (q *Queries) GetVenueHours(ctx context.Context, venueID, dayOfWeek int64) (VenueHours, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT venue_id, day_of_week, open_time, close_time
		FROM venue_hours
		WHERE venue_id = ? AND day_of_week = ?`,
		venueID, dayOfWeek,
	)
	return scanVenueHours(row)
}

func (q *Queries) ListVenueHours(ctx context.Context, venueID int64) ([]VenueHours, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT venue_id, day_of_week, open_time, close_time
		FROM venue_hours
		WHERE venue_id = ?
		ORDER BY day_of_week`,
		venueID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hours []VenueHours
	for rows.Next() {
		var (
			h          VenueHours
			open, clos string
		)
		if err := rows.Scan(&h.VenueID, &h.DayOfWeek, &open, &clos); err != nil {
			return nil, err
		}
		if h.OpenTime, err = scanTimeOfDay(open); err != nil {
			return nil, err
		}
		if h.CloseTime, err = scanTimeOfDay(clos); err != nil {
			return nil, err
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

func scanVenueHours(row *sql.Row) (VenueHours, error) {
	var (
		h          VenueHours
		open, clos string
	)
	if err := row.Scan(&h.VenueID, &h.DayOfWeek, &open, &clos); err != nil {
		return VenueHours{}, err
	}
	var err error
	if h.OpenTime, err = scanTimeOfDay(open); err != nil {
		return VenueHours{}, err
	}
	if h.CloseTime, err = scanTimeOfDay(clos); err != nil {
		return VenueHours{}, err
	}
	return h, nil
}
