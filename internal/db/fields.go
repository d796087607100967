package db

import (
	"context"
	"time"
)

type Field struct {
	ID           int64
	VenueID      int64
	Name         string
	PricePerHour int64
	IsClosed     bool
	CreatedAt    time.Time
}

type CreateFieldParams struct {
	VenueID      int64
	Name         string
	PricePerHour int64
}

func (q *Queries) CreateField(ctx context.Context, arg CreateFieldParams) (Field, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO fields (venue_id, name, price_per_hour)
		VALUES (?, ?, ?)
		RETURNING id, venue_id, name, price_per_hour, is_closed, created_at`,
		arg.VenueID, arg.Name, arg.PricePerHour,
	)
	var f Field
	err := row.Scan(&f.ID, &f.VenueID, &f.Name, &f.PricePerHour, &f.IsClosed, &f.CreatedAt)
	return f, err
}

func (q *Queries) GetFieldByID(ctx context.Context, id int64) (Field, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, venue_id, name, price_per_hour, is_closed, created_at
		FROM fields
		WHERE id = ?`,
		id,
	)
	var f Field
	err := row.Scan(&f.ID, &f.VenueID, &f.Name, &f.PricePerHour, &f.IsClosed, &f.CreatedAt)
	return f, err
}

func (q *Queries) ListFieldsByVenue(ctx context.Context, venueID int64) ([]Field, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, venue_id, name, price_per_hour, is_closed, created_at
		FROM fields
		WHERE venue_id = ?
		ORDER BY id`,
		venueID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []Field
	for rows.Next() {
		var f Field
		if err := rows.Scan(&f.ID, &f.VenueID, &f.Name, &f.PricePerHour, &f.IsClosed, &f.CreatedAt); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

// SetFieldClosed toggles the operator blackout flag. A closed field resolves
// as having no operating window regardless of schedule.
func (q *Queries) SetFieldClosed(ctx context.Context, id int64, closed bool) (Field, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE fields
		SET is_closed = ?
		WHERE id = ?
		RETURNING id, venue_id, name, price_per_hour, is_closed, created_at`,
		closed, id,
	)
	var f Field
	err := row.Scan(&f.ID, &f.VenueID, &f.Name, &f.PricePerHour, &f.IsClosed, &f.CreatedAt)
	return f, err
}
