package db

import (
	"context"
	"database/sql"

	"github.com/fieldbook-app/fieldbook/internal/civil"
)

// ScheduleOverride fully replaces the weekly default for one field on one
// date. Open and close are nil when the override marks the field closed.
type ScheduleOverride struct {
	FieldID   int64
	Date      civil.Date
	IsClosed  bool
	OpenTime  *civil.TimeOfDay
	CloseTime *civil.TimeOfDay
}

type UpsertScheduleOverrideParams struct {
	FieldID   int64
	Date      civil.Date
	IsClosed  bool
	OpenTime  *civil.TimeOfDay
	CloseTime *civil.TimeOfDay
}

func (q *Queries) UpsertScheduleOverride(ctx context.Context, arg UpsertScheduleOverrideParams) (ScheduleOverride, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO schedule_overrides (field_id, date, is_closed, open_time, close_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (field_id, date)
		DO UPDATE SET
			is_closed = excluded.is_closed,
			open_time = excluded.open_time,
			close_time = excluded.close_time
		RETURNING field_id, date, is_closed, open_time, close_time`,
		arg.FieldID, arg.Date.String(), arg.IsClosed,
		timeOfDayOrNull(arg.OpenTime), timeOfDayOrNull(arg.CloseTime),
	)
	return scanScheduleOverride(row)
}

func (q *Queries) DeleteScheduleOverride(ctx context.Context, fieldID int64, date civil.Date) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		DELETE FROM schedule_overrides
		WHERE field_id = ? AND date = ?`,
		fieldID, date.String(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetScheduleOverride returns sql.ErrNoRows when no override exists for the
// field and date.
func (q *Queries) GetScheduleOverride(ctx context.Context, fieldID int64, date civil.Date) (ScheduleOverride, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT field_id, date, is_closed, open_time, close_time
		FROM schedule_overrides
		WHERE field_id = ? AND date = ?`,
		fieldID, date.String(),
	)
	return scanScheduleOverride(row)
}

func timeOfDayOrNull(t *civil.TimeOfDay) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.String(), Valid: true}
}

func scanScheduleOverride(row *sql.Row) (ScheduleOverride, error) {
	var (
		o          ScheduleOverride
		date       string
		open, clos sql.NullString
	)
	if err := row.Scan(&o.FieldID, &date, &o.IsClosed, &open, &clos); err != nil {
		return ScheduleOverride{}, err
	}
	var err error
	if o.Date, err = scanDate(date); err != nil {
		return ScheduleOverride{}, err
	}
	if open.Valid {
		tod, err := scanTimeOfDay(open.String)
		if err != nil {
			return ScheduleOverride{}, err
		}
		o.OpenTime = &tod
	}
	if clos.Valid {
		tod, err := scanTimeOfDay(clos.String)
		if err != nil {
			return ScheduleOverride{}, err
		}
		o.CloseTime = &tod
	}
	return o, nil
}
