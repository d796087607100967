package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fieldbook-app/fieldbook/internal/civil"
	appdb "github.com/fieldbook-app/fieldbook/internal/db"
)

// ScheduleResolver computes the effective operating window of a field on a
// calendar date. Precedence: field blackout flag, then the date override,
// then the venue's weekly schedule.
type ScheduleResolver struct {
	queries *appdb.Queries
}

func NewScheduleResolver(queries *appdb.Queries) *ScheduleResolver {
	return &ScheduleResolver{queries: queries}
}

// Resolve looks the field up and resolves its window for date. A nil window
// with nil error means the field is closed that day.
func (r *ScheduleResolver) Resolve(ctx context.Context, fieldID int64, date civil.Date) (*OperatingWindow, error) {
	field, err := r.queries.GetFieldByID(ctx, fieldID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("field %d: %w", fieldID, ErrNotFound)
		}
		return nil, fmt.Errorf("load field: %w", err)
	}
	return r.ResolveForField(ctx, field, date)
}

// ResolveForField resolves the window for an already-loaded field.
func (r *ScheduleResolver) ResolveForField(ctx context.Context, field appdb.Field, date civil.Date) (*OperatingWindow, error) {
	// Operator blackout wins over any schedule.
	if field.IsClosed {
		return nil, nil
	}

	venue, err := r.queries.GetVenueByID(ctx, field.VenueID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("venue %d: %w", field.VenueID, ErrNotFound)
		}
		return nil, fmt.Errorf("load venue: %w", err)
	}

	loc, err := time.LoadLocation(venue.Timezone)
	if err != nil {
		return nil, ConfigurationError{Reason: fmt.Sprintf("venue %d has invalid timezone %q", venue.ID, venue.Timezone)}
	}

	override, err := r.queries.GetScheduleOverride(ctx, field.ID, date)
	switch {
	case err == nil:
		return windowFromOverride(override, date, loc)
	case errors.Is(err, sql.ErrNoRows):
		// Fall through to the weekly default.
	default:
		return nil, fmt.Errorf("load schedule override: %w", err)
	}

	hours, err := r.queries.GetVenueHours(ctx, venue.ID, int64(date.Weekday()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No weekly entry for this weekday means closed.
			return nil, nil
		}
		return nil, fmt.Errorf("load venue hours: %w", err)
	}

	return newWindow(date, hours.OpenTime, hours.CloseTime, loc)
}

func windowFromOverride(override appdb.ScheduleOverride, date civil.Date, loc *time.Location) (*OperatingWindow, error) {
	if override.IsClosed {
		return nil, nil
	}
	if override.OpenTime == nil || override.CloseTime == nil {
		return nil, ConfigurationError{
			Reason: fmt.Sprintf("open override for field %d on %s is missing open or close time", override.FieldID, date),
		}
	}
	return newWindow(date, *override.OpenTime, *override.CloseTime, loc)
}

func newWindow(date civil.Date, open, close civil.TimeOfDay, loc *time.Location) (*OperatingWindow, error) {
	// Overnight windows (close at or before open) are unsupported; surface
	// the bad data instead of guessing.
	if !open.Before(close) {
		return nil, ConfigurationError{
			Reason: fmt.Sprintf("close time %s is not after open time %s", close, open),
		}
	}
	return &OperatingWindow{Date: date, OpenAt: open, CloseAt: close, Location: loc}, nil
}
