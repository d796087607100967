package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fieldbook-app/fieldbook/internal/civil"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries is the hand-written query layer. All SQL lives here; callers never
// build query strings.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// scanTimeOfDay converts a stored HH:MM column value.
func scanTimeOfDay(value string) (civil.TimeOfDay, error) {
	tod, err := civil.ParseTimeOfDay(value)
	if err != nil {
		return civil.TimeOfDay{}, fmt.Errorf("corrupt time column: %w", err)
	}
	return tod, nil
}

// scanDate converts a stored YYYY-MM-DD column value.
func scanDate(value string) (civil.Date, error) {
	date, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, fmt.Errorf("corrupt date column: %w", err)
	}
	return date, nil
}
