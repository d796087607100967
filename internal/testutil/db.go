package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fieldbook-app/fieldbook/internal/civil"
	"github.com/fieldbook-app/fieldbook/internal/db"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedVenue creates a venue in the given timezone.
func SeedVenue(t *testing.T, database *db.DB, timezone string) db.Venue {
	t.Helper()

	venue, err := database.Queries.CreateVenue(context.Background(), db.CreateVenueParams{
		Name:     "Test Venue",
		Timezone: timezone,
	})
	if err != nil {
		t.Fatalf("seed venue: %v", err)
	}
	return venue
}

// SeedField creates a field on the venue with the given hourly price.
func SeedField(t *testing.T, database *db.DB, venueID, pricePerHour int64) db.Field {
	t.Helper()

	field, err := database.Queries.CreateField(context.Background(), db.CreateFieldParams{
		VenueID:      venueID,
		Name:         "Test Field",
		PricePerHour: pricePerHour,
	})
	if err != nil {
		t.Fatalf("seed field: %v", err)
	}
	return field
}

// SeedWeeklyHours sets the same open window for all seven days of the week.
func SeedWeeklyHours(t *testing.T, database *db.DB, venueID int64, open, close civil.TimeOfDay) {
	t.Helper()

	for day := int64(0); day < 7; day++ {
		_, err := database.Queries.UpsertVenueHours(context.Background(), db.UpsertVenueHoursParams{
			VenueID:   venueID,
			DayOfWeek: day,
			OpenTime:  open,
			CloseTime: close,
		})
		if err != nil {
			t.Fatalf("seed venue hours for day %d: %v", day, err)
		}
	}
}
