// internal/api/venues/handlers.go
package venues

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fieldbook-app/fieldbook/internal/api/apiutil"
	appdb "github.com/fieldbook-app/fieldbook/internal/db"
)

const venueQueryTimeout = 5 * time.Second

var (
	queries     *appdb.Queries
	queriesOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(q *appdb.Queries) {
	if q == nil {
		return
	}
	queriesOnce.Do(func() {
		queries = q
	})
}

type venueRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type venueResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type fieldRequest struct {
	Name         string `json:"name"`
	PricePerHour int64  `json:"price_per_hour"`
}

type fieldResponse struct {
	ID           int64  `json:"id"`
	VenueID      int64  `json:"venue_id"`
	Name         string `json:"name"`
	PricePerHour int64  `json:"price_per_hour"`
	IsClosed     bool   `json:"is_closed"`
}

type fieldClosedRequest struct {
	IsClosed bool `json:"is_closed"`
}

// POST /api/v1/venues
func HandleVenueCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := queries
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req venueRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "timezone must be a valid IANA zone name")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), venueQueryTimeout)
	defer cancel()

	venue, err := q.CreateVenue(ctx, appdb.CreateVenueParams{
		Name:     strings.TrimSpace(req.Name),
		Timezone: req.Timezone,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create venue")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "failed to create venue")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, toVenueResponse(venue)); err != nil {
		logger.Error().Err(err).Int64("venue_id", venue.ID).Msg("Failed to write venue response")
	}
}

// GET /api/v1/venues
func HandleVenueList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := queries
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), venueQueryTimeout)
	defer cancel()

	venues, err := q.ListVenues(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list venues")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "failed to list venues")
		return
	}

	resp := make([]venueResponse, 0, len(venues))
	for _, venue := range venues {
		resp = append(resp, toVenueResponse(venue))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write venues response")
	}
}

// POST /api/v1/venues/{id}/fields
func HandleFieldCreate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := queries
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	venueID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req fieldRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.PricePerHour < 0 {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "price_per_hour must be 0 or greater")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), venueQueryTimeout)
	defer cancel()

	field, err := q.CreateField(ctx, appdb.CreateFieldParams{
		VenueID:      venueID,
		Name:         strings.TrimSpace(req.Name),
		PricePerHour: req.PricePerHour,
	})
	if err != nil {
		if appdb.IsForeignKeyViolation(err) {
			apiutil.WriteJSONError(w, http.StatusNotFound, "venue not found")
			return
		}
		logger.Error().Err(err).Int64("venue_id", venueID).Msg("Failed to create field")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "failed to create field")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusCreated, toFieldResponse(field)); err != nil {
		logger.Error().Err(err).Int64("field_id", field.ID).Msg("Failed to write field response")
	}
}

// GET /api/v1/venues/{id}/fields
func HandleFieldList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := queries
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	venueID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), venueQueryTimeout)
	defer cancel()

	fields, err := q.ListFieldsByVenue(ctx, venueID)
	if err != nil {
		logger.Error().Err(err).Int64("venue_id", venueID).Msg("Failed to list fields")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "failed to list fields")
		return
	}

	resp := make([]fieldResponse, 0, len(fields))
	for _, field := range fields {
		resp = append(resp, toFieldResponse(field))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("venue_id", venueID).Msg("Failed to write fields response")
	}
}

// PUT /api/v1/fields/{id}/closed
func HandleFieldClosedUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := queries
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	fieldID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req fieldClosedRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), venueQueryTimeout)
	defer cancel()

	field, err := q.SetFieldClosed(ctx, fieldID, req.IsClosed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteJSONError(w, http.StatusNotFound, "field not found")
			return
		}
		logger.Error().Err(err).Int64("field_id", fieldID).Msg("Failed to update field closed flag")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "failed to update field")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, toFieldResponse(field)); err != nil {
		logger.Error().Err(err).Int64("field_id", fieldID).Msg("Failed to write field response")
	}
}

func toVenueResponse(v appdb.Venue) venueResponse {
	return venueResponse{ID: v.ID, Name: v.Name, Timezone: v.Timezone}
}

func toFieldResponse(f appdb.Field) fieldResponse {
	return fieldResponse{
		ID:           f.ID,
		VenueID:      f.VenueID,
		Name:         f.Name,
		PricePerHour: f.PricePerHour,
		IsClosed:     f.IsClosed,
	}
}
