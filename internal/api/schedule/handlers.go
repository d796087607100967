// internal/api/schedule/handlers.go
package schedule

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fieldbook-app/fieldbook/internal/api/apiutil"
	"github.com/fieldbook-app/fieldbook/internal/civil"
	appdb "github.com/fieldbook-app/fieldbook/internal/db"
)

const (
	scheduleQueryTimeout = 5 * time.Second
	dayOfWeekParam       = "day_of_week"
)

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

type operatingHoursRequest struct {
	VenueID   int64  `json:"venue_id"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
	IsClosed  bool   `json:"is_closed"`
}

type dayHoursResponse struct {
	DayOfWeek int64  `json:"day_of_week"`
	IsClosed  bool   `json:"is_closed"`
	OpenTime  string `json:"open_time,omitempty"`
	CloseTime string `json:"close_time,omitempty"`
}

// GET /api/v1/operating-hours?venue_id={id}
func HandleOperatingHoursList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := queries
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	venueID, err := apiutil.ParsePositiveInt64Field(r.URL.Query().Get("venue_id"), "venue_id")
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	hours, err := q.ListVenueHours(ctx, venueID)
	if err != nil {
		logger.Error().Err(err).Int64("venue_id", venueID).Msg("Failed to list venue hours")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "failed to load operating hours")
		return
	}

	hoursByDay := make(map[int64]appdb.VenueHours, len(hours))
	for _, h := range hours {
		hoursByDay[h.DayOfWeek] = h
	}

	// Seven entries always; a missing row reads back as a closed day.
	days := make([]dayHoursResponse, 0, 7)
	for day := int64(0); day < 7; day++ {
		h, ok := hoursByDay[day]
		entry := dayHoursResponse{DayOfWeek: day, IsClosed: !ok}
		if ok {
			entry.OpenTime = h.OpenTime.String()
			entry.CloseTime = h.CloseTime.String()
		}
		days = append(days, entry)
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, days); err != nil {
		logger.Error().Err(err).Int64("venue_id", venueID).Msg("Failed to write operating hours response")
	}
}

// PUT /api/v1/operating-hours/{day_of_week}
func HandleOperatingHoursUpdate(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := queries
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	dayOfWeek, err := dayOfWeekFromRequest(r)
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req operatingHoursRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VenueID <= 0 {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "venue_id must be greater than 0")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	// Closing a day removes its weekly row; the resolver reads a missing row
	// as closed.
	if req.IsClosed {
		if _, err := q.DeleteVenueHours(ctx, req.VenueID, dayOfWeek); err != nil {
			logger.Error().Err(err).Int64("venue_id", req.VenueID).Int64("day_of_week", dayOfWeek).Msg("Failed to delete venue hours")
			apiutil.WriteJSONError(w, http.StatusInternalServerError, "failed to update operating hours")
			return
		}
		if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"deleted": true}); err != nil {
			logger.Error().Err(err).Int64("venue_id", req.VenueID).Int64("day_of_week", dayOfWeek).Msg("Failed to write operating hours response")
		}
		return
	}

	open, close, err := parseHoursPair(req.OpenTime, req.CloseTime)
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := q.UpsertVenueHours(ctx, appdb.UpsertVenueHoursParams{
		VenueID:   req.VenueID,
		DayOfWeek: dayOfWeek,
		OpenTime:  open,
		CloseTime: close,
	})
	if err != nil {
		if appdb.IsForeignKeyViolation(err) {
			apiutil.WriteJSONError(w, http.StatusNotFound, "venue not found")
			return
		}
		logger.Error().Err(err).Int64("venue_id", req.VenueID).Int64("day_of_week", dayOfWeek).Msg("Failed to upsert venue hours")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "failed to update operating hours")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, dayHoursResponse{
		DayOfWeek: updated.DayOfWeek,
		OpenTime:  updated.OpenTime.String(),
		CloseTime: updated.CloseTime.String(),
	}); err != nil {
		logger.Error().Err(err).Int64("venue_id", req.VenueID).Int64("day_of_week", dayOfWeek).Msg("Failed to write operating hours response")
	}
}

type overrideRequest struct {
	FieldID   int64  `json:"field_id"`
	Date      string `json:"date"`
	IsClosed  bool   `json:"is_closed"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
}

type overrideResponse struct {
	FieldID   int64  `json:"field_id"`
	Date      string `json:"date"`
	IsClosed  bool   `json:"is_closed"`
	OpenTime  string `json:"open_time,omitempty"`
	CloseTime string `json:"close_time,omitempty"`
}

// PUT /api/v1/schedule-overrides
func HandleOverrideUpsert(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := queries
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req overrideRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FieldID <= 0 {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "field_id must be greater than 0")
		return
	}
	date, err := civil.ParseDate(req.Date)
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
		return
	}

	override := appdb.UpsertScheduleOverrideParams{
		FieldID:  req.FieldID,
		Date:     date,
		IsClosed: req.IsClosed,
	}
	if !req.IsClosed {
		open, close, err := parseHoursPair(req.OpenTime, req.CloseTime)
		if err != nil {
			apiutil.WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		override.OpenTime = &open
		override.CloseTime = &close
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	saved, err := q.UpsertScheduleOverride(ctx, override)
	if err != nil {
		if appdb.IsForeignKeyViolation(err) {
			apiutil.WriteJSONError(w, http.StatusNotFound, "field not found")
			return
		}
		logger.Error().Err(err).Int64("field_id", req.FieldID).Str("date", date.String()).Msg("Failed to upsert schedule override")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "failed to save schedule override")
		return
	}

	resp := overrideResponse{
		FieldID:  saved.FieldID,
		Date:     saved.Date.String(),
		IsClosed: saved.IsClosed,
	}
	if saved.OpenTime != nil {
		resp.OpenTime = saved.OpenTime.String()
	}
	if saved.CloseTime != nil {
		resp.CloseTime = saved.CloseTime.String()
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("field_id", req.FieldID).Msg("Failed to write schedule override response")
	}
}

// DELETE /api/v1/schedule-overrides?field_id={id}&date={YYYY-MM-DD}
func HandleOverrideDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := queries
	if q == nil {
		logger.Error().Msg("Database queries not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	fieldID, err := apiutil.ParsePositiveInt64Field(r.URL.Query().Get("field_id"), "field_id")
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := civil.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		apiutil.WriteJSONError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), scheduleQueryTimeout)
	defer cancel()

	deleted, err := q.DeleteScheduleOverride(ctx, fieldID, date)
	if err != nil {
		logger.Error().Err(err).Int64("field_id", fieldID).Str("date", date.String()).Msg("Failed to delete schedule override")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "failed to delete schedule override")
		return
	}
	if deleted == 0 {
		apiutil.WriteJSONError(w, http.StatusNotFound, "schedule override not found")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"deleted": true}); err != nil {
		logger.Error().Err(err).Int64("field_id", fieldID).Msg("Failed to write schedule override response")
	}
}

func parseHoursPair(openRaw, closeRaw string) (civil.TimeOfDay, civil.TimeOfDay, error) {
	if strings.TrimSpace(openRaw) == "" || strings.TrimSpace(closeRaw) == "" {
		return civil.TimeOfDay{}, civil.TimeOfDay{}, apiutil.FieldError{Field: "open_time and close_time", Reason: "are required when not closed"}
	}
	open, err := civil.ParseTimeOfDay(openRaw)
	if err != nil {
		return civil.TimeOfDay{}, civil.TimeOfDay{}, apiutil.FieldError{Field: "open_time", Reason: "must be in HH:MM format"}
	}
	close, err := civil.ParseTimeOfDay(closeRaw)
	if err != nil {
		return civil.TimeOfDay{}, civil.TimeOfDay{}, apiutil.FieldError{Field: "close_time", Reason: "must be in HH:MM format"}
	}
	if !open.Before(close) {
		return civil.TimeOfDay{}, civil.TimeOfDay{}, apiutil.FieldError{Field: "open_time", Reason: "must be before close_time"}
	}
	return open, close, nil
}

func dayOfWeekFromRequest(r *http.Request) (int64, error) {
	value, err := apiutil.ParseNonNegativeInt64Field(r.PathValue(dayOfWeekParam), dayOfWeekParam)
	if err != nil {
		return 0, err
	}
	if value > 6 {
		return 0, apiutil.FieldError{Field: dayOfWeekParam, Reason: "must be between 0 and 6"}
	}
	return value, nil
}
