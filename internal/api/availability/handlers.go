// internal/api/availability/handlers.go
package availability

import (
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fieldbook-app/fieldbook/internal/api/apiutil"
	"github.com/fieldbook-app/fieldbook/internal/booking"
	"github.com/fieldbook-app/fieldbook/internal/civil"
)

var (
	service     *booking.Service
	serviceOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(svc *booking.Service) {
	if svc == nil {
		return
	}
	serviceOnce.Do(func() {
		service = svc
	})
}

type slotResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type availabilityResponse struct {
	FieldID int64          `json:"field_id"`
	Date    string         `json:"date"`
	Slots   []slotResponse `json:"slots"`
}

// GET /api/v1/availability?field_id={id}&date={YYYY-MM-DD}
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := service
	if svc == nil {
		logger.Error().Msg("Booking service not initialized")
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

	slots, err := svc.AvailableSlots(r.Context(), fieldID, date)
	if err != nil {
		writeAvailabilityError(w, r, fieldID, err)
		return
	}

	resp := availabilityResponse{
		FieldID: fieldID,
		Date:    date.String(),
		Slots:   make([]slotResponse, 0, len(slots)),
	}
	for _, slot := range slots {
		resp.Slots = append(resp.Slots, slotResponse{
			StartTime: slot.Start.Format("15:04"),
			EndTime:   slot.End.Format("15:04"),
		})
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("field_id", fieldID).Msg("Failed to write availability response")
	}
}

func writeAvailabilityError(w http.ResponseWriter, r *http.Request, fieldID int64, err error) {
	logger := log.Ctx(r.Context())

	var configErr booking.ConfigurationError
	switch {
	case errors.Is(err, booking.ErrNotFound):
		apiutil.WriteJSONError(w, http.StatusNotFound, "field not found")
	case errors.As(err, &configErr):
		logger.Error().Err(err).Int64("field_id", fieldID).Msg("Schedule configuration error")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, configErr.Error())
	default:
		logger.Error().Err(err).Int64("field_id", fieldID).Msg("Failed to compute availability")
		apiutil.WriteJSONError(w, http.StatusInternalServerError, "failed to compute availability")
	}
}
