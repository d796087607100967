// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fieldbook-app/fieldbook/internal/api"
	"github.com/fieldbook-app/fieldbook/internal/api/availability"
	"github.com/fieldbook-app/fieldbook/internal/api/bookings"
	paymentsapi "github.com/fieldbook-app/fieldbook/internal/api/payments"
	"github.com/fieldbook-app/fieldbook/internal/api/schedule"
	"github.com/fieldbook-app/fieldbook/internal/api/venues"
	"github.com/fieldbook-app/fieldbook/internal/config"
)

func newServer(cfg *config.Config) *http.Server {
	router := http.NewServeMux()

	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	registerRoutes(router)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Availability
	mux.HandleFunc("GET /api/v1/availability", availability.HandleAvailability)

	// Booking lifecycle
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleCreate)
	mux.HandleFunc("GET /api/v1/bookings", bookings.HandleList)
	mux.HandleFunc("GET /api/v1/bookings/{id}", bookings.HandleGet)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", bookings.HandleCancel)
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm", bookings.HandleConfirm)
	mux.HandleFunc("POST /api/v1/bookings/{id}/complete", bookings.HandleComplete)
	mux.HandleFunc("POST /api/v1/bookings/{id}/payment-intent", bookings.HandleOpenPaymentIntent)

	// Payment provider notifications
	mux.HandleFunc("POST /api/v1/payments/notifications", paymentsapi.HandleNotification)

	// Weekly schedule and overrides
	mux.HandleFunc("GET /api/v1/operating-hours", schedule.HandleOperatingHoursList)
	mux.HandleFunc("PUT /api/v1/operating-hours/{day_of_week}", schedule.HandleOperatingHoursUpdate)
	mux.HandleFunc("PUT /api/v1/schedule-overrides", schedule.HandleOverrideUpsert)
	mux.HandleFunc("DELETE /api/v1/schedule-overrides", schedule.HandleOverrideDelete)

	// Venue and field administration
	mux.HandleFunc("POST /api/v1/venues", venues.HandleVenueCreate)
	mux.HandleFunc("GET /api/v1/venues", venues.HandleVenueList)
	mux.HandleFunc("POST /api/v1/venues/{id}/fields", venues.HandleFieldCreate)
	mux.HandleFunc("GET /api/v1/venues/{id}/fields", venues.HandleFieldList)
	mux.HandleFunc("PUT /api/v1/fields/{id}/closed", venues.HandleFieldClosedUpdate)
}
