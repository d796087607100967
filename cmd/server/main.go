// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fieldbook-app/fieldbook/internal/api/availability"
	"github.com/fieldbook-app/fieldbook/internal/api/bookings"
	paymentsapi "github.com/fieldbook-app/fieldbook/internal/api/payments"
	"github.com/fieldbook-app/fieldbook/internal/api/schedule"
	"github.com/fieldbook-app/fieldbook/internal/api/venues"
	"github.com/fieldbook-app/fieldbook/internal/booking"
	"github.com/fieldbook-app/fieldbook/internal/config"
	"github.com/fieldbook-app/fieldbook/internal/db"
	"github.com/fieldbook-app/fieldbook/internal/payments"
	"github.com/fieldbook-app/fieldbook/internal/ratelimit"
	"github.com/fieldbook-app/fieldbook/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	configPath := flag.String("config", "config/fieldbook.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	gateway := payments.NewClient(cfg.Payments.BaseURL, cfg.Payments.ServerKey, cfg.GatewayTimeout())

	svc := booking.NewService(database, gateway,
		booking.WithSlotLength(cfg.SlotLength()),
		booking.WithIntentGrace(cfg.IntentGrace()),
	)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(&ratelimit.Config{
			CreateCooldown:     time.Duration(cfg.RateLimit.CooldownSeconds) * time.Second,
			CreateMaxPerHour:   cfg.RateLimit.MaxPerHour,
			CreateMaxIPPerHour: cfg.RateLimit.MaxIPPerHour,
		})
		defer limiter.Close()
	}

	availability.InitHandlers(svc)
	bookings.InitHandlers(svc, limiter, cfg.RateLimit.TrustProxyHeaders)
	schedule.InitHandlers(database.Queries)
	venues.InitHandlers(database.Queries)
	paymentsapi.InitHandlers(svc)

	sched, err := scheduler.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	if err := scheduler.RegisterSweepJobs(sched, svc, cfg.Booking.SweepCron, cfg.PendingTTL()); err != nil {
		log.Fatal().Err(err).Msg("Failed to register sweep jobs")
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown error")
		}
	}()

	server := newServer(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
