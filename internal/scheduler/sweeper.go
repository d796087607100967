package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/fieldbook-app/fieldbook/internal/booking"
)

const sweepTimeout = 2 * time.Minute

// RegisterSweepJobs registers the periodic reservation sweeps: elapsed
// CONFIRMED reservations are advanced to COMPLETED, and PENDING reservations
// older than pendingTTL are cancelled as expired. A pendingTTL of zero
// disables the expiry sweep.
func RegisterSweepJobs(sched *Service, svc *booking.Service, cronExpr string, pendingTTL time.Duration) error {
	if svc == nil {
		return fmt.Errorf("sweep jobs require booking service")
	}

	jobName := "reservation_status_sweep"
	jobLogger := log.With().
		Str("component", "reservation_status_sweep").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	_, err := sched.AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		completed, err := svc.CompleteElapsed(ctx)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to complete elapsed reservations")
		} else if completed > 0 {
			jobLogger.Info().Int64("completed", completed).Msg("Elapsed reservations completed")
		}

		expired, err := svc.ExpireStalePending(ctx, pendingTTL)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to expire stale pending reservations")
		} else if expired > 0 {
			jobLogger.Info().Int64("expired", expired).Msg("Stale pending reservations expired")
		}
	}, gocron.WithSingletonMode(gocron.LimitModeWait))
	if err != nil {
		return fmt.Errorf("add reservation status sweep job: %w", err)
	}

	return nil
}
