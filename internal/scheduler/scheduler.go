package scheduler

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyJobName  = errors.New("job name is required")
	ErrEmptyCronExpr = errors.New("cron expression is required")
)

// Service wraps a gocron scheduler for app-wide scheduling. Construct one per
// process and pass it to the job registrars.
type Service struct {
	scheduler gocron.Scheduler
	stopOnce  sync.Once
	stopErr   error
}

func New() (*Service, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					log.Error().
						Str("job_id", jobID.String()).
						Str("job_name", jobName).
						Interface("panic", recoverData).
						Msg("Scheduler job panicked")
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Scheduler initialized")
	return &Service{scheduler: sched}, nil
}

// Start begins running scheduled jobs.
func (s *Service) Start() {
	log.Info().Msg("Scheduler starting")
	s.scheduler.Start()
}

// Stop shuts down the scheduler and prevents new jobs from running. Safe to
// call more than once.
func (s *Service) Stop() error {
	s.stopOnce.Do(func() {
		log.Info().Msg("Scheduler stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}

// AddJob registers a cron-based job with the scheduler.
func (s *Service) AddJob(name, cronExpr string, task func(), options ...gocron.JobOption) (gocron.Job, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}
	jobLogger := log.With().Str("job_name", name).Str("cron", cronExpr).Logger()

	wrappedTask := func() {
		jobLogger.Debug().Msg("Scheduler job started")
		task()
		jobLogger.Debug().Msg("Scheduler job completed")
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrappedTask),
		append([]gocron.JobOption{gocron.WithName(name)}, options...)...,
	)
	if err != nil {
		jobLogger.Error().Err(err).Msg("Failed to register scheduler job")
		return nil, err
	}
	jobLogger.Info().Msg("Scheduler job registered")
	return job, nil
}
