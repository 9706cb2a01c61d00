package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"visitor-counter/pkg/logger"
)

// DailyResetSpec fires at local midnight
const DailyResetSpec = "0 0 0 * * *"

// Job is a cron job with a readable name for logs
type Job interface {
	cron.Job
	Name() string
}

// Scheduler wraps a cron instance running in the configured timezone
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

// New creates a scheduler. Every job runs behind panic recovery and
// execution logging, and a run is delayed while the previous one is active.
func New(location *time.Location, log *logger.Logger) *Scheduler {
	if location == nil {
		location = time.Local
	}
	log = log.Component("scheduler")

	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(location),
		cron.WithChain(
			NewPanicRecoveryWrapper(log),
			NewLoggingWrapper(log),
			cron.DelayIfStillRunning(newCronLogger(log)),
		),
	)

	return &Scheduler{
		cron:   c,
		logger: log,
	}
}

// Register adds job under a six-field cron spec or descriptor
func (s *Scheduler) Register(spec string, job Job) error {
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.Name(), err)
	}
	s.logger.WithFields(map[string]interface{}{
		"job_name": job.Name(),
		"schedule": spec,
	}).Info("Registered periodic job")
	return nil
}

// Jobs returns the number of registered jobs
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.logger.Info("Cron scheduler started")
	s.cron.Start()
}

// Stop prevents new runs and waits for active ones, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("Stopping cron scheduler...")
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.logger.Info("Cron scheduler gracefully stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop interrupted: %w", ctx.Err())
	}
}

// BackupSpec runs every intervalHours hours
func BackupSpec(intervalHours int) string {
	if intervalHours <= 0 {
		intervalHours = 1
	}
	return fmt.Sprintf("@every %dh", intervalHours)
}
