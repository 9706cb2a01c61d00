package scheduler

import (
	"context"
	"time"

	"visitor-counter/internal/service"
	"visitor-counter/pkg/logger"
)

const defaultJobTimeout = 30 * time.Second

// DailyResetJob zeroes the daily counters
type DailyResetJob struct {
	reset   service.ResetService
	logger  *logger.Logger
	timeout time.Duration
}

// NewDailyResetJob creates the midnight reset job
func NewDailyResetJob(reset service.ResetService, log *logger.Logger) *DailyResetJob {
	return &DailyResetJob{
		reset:   reset,
		logger:  log.Component("daily_reset_job"),
		timeout: defaultJobTimeout,
	}
}

func (j *DailyResetJob) Name() string {
	return "DailyResetJob"
}

func (j *DailyResetJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.reset.ResetDaily(ctx); err != nil {
		j.logger.WithError(err).Error("Daily reset failed")
	}
}

// BackupJob snapshots counters to PostgreSQL and prunes old snapshots
type BackupJob struct {
	snapshots service.SnapshotService
	logger    *logger.Logger
	timeout   time.Duration
}

// NewBackupJob creates the periodic backup job
func NewBackupJob(snapshots service.SnapshotService, log *logger.Logger) *BackupJob {
	return &BackupJob{
		snapshots: snapshots,
		logger:    log.Component("backup_job"),
		timeout:   defaultJobTimeout,
	}
}

func (j *BackupJob) Name() string {
	return "BackupJob"
}

func (j *BackupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.snapshots.SaveSnapshot(ctx); err != nil {
		j.logger.WithError(err).Error("Failed to save visitor snapshot")
		return
	}

	if _, err := j.snapshots.PruneSnapshots(ctx); err != nil {
		j.logger.WithError(err).Warn("Failed to prune old visitor snapshots")
	}
}
