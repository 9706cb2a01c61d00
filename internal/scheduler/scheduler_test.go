package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitor-counter/internal/domain"
	"visitor-counter/pkg/logger"
)

type countingJob struct {
	runs  atomic.Int32
	panic bool
}

func (j *countingJob) Name() string { return "CountingJob" }

func (j *countingJob) Run() {
	j.runs.Add(1)
	if j.panic {
		panic("boom")
	}
}

func TestScheduler_Register(t *testing.T) {
	s := New(time.UTC, logger.NewNop())

	require.NoError(t, s.Register(DailyResetSpec, &countingJob{}))
	require.NoError(t, s.Register(BackupSpec(6), &countingJob{}))
	assert.Equal(t, 2, s.Jobs())

	err := s.Register("not a schedule", &countingJob{})
	assert.Error(t, err)
	assert.Equal(t, 2, s.Jobs())
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(time.UTC, logger.NewNop())
	job := &countingJob{}
	require.NoError(t, s.Register("* * * * * *", job))

	s.Start()
	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestPanicRecoveryWrapper(t *testing.T) {
	job := &countingJob{panic: true}
	wrapped := cron.NewChain(NewPanicRecoveryWrapper(logger.NewNop())).Then(job)

	assert.NotPanics(t, wrapped.Run)
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestLoggingWrapper(t *testing.T) {
	job := &countingJob{}
	wrapped := cron.NewChain(NewLoggingWrapper(logger.NewNop())).Then(job)

	wrapped.Run()
	assert.Equal(t, int32(1), job.runs.Load())
	assert.Equal(t, "CountingJob", jobName(job))
	assert.Equal(t, "anonymous", jobName(cron.FuncJob(func() {})))
}

func TestBackupSpec(t *testing.T) {
	assert.Equal(t, "@every 1h", BackupSpec(0))
	assert.Equal(t, "@every 1h", BackupSpec(1))
	assert.Equal(t, "@every 12h", BackupSpec(12))
}

type fakeReset struct {
	calls int
	err   error
}

func (f *fakeReset) ResetDaily(context.Context) error {
	f.calls++
	return f.err
}

type fakeSnapshots struct {
	saved   int
	pruned  int
	saveErr error
}

func (f *fakeSnapshots) Start(context.Context) error { return nil }
func (f *fakeSnapshots) Stop(context.Context) error  { return nil }

func (f *fakeSnapshots) SaveSnapshot(context.Context) error {
	f.saved++
	return f.saveErr
}

func (f *fakeSnapshots) PruneSnapshots(context.Context) (int64, error) {
	f.pruned++
	return 0, nil
}

func (f *fakeSnapshots) GetHistory(context.Context, int) ([]*domain.VisitorSnapshot, error) {
	return nil, nil
}

func TestDailyResetJob(t *testing.T) {
	reset := &fakeReset{}
	job := NewDailyResetJob(reset, logger.NewNop())
	assert.Equal(t, "DailyResetJob", job.Name())

	job.Run()
	assert.Equal(t, 1, reset.calls)

	reset.err = errors.New("store down")
	assert.NotPanics(t, job.Run)
	assert.Equal(t, 2, reset.calls)
}

func TestBackupJob(t *testing.T) {
	t.Run("saves then prunes", func(t *testing.T) {
		snapshots := &fakeSnapshots{}
		NewBackupJob(snapshots, logger.NewNop()).Run()
		assert.Equal(t, 1, snapshots.saved)
		assert.Equal(t, 1, snapshots.pruned)
	})

	t.Run("skips prune when save fails", func(t *testing.T) {
		snapshots := &fakeSnapshots{saveErr: errors.New("db down")}
		NewBackupJob(snapshots, logger.NewNop()).Run()
		assert.Equal(t, 1, snapshots.saved)
		assert.Zero(t, snapshots.pruned)
	})
}
