package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitor-counter/internal/domain"
	apperrors "visitor-counter/pkg/errors"
)

// fakeVisitorRepository keeps snapshots in memory keyed by date
type fakeVisitorRepository struct {
	mu        sync.Mutex
	snapshots map[string]*domain.VisitorSnapshot
	err       error
	cutoff    time.Time
}

func newFakeVisitorRepository() *fakeVisitorRepository {
	return &fakeVisitorRepository{snapshots: make(map[string]*domain.VisitorSnapshot)}
}

func (f *fakeVisitorRepository) CreateSnapshot(_ context.Context, snapshot *domain.VisitorSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *snapshot
	cp.ID = int64(len(f.snapshots) + 1)
	f.snapshots[snapshot.SnapshotDate.Format(dateLayout)] = &cp
	return nil
}

func (f *fakeVisitorRepository) GetLatestSnapshot(_ context.Context) (*domain.VisitorSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var latest *domain.VisitorSnapshot
	for _, s := range f.snapshots {
		if latest == nil || s.SnapshotDate.After(latest.SnapshotDate) {
			latest = s
		}
	}
	return latest, nil
}

func (f *fakeVisitorRepository) GetHistoricalSnapshots(_ context.Context, startDate, endDate time.Time, limit int) ([]*domain.VisitorSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	start, end := startDate.Format(dateLayout), endDate.Format(dateLayout)
	var out []*domain.VisitorSnapshot
	for date, s := range f.snapshots {
		if date >= start && date <= end {
			out = append(out, s)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeVisitorRepository) DeleteOldSnapshots(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.cutoff = before
	var deleted int64
	for date := range f.snapshots {
		if date < before.Format(dateLayout) {
			delete(f.snapshots, date)
			deleted++
		}
	}
	return deleted, nil
}

func newTestSnapshotService(env *testEnv, repo *fakeVisitorRepository, now time.Time) *snapshotService {
	svc := NewSnapshotService(env.client, env.keys, env.newStatsService(), repo, time.UTC, 30*24*time.Hour, env.log).(*snapshotService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestSnapshotService_SaveSnapshot(t *testing.T) {
	env := setupTestEnv(t)
	repo := newFakeVisitorRepository()
	now := time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)
	svc := newTestSnapshotService(env, repo, now)

	require.NoError(t, env.mr.Set(env.keys.KeyVisitorsTotal(), "120"))
	require.NoError(t, env.mr.Set(env.keys.KeyVisitorsDaily(), "20"))
	require.NoError(t, env.mr.Set(env.keys.KeyVisitorsUnique(), "40"))
	require.NoError(t, env.mr.Set(env.keys.KeyVisitorsPageViews(), "150"))

	require.NoError(t, svc.SaveSnapshot(context.Background()))

	saved := repo.snapshots["2024-01-15"]
	require.NotNil(t, saved)
	assert.Equal(t, int64(120), saved.TotalVisitors)
	assert.Equal(t, int64(20), saved.DailyVisitors)
	assert.Equal(t, int64(40), saved.UniqueVisitors)
	assert.Equal(t, int64(150), saved.PageViews)
}

func TestSnapshotService_SaveSnapshot_RepositoryError(t *testing.T) {
	env := setupTestEnv(t)
	repo := newFakeVisitorRepository()
	repo.err = errors.New("connection refused")
	svc := newTestSnapshotService(env, repo, time.Now())

	assert.Error(t, svc.SaveSnapshot(context.Background()))
}

func TestSnapshotService_Start_RestoresIntoEmptyStore(t *testing.T) {
	tests := []struct {
		name          string
		snapshotDate  time.Time
		expectedDaily string
	}{
		{
			name:          "same day restores daily count",
			snapshotDate:  time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			expectedDaily: "20",
		},
		{
			name:          "previous day leaves daily count empty",
			snapshotDate:  time.Date(2024, 1, 14, 23, 0, 0, 0, time.UTC),
			expectedDaily: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			repo := newFakeVisitorRepository()
			require.NoError(t, repo.CreateSnapshot(context.Background(), &domain.VisitorSnapshot{
				TotalVisitors:  120,
				DailyVisitors:  20,
				UniqueVisitors: 40,
				PageViews:      150,
				SnapshotDate:   tt.snapshotDate,
			}))

			svc := newTestSnapshotService(env, repo, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
			require.NoError(t, svc.Start(context.Background()))

			total, err := env.mr.Get(env.keys.KeyVisitorsTotal())
			require.NoError(t, err)
			assert.Equal(t, "120", total)

			unique, err := env.mr.Get(env.keys.KeyVisitorsUnique())
			require.NoError(t, err)
			assert.Equal(t, "0", unique)

			if tt.expectedDaily == "" {
				assert.False(t, env.mr.Exists(env.keys.KeyVisitorsDaily()))
			} else {
				daily, err := env.mr.Get(env.keys.KeyVisitorsDaily())
				require.NoError(t, err)
				assert.Equal(t, tt.expectedDaily, daily)
			}
		})
	}
}

func TestSnapshotService_Start_SkipsRestoreWhenStoreHasData(t *testing.T) {
	env := setupTestEnv(t)
	repo := newFakeVisitorRepository()
	require.NoError(t, repo.CreateSnapshot(context.Background(), &domain.VisitorSnapshot{
		TotalVisitors: 999,
		SnapshotDate:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, env.mr.Set(env.keys.KeyVisitorsTotal(), "5"))

	svc := newTestSnapshotService(env, repo, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, svc.Start(context.Background()))

	total, err := env.mr.Get(env.keys.KeyVisitorsTotal())
	require.NoError(t, err)
	assert.Equal(t, "5", total)
}

func TestSnapshotService_Start_ToleratesRepositoryErrors(t *testing.T) {
	env := setupTestEnv(t)
	repo := newFakeVisitorRepository()
	repo.err = errors.New("connection refused")

	svc := newTestSnapshotService(env, repo, time.Now())
	assert.NoError(t, svc.Start(context.Background()))
}

func TestSnapshotService_Stop_SavesFinalSnapshot(t *testing.T) {
	env := setupTestEnv(t)
	repo := newFakeVisitorRepository()
	svc := newTestSnapshotService(env, repo, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	// Stop before Start is a no-op
	require.NoError(t, svc.Stop(ctx))
	assert.Empty(t, repo.snapshots)

	require.NoError(t, svc.Start(ctx))
	require.NoError(t, env.mr.Set(env.keys.KeyVisitorsTotal(), "7"))
	require.NoError(t, svc.Stop(ctx))

	require.Contains(t, repo.snapshots, "2024-01-15")
	assert.Equal(t, int64(7), repo.snapshots["2024-01-15"].TotalVisitors)
}

func TestSnapshotService_Start_UniqueCounterMatchesIdentitySet(t *testing.T) {
	env := setupTestEnv(t)
	repo := newFakeVisitorRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateSnapshot(ctx, &domain.VisitorSnapshot{
		TotalVisitors:  50,
		UniqueVisitors: 5,
		PageViews:      60,
		SnapshotDate:   time.Date(2024, 1, 14, 23, 0, 0, 0, time.UTC),
	}))

	svc := newTestSnapshotService(env, repo, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, svc.Start(ctx))

	visitors := env.newVisitorService(testSettings())
	for _, identity := range []string{"203.0.113.9", "203.0.113.9", "198.51.100.7"} {
		result, err := visitors.RecordVisit(ctx, visit(identity, "home"))
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeAccepted, result.Outcome)
	}

	setSize, err := env.client.SetSize(ctx, env.keys.KeyVisitorsIdentitySet())
	require.NoError(t, err)
	assert.Equal(t, int64(2), setSize)

	stats := env.newStatsService().GetGlobalStats(ctx)
	assert.Equal(t, setSize, stats.UniqueVisitors)
	assert.Equal(t, int64(53), stats.TotalVisitors)
}

func TestSnapshotService_Start_KeepsSurvivingIdentitySet(t *testing.T) {
	env := setupTestEnv(t)
	repo := newFakeVisitorRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateSnapshot(ctx, &domain.VisitorSnapshot{
		TotalVisitors:  50,
		UniqueVisitors: 5,
		SnapshotDate:   time.Date(2024, 1, 14, 23, 0, 0, 0, time.UTC),
	}))
	_, err := env.mr.SetAdd(env.keys.KeyVisitorsIdentitySet(), "203.0.113.9", "198.51.100.7", "192.0.2.1")
	require.NoError(t, err)

	svc := newTestSnapshotService(env, repo, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, svc.Start(ctx))

	unique, err := env.mr.Get(env.keys.KeyVisitorsUnique())
	require.NoError(t, err)
	assert.Equal(t, "3", unique)
}

func TestSnapshotService_PruneSnapshots(t *testing.T) {
	env := setupTestEnv(t)
	repo := newFakeVisitorRepository()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestSnapshotService(env, repo, now)
	ctx := context.Background()

	for _, d := range []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
	} {
		require.NoError(t, repo.CreateSnapshot(ctx, &domain.VisitorSnapshot{SnapshotDate: d}))
	}

	deleted, err := svc.PruneSnapshots(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, now.Add(-30*24*time.Hour), repo.cutoff)
	assert.Contains(t, repo.snapshots, "2024-02-20")
}

func TestSnapshotService_GetHistory(t *testing.T) {
	env := setupTestEnv(t)
	repo := newFakeVisitorRepository()
	svc := newTestSnapshotService(env, repo, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	t.Run("empty history is not nil", func(t *testing.T) {
		history, err := svc.GetHistory(ctx, 7)
		require.NoError(t, err)
		assert.NotNil(t, history)
		assert.Empty(t, history)
	})

	t.Run("returns snapshots in range", func(t *testing.T) {
		require.NoError(t, repo.CreateSnapshot(ctx, &domain.VisitorSnapshot{SnapshotDate: time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)}))
		require.NoError(t, repo.CreateSnapshot(ctx, &domain.VisitorSnapshot{SnapshotDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}))

		history, err := svc.GetHistory(ctx, 7)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("rejects out of range days", func(t *testing.T) {
		for _, days := range []int{0, -1, 367} {
			_, err := svc.GetHistory(ctx, days)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "days=%d", days)
		}
	})
}
