package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "visitor-counter/pkg/errors"
)

func TestResetService_ResetDaily(t *testing.T) {
	env := setupTestEnv(t)
	visitors := env.newVisitorService(testSettings())
	stats := env.newStatsService()
	ctx := context.Background()

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		_, err := visitors.RecordVisit(ctx, visit(ip, "home"))
		require.NoError(t, err)
	}

	reset := NewResetService(env.client, env.keys, env.log).(*resetService)
	fixed := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	reset.now = func() time.Time { return fixed }

	require.NoError(t, reset.ResetDaily(ctx))

	global := stats.GetGlobalStats(ctx)
	assert.Zero(t, global.DailyVisitors)
	assert.Zero(t, global.DailyUniqueVisitors)
	assert.Equal(t, int64(3), global.TotalVisitors, "totals survive the reset")
	assert.Equal(t, int64(3), global.UniqueVisitors)
	assert.Equal(t, int64(3), global.PageViews)
	require.NotNil(t, global.LastReset)
	assert.True(t, fixed.Equal(*global.LastReset))

	assert.Equal(t, int64(3), stats.GetPageStats(ctx)[0].Views)
	assert.Equal(t, int64(3), stats.GetHourlyStats(ctx)[10].Visits, "hourly counters are not reset")

	// A returning identity is counted for the new day but not as a new unique
	_, err := visitors.RecordVisit(ctx, visit("10.0.0.1", "home"))
	require.NoError(t, err)
	global = stats.GetGlobalStats(ctx)
	assert.Equal(t, int64(1), global.DailyVisitors)
	assert.Equal(t, int64(1), global.DailyUniqueVisitors)
	assert.Equal(t, int64(3), global.UniqueVisitors)
}

func TestResetService_ResetDaily_Idempotent(t *testing.T) {
	env := setupTestEnv(t)
	reset := NewResetService(env.client, env.keys, env.log)
	stats := env.newStatsService()
	ctx := context.Background()

	require.NoError(t, env.mr.Set(env.keys.KeyVisitorsDaily(), "9"))
	require.NoError(t, env.mr.Set(env.keys.KeyVisitorsTotal(), "100"))

	require.NoError(t, reset.ResetDaily(ctx))
	first := stats.GetGlobalStats(ctx)

	require.NoError(t, reset.ResetDaily(ctx))
	second := stats.GetGlobalStats(ctx)

	assert.Zero(t, second.DailyVisitors)
	assert.Equal(t, first.TotalVisitors, second.TotalVisitors)
	assert.Equal(t, int64(100), second.TotalVisitors)
}

func TestResetService_ResetDaily_StoreUnavailable(t *testing.T) {
	env := setupTestEnv(t)
	reset := NewResetService(env.client, env.keys, env.log)
	env.mr.Close()

	err := reset.ResetDaily(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStoreUnavailable))
}
