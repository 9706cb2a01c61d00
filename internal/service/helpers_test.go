package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"visitor-counter/internal/domain"
	"visitor-counter/pkg/logger"
	"visitor-counter/pkg/redis"
)

type testEnv struct {
	mr     *miniredis.Miniredis
	client *redis.Client
	keys   *redis.KeyBuilder
	log    *logger.Logger
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return &testEnv{
		mr:     mr,
		client: client,
		keys:   client.KeyBuilder,
		log:    logger.NewNop(),
	}
}

func testSettings() domain.CounterSettings {
	settings := domain.DefaultCounterSettings()
	settings.Location = time.UTC
	return settings
}

func (e *testEnv) newVisitorService(settings domain.CounterSettings) VisitorService {
	limiter := NewRateLimiter(e.client, e.keys, FailOpen, e.log)
	return NewVisitorService(e.client, e.keys, limiter, domain.DefaultPageCatalog(), settings, e.log)
}

func (e *testEnv) newStatsService() StatsService {
	return NewStatsService(e.client, e.keys, domain.DefaultPageCatalog(), e.log)
}

func visit(identity, page string) domain.VisitRecord {
	return domain.VisitRecord{
		ClientIdentity: identity,
		Page:           page,
		Timestamp:      time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		DeviceClass:    "desktop",
		BrowserClass:   "chrome",
	}
}
