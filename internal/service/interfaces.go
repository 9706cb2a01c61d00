package service

import (
	"context"
	"time"

	"visitor-counter/internal/domain"
)

// CounterStore is the atomic key-value store the counting engine runs on.
// Every single-key mutation must be atomic at the store.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (value string, found bool, err error)
	GetMultiple(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, key string, value interface{}) error
	SetWithExpiry(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	SetMultiple(ctx context.Context, kvPairs map[string]interface{}, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	AddToSet(ctx context.Context, key, member string) (newlyAdded bool, err error)
	SetSize(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (int64, error)
	PushAndTrim(ctx context.Context, key, value string, maxLength int64) error
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// IncrThenExpire increments and sets the TTL as one atomic operation
	IncrThenExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)

	Health(ctx context.Context) error
}

// RateLimiter decides whether a visit from an identity may be counted
type RateLimiter interface {
	Admit(ctx context.Context, identity string, maxPerWindow int, window time.Duration) (*domain.RateLimitInfo, error)
}

// VisitorService records visits and exposes recent-visit inspection
type VisitorService interface {
	// RecordVisit validates, rate limits and counts one visit
	RecordVisit(ctx context.Context, record domain.VisitRecord) (*domain.VisitResult, error)

	// GetRecentVisits reads the bounded visit log for a day, newest first
	GetRecentVisits(ctx context.Context, date time.Time, limit int64) ([]domain.VisitRecord, error)
}

// StatsService answers dashboard queries from the counters
type StatsService interface {
	GetGlobalStats(ctx context.Context) *domain.GlobalStats
	GetPageStats(ctx context.Context) []domain.PageStats
	GetHourlyStats(ctx context.Context) []domain.HourlyStat
}

// ResetService zeroes the daily counters
type ResetService interface {
	ResetDaily(ctx context.Context) error
}

// SnapshotService backs counters up to durable storage
type SnapshotService interface {
	// Start restores counters from the latest snapshot when the store is empty
	Start(ctx context.Context) error

	// Stop saves a final snapshot
	Stop(ctx context.Context) error

	// SaveSnapshot persists the current global counters
	SaveSnapshot(ctx context.Context) error

	// PruneSnapshots removes snapshots past the retention period
	PruneSnapshots(ctx context.Context) (int64, error)

	// GetHistory lists daily snapshots for the trailing number of days
	GetHistory(ctx context.Context, days int) ([]*domain.VisitorSnapshot, error)
}

// Services aggregates all service interfaces
type Services struct {
	Visitor  VisitorService
	Stats    StatsService
	Reset    ResetService
	Snapshot SnapshotService
}
