package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"visitor-counter/internal/domain"
	"visitor-counter/internal/repository"
	apperrors "visitor-counter/pkg/errors"
	"visitor-counter/pkg/logger"
	"visitor-counter/pkg/redis"
)

const (
	defaultSnapshotRetention = 90 * 24 * time.Hour
	maxHistoryDays           = 366
)

// snapshotService backs the scalar counters up to PostgreSQL and restores
// them into an empty store on startup
type snapshotService struct {
	store       CounterStore
	keys        *redis.KeyBuilder
	stats       StatsService
	visitorRepo repository.VisitorRepository
	logger      *logger.Logger
	location    *time.Location
	retention   time.Duration
	mu          sync.Mutex
	isRunning   bool
	now         func() time.Time
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(store CounterStore, keys *redis.KeyBuilder, stats StatsService, visitorRepo repository.VisitorRepository, location *time.Location, retention time.Duration, log *logger.Logger) SnapshotService {
	if location == nil {
		location = time.Local
	}
	if retention <= 0 {
		retention = defaultSnapshotRetention
	}
	return &snapshotService{
		store:       store,
		keys:        keys,
		stats:       stats,
		visitorRepo: visitorRepo,
		logger:      log.Component("snapshot_service"),
		location:    location,
		retention:   retention,
		now:         time.Now,
	}
}

// Start restores from the last SQL snapshot if the store has no counters yet
func (s *snapshotService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	s.logger.Info("Starting snapshot service...")
	if err := s.restoreFromSnapshot(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to restore from snapshot, continuing with current counters")
	}

	s.isRunning = true
	return nil
}

// Stop saves a final snapshot
func (s *snapshotService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.logger.Info("Stopping snapshot service...")
	s.isRunning = false

	if err := s.SaveSnapshot(ctx); err != nil {
		return fmt.Errorf("failed to save final snapshot: %w", err)
	}
	return nil
}

// SaveSnapshot persists the current global counters
func (s *snapshotService) SaveSnapshot(ctx context.Context) error {
	stats := s.stats.GetGlobalStats(ctx)
	now := s.now()

	snapshot := &domain.VisitorSnapshot{
		TotalVisitors:  stats.TotalVisitors,
		DailyVisitors:  stats.DailyVisitors,
		UniqueVisitors: stats.UniqueVisitors,
		PageViews:      stats.PageViews,
		SnapshotDate:   now.In(s.location),
		CreatedAt:      now,
	}

	if err := s.visitorRepo.CreateSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"total_visitors":  snapshot.TotalVisitors,
		"daily_visitors":  snapshot.DailyVisitors,
		"unique_visitors": snapshot.UniqueVisitors,
		"page_views":      snapshot.PageViews,
	}).Debug("Visitor snapshot saved successfully")

	return nil
}

func (s *snapshotService) restoreFromSnapshot(ctx context.Context) error {
	exists, err := s.store.Exists(ctx, s.keys.KeyVisitorsTotal())
	if err != nil {
		return fmt.Errorf("failed to check if store has visitor data: %w", err)
	}

	if exists > 0 {
		s.logger.Info("Store already contains visitor data, skipping restore")
		return nil
	}

	snapshot, err := s.visitorRepo.GetLatestSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	if snapshot == nil {
		s.logger.Info("No visitor snapshot found, starting with zero counters")
		return nil
	}

	// Snapshots carry no identities; the unique counter must equal the
	// identity set's cardinality, not the saved value.
	setSize, err := s.store.SetSize(ctx, s.keys.KeyVisitorsIdentitySet())
	if err != nil {
		return fmt.Errorf("failed to read unique visitor set: %w", err)
	}

	values := map[string]interface{}{
		s.keys.KeyVisitorsTotal():     snapshot.TotalVisitors,
		s.keys.KeyVisitorsUnique():    setSize,
		s.keys.KeyVisitorsPageViews(): snapshot.PageViews,
	}

	// The daily count only carries over within the same day
	today := s.now().In(s.location).Format(dateLayout)
	if snapshot.SnapshotDate.In(s.location).Format(dateLayout) == today {
		values[s.keys.KeyVisitorsDaily()] = snapshot.DailyVisitors
	}

	if err := s.store.SetMultiple(ctx, values, 0); err != nil {
		return fmt.Errorf("failed to restore snapshot to store: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"total_visitors":  snapshot.TotalVisitors,
		"daily_visitors":  snapshot.DailyVisitors,
		"unique_visitors": setSize,
		"snapshot_date":   snapshot.SnapshotDate,
	}).Info("Successfully restored visitor data from snapshot")

	return nil
}

// PruneSnapshots drops snapshots older than the retention period
func (s *snapshotService) PruneSnapshots(ctx context.Context) (int64, error) {
	cutoff := s.now().In(s.location).Add(-s.retention)
	deleted, err := s.visitorRepo.DeleteOldSnapshots(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("Pruned old visitor snapshots")
	}
	return deleted, nil
}

// GetHistory returns one snapshot per day for the last days days, newest first
func (s *snapshotService) GetHistory(ctx context.Context, days int) ([]*domain.VisitorSnapshot, error) {
	if days <= 0 || days > maxHistoryDays {
		return nil, apperrors.NewValidationError("days out of range", map[string]interface{}{
			"days": fmt.Sprintf("must be between 1 and %d", maxHistoryDays),
		})
	}

	end := s.now().In(s.location)
	start := end.AddDate(0, 0, -(days - 1))

	snapshots, err := s.visitorRepo.GetHistoricalSnapshots(ctx, start, end, days)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load snapshot history", err)
	}
	if snapshots == nil {
		snapshots = []*domain.VisitorSnapshot{}
	}
	return snapshots, nil
}
