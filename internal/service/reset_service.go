package service

import (
	"context"
	"time"

	apperrors "visitor-counter/pkg/errors"
	"visitor-counter/pkg/logger"
	"visitor-counter/pkg/redis"
)

// resetService zeroes daily-scoped counters. Totals, per-page counters,
// hourly counters and the global unique set are left alone.
type resetService struct {
	store  CounterStore
	keys   *redis.KeyBuilder
	logger *logger.Logger
	now    func() time.Time
}

// NewResetService creates a new reset service
func NewResetService(store CounterStore, keys *redis.KeyBuilder, log *logger.Logger) ResetService {
	return &resetService{
		store:  store,
		keys:   keys,
		logger: log.Component("reset_service"),
		now:    time.Now,
	}
}

// ResetDaily is idempotent. lastReset is only written after the daily
// counter and daily unique set were cleared.
func (s *resetService) ResetDaily(ctx context.Context) error {
	if err := s.store.Set(ctx, s.keys.KeyVisitorsDaily(), 0); err != nil {
		s.logger.WithError(err).Error("Failed to reset daily visitors")
		return apperrors.NewStoreUnavailableError("failed to reset daily visitors", err)
	}

	if err := s.store.Delete(ctx, s.keys.KeyVisitorsDailySet()); err != nil {
		s.logger.WithError(err).Error("Failed to clear daily unique visitor set")
		return apperrors.NewStoreUnavailableError("failed to clear daily unique visitors", err)
	}

	resetAt := s.now()
	if err := s.store.Set(ctx, s.keys.KeyVisitorsLastReset(), resetAt.Format(time.RFC3339Nano)); err != nil {
		s.logger.WithError(err).Error("Failed to record last reset timestamp")
		return apperrors.NewStoreUnavailableError("failed to record last reset", err)
	}

	s.logger.WithField("reset_at", resetAt).Info("Daily counters reset successfully")
	return nil
}
