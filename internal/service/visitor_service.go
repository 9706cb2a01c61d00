package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"visitor-counter/internal/domain"
	apperrors "visitor-counter/pkg/errors"
	"visitor-counter/pkg/logger"
	"visitor-counter/pkg/redis"
)

const dateLayout = "2006-01-02"

// visitorService records visits into the counter store
type visitorService struct {
	store    CounterStore
	keys     *redis.KeyBuilder
	limiter  RateLimiter
	catalog  domain.PageCatalog
	settings domain.CounterSettings
	logger   *logger.Logger
}

// NewVisitorService creates a new visitor service
func NewVisitorService(store CounterStore, keys *redis.KeyBuilder, limiter RateLimiter, catalog domain.PageCatalog, settings domain.CounterSettings, log *logger.Logger) VisitorService {
	if settings.Location == nil {
		settings.Location = time.Local
	}
	if settings.RecentVisitsLimit <= 0 {
		settings.RecentVisitsLimit = domain.DefaultCounterSettings().RecentVisitsLimit
	}
	if settings.RecentVisitsRetention <= 0 {
		settings.RecentVisitsRetention = domain.DefaultCounterSettings().RecentVisitsRetention
	}

	return &visitorService{
		store:    store,
		keys:     keys,
		limiter:  limiter,
		catalog:  catalog,
		settings: settings,
		logger:   log.Component("visitor_service"),
	}
}

// RecordVisit records one visit. Rejected and rate-limited visits never touch
// the aggregate counters. Once the primary counters (total, daily, page views)
// are written the visit counts as accepted; later step failures are logged only.
func (s *visitorService) RecordVisit(ctx context.Context, record domain.VisitRecord) (*domain.VisitResult, error) {
	if appErr := validateRecord(record); appErr != nil {
		s.logger.WithField("details", appErr.Details).Debug("Rejected malformed visit record")
		return &domain.VisitResult{Outcome: domain.OutcomeRejected, Reason: domain.ReasonInvalidRecord}, appErr
	}

	if record.IsAutomated {
		return &domain.VisitResult{Outcome: domain.OutcomeRejected, Reason: domain.ReasonAutomatedTraffic}, nil
	}

	rateLimitInfo, err := s.limiter.Admit(ctx, record.ClientIdentity, s.settings.MaxVisitorsPerIdentity, s.settings.RateWindow)
	if err != nil {
		s.logger.WithError(err).Error("Failed to check rate limit")
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	if !rateLimitInfo.IsAllowed {
		s.logger.WithFields(map[string]interface{}{
			"ip":            record.ClientIdentity,
			"request_count": rateLimitInfo.RequestCount,
		}).Warn("Rate limit exceeded")
		return &domain.VisitResult{Outcome: domain.OutcomeRateLimited, RateLimit: rateLimitInfo}, nil
	}

	if err := s.incrementPrimary(ctx); err != nil {
		return nil, err
	}

	s.updateAuxiliary(ctx, record)

	s.logger.WithFields(map[string]interface{}{
		"page":          record.Page,
		"request_count": rateLimitInfo.RequestCount,
	}).Debug("Visit recorded successfully")

	return &domain.VisitResult{Outcome: domain.OutcomeAccepted, RateLimit: rateLimitInfo}, nil
}

// incrementPrimary bumps total, daily and global page views in that order
func (s *visitorService) incrementPrimary(ctx context.Context) error {
	steps := []struct {
		name string
		key  string
	}{
		{"total_visitors", s.keys.KeyVisitorsTotal()},
		{"daily_visitors", s.keys.KeyVisitorsDaily()},
		{"page_views", s.keys.KeyVisitorsPageViews()},
	}

	for i, step := range steps {
		if _, err := s.store.Incr(ctx, step.key); err != nil {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"step":    step.name,
				"partial": i > 0,
			}).Error("Failed to record visit")
			return apperrors.NewStoreUnavailableError("failed to record visit", err)
		}
	}
	return nil
}

// updateAuxiliary applies per-page, per-hour, unique and log updates.
// Each step is independent; failures are never rolled back or retried.
func (s *visitorService) updateAuxiliary(ctx context.Context, record domain.VisitRecord) {
	at := record.Timestamp.In(s.settings.Location)

	if s.catalog.Contains(record.Page) {
		if _, err := s.store.Incr(ctx, s.keys.KeyVisitorsPage(record.Page)); err != nil {
			s.partialFailure("page_views_by_page", err)
		}
	}

	if _, err := s.store.Incr(ctx, s.keys.KeyVisitorsHour(at.Hour())); err != nil {
		s.partialFailure("hourly_visits", err)
	}

	if s.settings.CountUniqueIdentities {
		s.trackUnique(ctx, record.ClientIdentity)
	}

	if err := s.appendRecentVisit(ctx, record, at); err != nil {
		s.partialFailure("recent_visit_log", err)
	}
}

func (s *visitorService) trackUnique(ctx context.Context, identity string) {
	added, err := s.store.AddToSet(ctx, s.keys.KeyVisitorsIdentitySet(), identity)
	if err != nil {
		s.partialFailure("unique_visitor_set", err)
	} else if added {
		if _, err := s.store.Incr(ctx, s.keys.KeyVisitorsUnique()); err != nil {
			s.partialFailure("unique_visitors", err)
		}
	}

	if _, err := s.store.AddToSet(ctx, s.keys.KeyVisitorsDailySet(), identity); err != nil {
		s.partialFailure("daily_unique_visitor_set", err)
	}
}

func (s *visitorService) appendRecentVisit(ctx context.Context, record domain.VisitRecord, at time.Time) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal visit: %w", err)
	}

	key := s.keys.KeyVisitorsDetails(at.Format(dateLayout))
	if err := s.store.PushAndTrim(ctx, key, string(payload), s.settings.RecentVisitsLimit); err != nil {
		return fmt.Errorf("failed to append visit: %w", err)
	}
	if err := s.store.Expire(ctx, key, s.settings.RecentVisitsRetention); err != nil {
		return fmt.Errorf("failed to refresh visit log expiry: %w", err)
	}
	return nil
}

func (s *visitorService) partialFailure(step string, err error) {
	s.logger.WithError(err).WithField("step", step).Warn("Partial update failure while recording visit")
}

// GetRecentVisits returns up to limit visits logged on date, newest first
func (s *visitorService) GetRecentVisits(ctx context.Context, date time.Time, limit int64) ([]domain.VisitRecord, error) {
	if limit <= 0 || limit > s.settings.RecentVisitsLimit {
		limit = s.settings.RecentVisitsLimit
	}

	key := s.keys.KeyVisitorsDetails(date.In(s.settings.Location).Format(dateLayout))
	raw, err := s.store.ListRange(ctx, key, 0, limit-1)
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("failed to read recent visits", err)
	}

	visits := make([]domain.VisitRecord, 0, len(raw))
	for _, entry := range raw {
		var record domain.VisitRecord
		if err := json.Unmarshal([]byte(entry), &record); err != nil {
			s.logger.WithError(err).Warn("Skipping corrupt recent visit entry")
			continue
		}
		visits = append(visits, record)
	}
	return visits, nil
}
