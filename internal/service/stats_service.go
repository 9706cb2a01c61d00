package service

import (
	"context"
	"strconv"
	"time"

	"visitor-counter/internal/domain"
	"visitor-counter/pkg/logger"
	"visitor-counter/pkg/redis"
)

const hoursPerDay = 24

// statsService reads counter snapshots. Store failures degrade to zero
// values so dashboards keep rendering.
type statsService struct {
	store   CounterStore
	keys    *redis.KeyBuilder
	catalog domain.PageCatalog
	logger  *logger.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(store CounterStore, keys *redis.KeyBuilder, catalog domain.PageCatalog, log *logger.Logger) StatsService {
	return &statsService{
		store:   store,
		keys:    keys,
		catalog: catalog,
		logger:  log.Component("stats_service"),
	}
}

// GetGlobalStats reads the scalar counters; missing keys read as zero
func (s *statsService) GetGlobalStats(ctx context.Context) *domain.GlobalStats {
	totalKey := s.keys.KeyVisitorsTotal()
	dailyKey := s.keys.KeyVisitorsDaily()
	uniqueKey := s.keys.KeyVisitorsUnique()
	viewsKey := s.keys.KeyVisitorsPageViews()
	resetKey := s.keys.KeyVisitorsLastReset()

	stats := &domain.GlobalStats{}

	vals, err := s.store.GetMultiple(ctx, totalKey, dailyKey, uniqueKey, viewsKey, resetKey)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read global stats, returning defaults")
		return stats
	}

	stats.TotalVisitors = s.parseCount(totalKey, vals[totalKey])
	stats.DailyVisitors = s.parseCount(dailyKey, vals[dailyKey])
	stats.UniqueVisitors = s.parseCount(uniqueKey, vals[uniqueKey])
	stats.PageViews = s.parseCount(viewsKey, vals[viewsKey])

	if raw, ok := vals[resetKey]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			stats.LastReset = &ts
		} else {
			s.logger.WithError(err).Warn("Ignoring unparsable last reset timestamp")
		}
	}

	dailyUnique, err := s.store.SetSize(ctx, s.keys.KeyVisitorsDailySet())
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read daily unique visitors")
	} else {
		stats.DailyUniqueVisitors = dailyUnique
	}

	return stats
}

// GetPageStats returns one entry per catalog page, in catalog order
func (s *statsService) GetPageStats(ctx context.Context) []domain.PageStats {
	keys := make([]string, len(s.catalog))
	for i, p := range s.catalog {
		keys[i] = s.keys.KeyVisitorsPage(p.Page)
	}

	vals, err := s.store.GetMultiple(ctx, keys...)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read page stats, returning zeros")
		vals = map[string]string{}
	}

	stats := make([]domain.PageStats, len(s.catalog))
	for i, p := range s.catalog {
		views := s.parseCount(keys[i], vals[keys[i]])
		stats[i] = domain.PageStats{
			Page:                    p.Page,
			DisplayName:             p.DisplayName,
			Views:                   views,
			EstimatedUniqueVisitors: EstimateUniqueVisitors(views),
		}
	}
	return stats
}

// GetHourlyStats returns all 24 hours in ascending order, zero-filled
func (s *statsService) GetHourlyStats(ctx context.Context) []domain.HourlyStat {
	keys := make([]string, hoursPerDay)
	for h := range hoursPerDay {
		keys[h] = s.keys.KeyVisitorsHour(h)
	}

	vals, err := s.store.GetMultiple(ctx, keys...)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read hourly stats, returning zeros")
		vals = map[string]string{}
	}

	stats := make([]domain.HourlyStat, hoursPerDay)
	for h := range hoursPerDay {
		period := HourPeriod(h)
		stats[h] = domain.HourlyStat{
			Hour:       h,
			Visits:     s.parseCount(keys[h], vals[keys[h]]),
			Period:     period,
			PeriodName: HourPeriodName(period),
		}
	}
	return stats
}

func (s *statsService) parseCount(key, raw string) int64 {
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Ignoring non-numeric counter")
		return 0
	}
	return n
}

// EstimateUniqueVisitors is a rough per-page guess: one unique visitor per
// three views, at least one once a page has any views.
func EstimateUniqueVisitors(views int64) int64 {
	if views <= 0 {
		return 0
	}
	return max(1, views/3)
}

// HourPeriod buckets an hour of day into a named period
func HourPeriod(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

// HourPeriodName is the Arabic display label for a period
func HourPeriodName(period string) string {
	switch period {
	case "morning":
		return "صباحاً"
	case "afternoon":
		return "بعد الظهر"
	case "evening":
		return "مساءً"
	case "night":
		return "ليلاً"
	default:
		return "غير محدد"
	}
}
