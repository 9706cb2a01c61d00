package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
	"time"

	"visitor-counter/internal/domain"
	apperrors "visitor-counter/pkg/errors"
	"visitor-counter/pkg/logger"
	"visitor-counter/pkg/redis"
)

// FailurePolicy controls admission when the counter store cannot be reached
type FailurePolicy string

const (
	FailOpen   FailurePolicy = "open"   // admit and log a warning
	FailClosed FailurePolicy = "closed" // surface a store_unavailable error
	FailLocal  FailurePolicy = "local"  // fall back to an in-process token bucket
)

// ParseFailurePolicy parses RATE_LIMIT_FAILURE_POLICY
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FailOpen, nil
	case FailOpen, FailClosed, FailLocal:
		return p, nil
	default:
		return "", fmt.Errorf("unknown rate limit failure policy %q", s)
	}
}

// rateLimiter counts hits per identity in a window that starts with the first
// hit after the previous one expired. Admitted hits push the expiry out again;
// denied hits leave it alone. Bursts at a boundary can admit up to 2x the limit.
type rateLimiter struct {
	store  CounterStore
	keys   *redis.KeyBuilder
	logger *logger.Logger
	policy FailurePolicy
	local  *localLimiters
	now    func() time.Time
}

// NewRateLimiter creates a store-backed rate limiter
func NewRateLimiter(store CounterStore, keys *redis.KeyBuilder, policy FailurePolicy, log *logger.Logger) RateLimiter {
	return &rateLimiter{
		store:  store,
		keys:   keys,
		logger: log.Component("rate_limiter"),
		policy: policy,
		local:  newLocalLimiters(15 * time.Minute),
		now:    time.Now,
	}
}

// Admit checks the identity's window counter and, when below the limit,
// increments it and refreshes its expiry in one atomic step.
func (l *rateLimiter) Admit(ctx context.Context, identity string, maxPerWindow int, window time.Duration) (*domain.RateLimitInfo, error) {
	now := l.now()
	if maxPerWindow <= 0 {
		return &domain.RateLimitInfo{Identity: identity, IsAllowed: true}, nil
	}

	key := l.keys.KeyVisitorsRateLimit(hashIdentity(identity))

	raw, found, err := l.store.Get(ctx, key)
	if err != nil {
		return l.onStoreFailure(identity, maxPerWindow, window, now, err)
	}

	if found {
		current, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return l.onStoreFailure(identity, maxPerWindow, window, now, fmt.Errorf("corrupt rate limit counter: %w", parseErr))
		}
		if current >= int64(maxPerWindow) {
			return &domain.RateLimitInfo{
				Identity:     identity,
				RequestCount: current,
				Limit:        maxPerWindow,
				Remaining:    0,
				ResetAt:      now.Add(window),
				IsAllowed:    false,
			}, nil
		}
	}

	count, err := l.store.IncrThenExpire(ctx, key, window)
	if err != nil {
		return l.onStoreFailure(identity, maxPerWindow, window, now, err)
	}

	return &domain.RateLimitInfo{
		Identity:     identity,
		RequestCount: count,
		Limit:        maxPerWindow,
		Remaining:    max(0, int64(maxPerWindow)-count),
		ResetAt:      now.Add(window),
		IsAllowed:    true,
	}, nil
}

func (l *rateLimiter) onStoreFailure(identity string, maxPerWindow int, window time.Duration, now time.Time, cause error) (*domain.RateLimitInfo, error) {
	switch l.policy {
	case FailClosed:
		return nil, apperrors.NewStoreUnavailableError("rate limit store unavailable", cause)
	case FailLocal:
		allowed := l.local.allow(identity, maxPerWindow, window, now)
		l.logger.WithError(cause).WithField("allowed", allowed).Warn("Rate limit store unavailable, using local limiter")
		return &domain.RateLimitInfo{
			Identity:  identity,
			Limit:     maxPerWindow,
			ResetAt:   now.Add(window),
			IsAllowed: allowed,
			Degraded:  true,
		}, nil
	default:
		l.logger.WithError(cause).Warn("Rate limit store unavailable, admitting visit")
		return &domain.RateLimitInfo{
			Identity:  identity,
			Limit:     maxPerWindow,
			Remaining: int64(maxPerWindow),
			ResetAt:   now.Add(window),
			IsAllowed: true,
			Degraded:  true,
		}, nil
	}
}

// hashIdentity keeps raw addresses out of key names
func hashIdentity(identity string) string {
	hash := sha256.Sum256([]byte(identity))
	return fmt.Sprintf("%x", hash)[:16]
}
