package domain

import (
	"time"
)

// VisitRecord is one already-classified visit event handed to the recorder
type VisitRecord struct {
	ClientIdentity string    `json:"ip_address" validate:"required,ip"`
	Page           string    `json:"page" validate:"required,max=64,printascii"`
	Timestamp      time.Time `json:"timestamp" validate:"required"`
	DeviceClass    string    `json:"device_type,omitempty" validate:"omitempty,max=32"`
	BrowserClass   string    `json:"browser,omitempty" validate:"omitempty,max=32"`
	Region         string    `json:"governorate,omitempty" validate:"omitempty,max=64"`
	UserAgent      string    `json:"user_agent,omitempty" validate:"omitempty,max=512"`
	IsAutomated    bool      `json:"-"`
}

// VisitOutcome is what happened to a recorded visit
type VisitOutcome string

const (
	OutcomeAccepted    VisitOutcome = "accepted"
	OutcomeRateLimited VisitOutcome = "rate_limited"
	OutcomeRejected    VisitOutcome = "rejected"
)

// Rejection reasons
const (
	ReasonInvalidRecord    = "invalid_record"
	ReasonAutomatedTraffic = "automated_traffic"
)

// VisitResult is returned by the recorder for every call
type VisitResult struct {
	Outcome   VisitOutcome   `json:"outcome"`
	Reason    string         `json:"reason,omitempty"`
	RateLimit *RateLimitInfo `json:"rate_limit,omitempty"`
}

// RateLimitInfo represents rate limiting information
type RateLimitInfo struct {
	Identity     string    `json:"-"`
	RequestCount int64     `json:"request_count"`
	Limit        int       `json:"limit"`
	Remaining    int64     `json:"remaining"`
	ResetAt      time.Time `json:"reset_at"`
	IsAllowed    bool      `json:"is_allowed"`
	Degraded     bool      `json:"degraded,omitempty"` // admitted without consulting the store
}

// GlobalStats is the point-in-time snapshot of the scalar counters
type GlobalStats struct {
	TotalVisitors       int64      `json:"total_visitors"`
	DailyVisitors       int64      `json:"daily_visitors"`
	UniqueVisitors      int64      `json:"unique_visitors"`
	DailyUniqueVisitors int64      `json:"daily_unique_visitors"`
	PageViews           int64      `json:"page_views"`
	LastReset           *time.Time `json:"last_reset"`
}

// PageStats holds per-page view counts for one tracked page
type PageStats struct {
	Page                    string `json:"page"`
	DisplayName             string `json:"page_name"`
	Views                   int64  `json:"views"`
	EstimatedUniqueVisitors int64  `json:"unique_visitors"`
}

// HourlyStat is the all-time visit count for one hour of the day
type HourlyStat struct {
	Hour       int    `json:"hour"`
	Visits     int64  `json:"visits"`
	Period     string `json:"period"`
	PeriodName string `json:"period_name"`
}

// CounterSettings configures the rate limiter and recorder
type CounterSettings struct {
	MaxVisitorsPerIdentity int
	RateWindow             time.Duration
	CountUniqueIdentities  bool
	DailyResetEnabled      bool
	RecentVisitsLimit      int64
	RecentVisitsRetention  time.Duration
	Location               *time.Location
}

// DefaultCounterSettings mirrors the service defaults
func DefaultCounterSettings() CounterSettings {
	return CounterSettings{
		MaxVisitorsPerIdentity: 10,
		RateWindow:             60 * time.Second,
		CountUniqueIdentities:  true,
		DailyResetEnabled:      true,
		RecentVisitsLimit:      1000,
		RecentVisitsRetention:  7 * 24 * time.Hour,
		Location:               time.Local,
	}
}

// VisitorSnapshot represents a backup of the scalar counters stored in PostgreSQL
type VisitorSnapshot struct {
	ID             int64     `json:"id" db:"id"`
	TotalVisitors  int64     `json:"total_visitors" db:"total_visitors"`
	DailyVisitors  int64     `json:"daily_visitors" db:"daily_visitors"`
	UniqueVisitors int64     `json:"unique_visitors" db:"unique_visitors"`
	PageViews      int64     `json:"page_views" db:"page_views"`
	SnapshotDate   time.Time `json:"snapshot_date" db:"snapshot_date"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
