package repository

import (
	"context"
	"time"

	"visitor-counter/internal/domain"
)

// VisitorRepository defines the interface for visitor snapshot operations
type VisitorRepository interface {
	// CreateSnapshot upserts the snapshot for its snapshot date
	CreateSnapshot(ctx context.Context, snapshot *domain.VisitorSnapshot) error

	// GetLatestSnapshot retrieves the most recent visitor snapshot, or nil if none exist
	GetLatestSnapshot(ctx context.Context) (*domain.VisitorSnapshot, error)

	// GetHistoricalSnapshots retrieves visitor snapshots within a date range, newest first
	GetHistoricalSnapshots(ctx context.Context, startDate, endDate time.Time, limit int) ([]*domain.VisitorSnapshot, error)

	// DeleteOldSnapshots removes snapshots dated before the cutoff
	DeleteOldSnapshots(ctx context.Context, before time.Time) (int64, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Visitor VisitorRepository
}
