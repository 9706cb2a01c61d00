package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"visitor-counter/internal/domain"
)

const snapshotColumns = `id, total_visitors, daily_visitors, unique_visitors, page_views, snapshot_date, created_at`

// visitorRepository handles visitor snapshot operations with PostgreSQL
type visitorRepository struct {
	pool *pgxpool.Pool
}

// NewVisitorRepository creates a new visitor repository
func NewVisitorRepository(pool *pgxpool.Pool) VisitorRepository {
	return &visitorRepository{
		pool: pool,
	}
}

// CreateSnapshot keeps one row per day; later snapshots overwrite earlier ones
func (r *visitorRepository) CreateSnapshot(ctx context.Context, snapshot *domain.VisitorSnapshot) error {
	query := `
		INSERT INTO visitor_snapshots (total_visitors, daily_visitors, unique_visitors, page_views, snapshot_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (snapshot_date) DO UPDATE SET
			total_visitors = EXCLUDED.total_visitors,
			daily_visitors = EXCLUDED.daily_visitors,
			unique_visitors = EXCLUDED.unique_visitors,
			page_views = EXCLUDED.page_views,
			created_at = EXCLUDED.created_at
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		snapshot.TotalVisitors,
		snapshot.DailyVisitors,
		snapshot.UniqueVisitors,
		snapshot.PageViews,
		snapshot.SnapshotDate.Format("2006-01-02"),
		snapshot.CreatedAt,
	).Scan(&snapshot.ID, &snapshot.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create visitor snapshot: %w", err)
	}

	return nil
}

// GetLatestSnapshot retrieves the most recent visitor snapshot
func (r *visitorRepository) GetLatestSnapshot(ctx context.Context) (*domain.VisitorSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM visitor_snapshots
		ORDER BY snapshot_date DESC, created_at DESC
		LIMIT 1
	`

	snapshot, err := scanSnapshot(r.pool.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No snapshots exist yet
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest visitor snapshot: %w", err)
	}

	return snapshot, nil
}

// GetHistoricalSnapshots retrieves visitor snapshots within a date range
func (r *visitorRepository) GetHistoricalSnapshots(ctx context.Context, startDate, endDate time.Time, limit int) ([]*domain.VisitorSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM visitor_snapshots
		WHERE snapshot_date >= $1 AND snapshot_date <= $2
		ORDER BY snapshot_date DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query,
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query historical visitor snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.VisitorSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visitor snapshot row: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading visitor snapshot rows: %w", err)
	}

	return snapshots, nil
}

// DeleteOldSnapshots removes snapshots dated before the cutoff
func (r *visitorRepository) DeleteOldSnapshots(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM visitor_snapshots
		WHERE snapshot_date < $1
	`

	result, err := r.pool.Exec(ctx, query, before.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old visitor snapshots: %w", err)
	}

	return result.RowsAffected(), nil
}

func scanSnapshot(row pgx.Row) (*domain.VisitorSnapshot, error) {
	snapshot := &domain.VisitorSnapshot{}
	err := row.Scan(
		&snapshot.ID,
		&snapshot.TotalVisitors,
		&snapshot.DailyVisitors,
		&snapshot.UniqueVisitors,
		&snapshot.PageViews,
		&snapshot.SnapshotDate,
		&snapshot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}
