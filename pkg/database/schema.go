package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS visitor_snapshots (
		id BIGSERIAL PRIMARY KEY,
		total_visitors BIGINT NOT NULL DEFAULT 0,
		daily_visitors BIGINT NOT NULL DEFAULT 0,
		unique_visitors BIGINT NOT NULL DEFAULT 0,
		page_views BIGINT NOT NULL DEFAULT 0,
		snapshot_date DATE NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visitor_snapshots_created_at ON visitor_snapshots (created_at DESC)`,
}

var dropStatements = []string{
	`DROP TABLE IF EXISTS visitor_snapshots CASCADE`,
}

// CreateSchema creates the snapshot tables; safe to run repeatedly
func CreateSchema(ctx context.Context, db Execer) error {
	return execAll(ctx, db, createStatements)
}

// DropSchema removes every table CreateSchema creates
func DropSchema(ctx context.Context, db Execer) error {
	return execAll(ctx, db, dropStatements)
}

func execAll(ctx context.Context, db Execer, statements []string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}
