package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool parses databaseURL, opens a pool and pings it.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS capsules (
		id                    TEXT PRIMARY KEY,
		owner_id              TEXT NOT NULL,
		title                 VARCHAR(200) NOT NULL CHECK (char_length(title) >= 1),
		message               TEXT,
		unlock_date           TIMESTAMPTZ NOT NULL,
		is_group              BOOLEAN NOT NULL DEFAULT FALSE,
		created_at            TIMESTAMPTZ NOT NULL,
		reminder_sent_at      TIMESTAMPTZ,
		created_email_sent_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS capsules_owner_created_idx ON capsules (owner_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS capsules_reminder_due_idx ON capsules (unlock_date) WHERE reminder_sent_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS capsule_members (
		capsule_id TEXT NOT NULL REFERENCES capsules (id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL,
		PRIMARY KEY (capsule_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS capsule_members_user_idx ON capsule_members (user_id)`,
	`CREATE TABLE IF NOT EXISTS media (
		id           TEXT PRIMARY KEY,
		capsule_id   TEXT NOT NULL REFERENCES capsules (id) ON DELETE CASCADE,
		filename     TEXT NOT NULL,
		file_path    TEXT NOT NULL,
		file_type    TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size         BIGINT NOT NULL,
		uploaded_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS media_capsule_idx ON media (capsule_id, uploaded_at)`,
}

// Migrate creates tables and indexes when missing. Safe to call on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
