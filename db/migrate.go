package db

import (
	"context"
	"fmt"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		image_url TEXT NOT NULL UNIQUE,
		prompt_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		message_id TEXT NOT NULL,
		queue_message_id TEXT NOT NULL UNIQUE,
		gallery_message_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_user_status ON submissions (user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_user_prompt ON submissions (user_id, prompt_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS submissions (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		image_url TEXT NOT NULL UNIQUE,
		prompt_id INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		message_id TEXT NOT NULL,
		queue_message_id TEXT NOT NULL UNIQUE,
		gallery_message_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_user_status ON submissions (user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_user_prompt ON submissions (user_id, prompt_id)`,
}

// Migrate creates the tables and indexes if they don't exist.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range s.dialect.schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
