package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations is the ordered list of schema versions. Each entry runs at most
// once; applied versions are recorded in schema_migrations.
var migrations = []string{
	// v1: conversation state, one row per chat.
	`CREATE TABLE IF NOT EXISTS conversations (
		chat_id   TEXT PRIMARY KEY,
		token     BLOB NOT NULL,
		last_used INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_last_used ON conversations(last_used);`,

	// v2: exchange transcript for the status API.
	`CREATE TABLE IF NOT EXISTS transcript (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id   TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		query     TEXT NOT NULL,
		reply     TEXT NOT NULL,
		ts        INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcript_chat_ts ON transcript(chat_id, ts);`,
}

// migrate applies pending schema versions in order, inside one transaction
// per version. Running against an up-to-date database is a no-op.
func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY, applied_at INTEGER NOT NULL)`)
	if err != nil {
		return fmt.Errorf("sqlite: create migrations table: %w", err)
	}

	var current int
	err = db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("sqlite: begin migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: apply migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, strftime('%s','now'))`, version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlite: record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("sqlite: commit migration %d: %w", version, err)
		}
	}
	return nil
}
