package storage

import (
	"database/sql"
	"fmt"
)

// DateLayout is the canonical timestamp encoding for all stores.
const DateLayout = "2006-01-02T15:04:05.999999999Z07:00"

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// Enable foreign key enforcement
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Create tables
	schema := `
	CREATE TABLE IF NOT EXISTS digest (
		week TEXT PRIMARY KEY,
		record TEXT NOT NULL,
		revision INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS contact (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		locale TEXT NOT NULL,
		topics TEXT NOT NULL DEFAULT '',
		unsubscribed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_contact_subscribed ON contact(unsubscribed, email);

	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
