package digest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "civicwatch/internal/domain/digest"
)

// SQLiteStore implements Store using SQLite. The record is stored as one
// JSON object per week so it round-trips without field loss; the revision
// column carries the optimistic-concurrency token.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new digest store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves the record and its current revision.
// PRE: week is non-empty
// POST: Returns the record and revision, or ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, week string) (domain.Record, int64, error) {
	var raw string
	var revision int64
	err := s.db.QueryRowContext(ctx,
		`SELECT record, revision FROM digest WHERE week = ?`, week).Scan(&raw, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, 0, fmt.Errorf("%w: %s", ErrNotFound, week)
	}
	if err != nil {
		return domain.Record{}, 0, err
	}

	var record domain.Record
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return domain.Record{}, 0, fmt.Errorf("decode digest record %s: %w", week, err)
	}
	return record, revision, nil
}

// Create inserts a new record at revision 1. First writer wins; a losing
// concurrent composer gets ErrExists and must treat it as a no-op.
// PRE: record has been validated
// POST: Record is persisted, or ErrExists if the week already has one
func (s *SQLiteStore) Create(ctx context.Context, record domain.Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode digest record %s: %w", record.Week, err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO digest (week, record, revision) VALUES (?, ?, 1)
		 ON CONFLICT(week) DO NOTHING`,
		record.Week, string(raw))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrExists, record.Week)
	}
	return nil
}

// Update writes the record only if the stored revision still equals
// expectedRevision (compare-and-swap). A zero-row update means another
// writer got there first (or the row vanished) and is never papered over.
// PRE: expectedRevision came from a preceding Get
// POST: Record persisted at expectedRevision+1, or ErrConflict/ErrNotFound
func (s *SQLiteStore) Update(ctx context.Context, record domain.Record, expectedRevision int64) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode digest record %s: %w", record.Week, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE digest SET record = ?, revision = revision + 1
		 WHERE week = ? AND revision = ?`,
		string(raw), record.Week, expectedRevision)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Distinguish a stale revision from a missing row.
	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM digest WHERE week = ?`, record.Week).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, record.Week)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s at revision %d", ErrConflict, record.Week, expectedRevision)
}
