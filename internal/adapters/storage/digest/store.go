package digest

import (
	"context"
	"errors"

	domain "civicwatch/internal/domain/digest"
)

// Store errors. Conflict is retryable after a fresh read; callers must never
// write through it blindly.
var (
	ErrNotFound = errors.New("no digest record for week")
	ErrExists   = errors.New("digest record already exists for week")
	ErrConflict = errors.New("digest record was modified concurrently")
)

// Store persists one versioned digest record per ISO week. Every mutation
// follows read → mutate → write-with-expected-revision; the store rejects a
// write whose expected revision is stale (compare-and-swap).
type Store interface {
	// Get retrieves the record and its current revision.
	// PRE: week is non-empty
	// POST: Returns the record and revision, or ErrNotFound
	Get(ctx context.Context, week string) (domain.Record, int64, error)

	// Create inserts a new record at revision 1. First writer wins.
	// PRE: record has been validated
	// POST: Record is persisted, or ErrExists if the week already has one
	Create(ctx context.Context, record domain.Record) error

	// Update writes the record if the stored revision still equals
	// expectedRevision, bumping the revision.
	// PRE: expectedRevision came from a preceding Get
	// POST: Record persisted at expectedRevision+1, or ErrConflict/ErrNotFound
	Update(ctx context.Context, record domain.Record, expectedRevision int64) error
}
