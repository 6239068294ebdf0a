package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"civicwatch/internal/adapters/storage"
	domain "civicwatch/internal/domain/contact"
)

// SQLiteStore implements Store using SQLite. Topics are stored as the
// comma-joined wire blob for compatibility with the existing contact
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new contact store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByEmail retrieves a contact by email address.
// POST: Returns the contact, or ErrNotFound
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, locale, topics, unsubscribed, created_at, updated_at
		 FROM contact WHERE email = ?`, email)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Contact{}, fmt.Errorf("%w: %s", ErrNotFound, email)
	}
	return c, err
}

// Save inserts or updates a contact, keyed by email.
// PRE: contact has been validated
// POST: Contact is persisted
func (s *SQLiteStore) Save(ctx context.Context, c domain.Contact) error {
	var updatedAt sql.NullString
	if !c.UpdatedAt.IsZero() {
		updatedAt = sql.NullString{String: c.UpdatedAt.UTC().Format(storage.DateLayout), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contact (id, email, locale, topics, unsubscribed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
			locale = excluded.locale,
			topics = excluded.topics,
			unsubscribed = excluded.unsubscribed,
			updated_at = excluded.updated_at`,
		c.ID, c.Email, c.Locale, domain.JoinTopics(c.Topics),
		boolToInt(c.Unsubscribed), c.CreatedAt.UTC().Format(storage.DateLayout), updatedAt)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	return nil
}

// ListSubscribed returns every contact that has not unsubscribed, ordered by
// email for deterministic batch partitioning.
func (s *SQLiteStore) ListSubscribed(ctx context.Context) ([]domain.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, locale, topics, unsubscribed, created_at, updated_at
		 FROM contact WHERE unsubscribed = 0 ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (domain.Contact, error) {
	var c domain.Contact
	var topics string
	var unsubscribed int
	var createdAt string
	var updatedAt sql.NullString

	err := row.Scan(&c.ID, &c.Email, &c.Locale, &topics, &unsubscribed, &createdAt, &updatedAt)
	if err != nil {
		return domain.Contact{}, err
	}

	c.Topics = domain.SplitTopics(topics)
	c.Unsubscribed = unsubscribed != 0
	c.CreatedAt, err = time.Parse(storage.DateLayout, createdAt)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("parse created_at for %s: %w", c.Email, err)
	}
	if updatedAt.Valid {
		c.UpdatedAt, err = time.Parse(storage.DateLayout, updatedAt.String)
		if err != nil {
			return domain.Contact{}, fmt.Errorf("parse updated_at for %s: %w", c.Email, err)
		}
	}
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
