package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"civicwatch/internal/adapters/storage"
	domain "civicwatch/internal/domain/account"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new account store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByEmail retrieves an account by email address.
// POST: Returns the account, or ErrNotFound
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	var a domain.Account
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, role, created_at
		 FROM account WHERE email = ?`, email).
		Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("%w: %s", ErrNotFound, email)
	}
	if err != nil {
		return domain.Account{}, err
	}
	a.CreatedAt, err = time.Parse(storage.DateLayout, createdAt)
	if err != nil {
		return domain.Account{}, fmt.Errorf("parse created_at for %s: %w", email, err)
	}
	return a, nil
}

// Save inserts or updates an account, keyed by email.
// PRE: account has been validated
// POST: Account is persisted
func (s *SQLiteStore) Save(ctx context.Context, a domain.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account (id, email, password_hash, role, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
			password_hash = excluded.password_hash,
			role = excluded.role`,
		a.ID, a.Email, a.PasswordHash, a.Role, a.CreatedAt.UTC().Format(storage.DateLayout))
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// Count returns the number of accounts.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM account`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
