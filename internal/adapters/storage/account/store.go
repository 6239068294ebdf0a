package account

import (
	"context"
	"errors"

	domain "civicwatch/internal/domain/account"
)

// Store errors
var ErrNotFound = errors.New("account not found")

// Store persists editorial accounts.
type Store interface {
	// GetByEmail retrieves an account by email address.
	// POST: Returns the account, or ErrNotFound
	GetByEmail(ctx context.Context, email string) (domain.Account, error)

	// Save inserts or updates an account, keyed by email.
	// PRE: account has been validated
	// POST: Account is persisted
	Save(ctx context.Context, a domain.Account) error

	// Count returns the number of accounts. Used to decide whether the
	// bootstrap admin needs seeding.
	Count(ctx context.Context) (int, error)
}
