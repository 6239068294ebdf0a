package contact

import (
	"context"
	"errors"

	domain "civicwatch/internal/domain/contact"
)

// Store errors
var ErrNotFound = errors.New("contact not found")

// Store persists digest subscribers. Email is the natural key; Save upserts
// on it so confirming twice never creates a duplicate contact.
type Store interface {
	// GetByEmail retrieves a contact by email address.
	// POST: Returns the contact, or ErrNotFound
	GetByEmail(ctx context.Context, email string) (domain.Contact, error)

	// Save inserts or updates a contact, keyed by email.
	// PRE: contact has been validated
	// POST: Contact is persisted
	Save(ctx context.Context, c domain.Contact) error

	// ListSubscribed returns every contact that has not unsubscribed,
	// ordered by email for deterministic batch partitioning.
	ListSubscribed(ctx context.Context) ([]domain.Contact, error)
}
