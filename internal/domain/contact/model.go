package contact

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// MaxEmailLength bounds the user-supplied email address.
const MaxEmailLength = 254

// Domain errors
var (
	ErrEmptyEmail    = errors.New("email cannot be empty")
	ErrInvalidEmail  = errors.New("email must contain '@'")
	ErrEmailTooLong  = errors.New("email cannot exceed 254 characters")
	ErrUnknownTopic  = errors.New("unknown topic")
	ErrUnsubscribed  = errors.New("contact is unsubscribed")
	ErrUnknownLocale = errors.New("unsupported locale")
)

// Contact is one digest subscriber. Created on confirmed opt-in, mutated by
// preference updates, and soft-deleted by setting Unsubscribed, never hard
// deleted while the pipeline is live.
type Contact struct {
	ID           string
	Email        string
	Locale       string
	Topics       []string
	Unsubscribed bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks that the Contact has valid data.
// PRE: Contact struct is populated
// POST: Returns nil if valid, error otherwise
func (c *Contact) Validate() error {
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return ErrEmptyEmail
	}
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	for _, topic := range c.Topics {
		if !KnownTopic(topic) {
			return ErrUnknownTopic
		}
	}
	return nil
}

// Unsubscribe soft-deletes the contact. Idempotent.
// POST: Unsubscribed is true
func (c *Contact) Unsubscribe(at time.Time) {
	c.Unsubscribed = true
	c.UpdatedAt = at
}

// SetPreferences replaces the contact's locale and topic set.
// PRE: topics are known, locale is supported (validated by the caller)
// POST: Locale and Topics replaced, UpdatedAt set
func (c *Contact) SetPreferences(locale string, topics []string, at time.Time) {
	c.Locale = locale
	c.Topics = NormalizeTopics(topics)
	c.UpdatedAt = at
}

// NormalizeTopics trims, lowercases, deduplicates and sorts a topic list.
func NormalizeTopics(topics []string) []string {
	seen := make(map[string]bool, len(topics))
	var out []string
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// JoinTopics encodes a topic set as the comma-joined blob used at the wire
// level, for compatibility with the existing contact database.
func JoinTopics(topics []string) string {
	return strings.Join(topics, ",")
}

// SplitTopics decodes the comma-joined wire encoding back into a topic set.
func SplitTopics(blob string) []string {
	if blob == "" {
		return nil
	}
	return NormalizeTopics(strings.Split(blob, ","))
}
