package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	emailAdapter "civicwatch/internal/adapters/email"
	storageContact "civicwatch/internal/adapters/storage/contact"
	"civicwatch/internal/application/render"
	contactDomain "civicwatch/internal/domain/contact"
)

// Opt-in links are short-lived; a stale signup should start over.
const confirmTTL = 48 * time.Hour

// ContactStoreForOrchestrator defines the store interface needed by the
// contact-lifecycle orchestrators.
type ContactStoreForOrchestrator interface {
	GetByEmail(ctx context.Context, email string) (contactDomain.Contact, error)
	Save(ctx context.Context, c contactDomain.Contact) error
}

// --- Subscribe (double opt-in, step 1) ---

// SubscribeInput carries a signup request.
type SubscribeInput struct {
	Email  string
	Locale string
	Topics []string
}

// SubscribeDeps holds dependencies for Subscribe.
type SubscribeDeps struct {
	Tokens   TokenIssuer
	Renderer *render.Renderer
	Sender   emailAdapter.Sender
	Locales  []string
	BaseURL  string
	From     string
	ReplyTo  string
}

// ExecuteSubscribe validates a signup and emails a confirmation link. No
// contact row exists until the link is followed; the pending preferences
// travel inside the signed token.
// PRE: Email and locale are syntactically valid
// POST: Exactly one confirmation email submitted; store untouched
func ExecuteSubscribe(ctx context.Context, input SubscribeInput, deps SubscribeDeps) error {
	pending := contactDomain.Contact{
		Email:  input.Email,
		Locale: input.Locale,
		Topics: contactDomain.NormalizeTopics(input.Topics),
	}
	if err := pending.Validate(); err != nil {
		return err
	}
	if !slices.Contains(deps.Locales, input.Locale) {
		return contactDomain.ErrUnknownLocale
	}

	confirmToken, err := deps.Tokens.ConfirmToken(pending.Email, pending.Locale, pending.Topics, confirmTTL)
	if err != nil {
		return err
	}
	msg, err := deps.Renderer.Confirm(pending.Locale,
		deps.BaseURL+"/api/contacts/confirm?token="+confirmToken)
	if err != nil {
		return err
	}

	_, err = deps.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{pending.Email},
		From:    deps.From,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: deps.ReplyTo,
		Tags:    []emailAdapter.Tag{{Name: "type", Value: "confirm"}},
	})
	if err != nil {
		return err
	}

	slog.Info("contact_event", "event", "confirmation_sent", "locale", pending.Locale, "topic_count", len(pending.Topics))
	return nil
}

// --- Confirm (double opt-in, step 2) ---

// ConfirmInput carries the verified claims of an opt-in token.
type ConfirmInput struct {
	Email  string
	Locale string
	Topics []string
}

// ConfirmDeps holds dependencies for Confirm.
type ConfirmDeps struct {
	Contacts   ContactStoreForOrchestrator
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteConfirm creates the contact from a verified opt-in token. A contact
// that already exists (including one that unsubscribed and signed up again)
// is re-activated with the token's preferences.
// PRE: input came from a verified confirm token
// POST: An active contact exists with the token's preferences
func ExecuteConfirm(ctx context.Context, input ConfirmInput, deps ConfirmDeps) (contactDomain.Contact, error) {
	now := deps.Now()

	c, err := deps.Contacts.GetByEmail(ctx, input.Email)
	switch {
	case errors.Is(err, storageContact.ErrNotFound):
		c = contactDomain.Contact{
			ID:        deps.GenerateID(),
			Email:     input.Email,
			CreatedAt: now,
		}
	case err != nil:
		return contactDomain.Contact{}, err
	}

	c.Unsubscribed = false
	c.SetPreferences(input.Locale, input.Topics, now)
	if err := c.Validate(); err != nil {
		return contactDomain.Contact{}, err
	}
	if err := deps.Contacts.Save(ctx, c); err != nil {
		return contactDomain.Contact{}, err
	}

	slog.Info("contact_event", "event", "contact_confirmed", "contact_id", c.ID, "locale", c.Locale)
	return c, nil
}

// --- Update preferences ---

// PreferencesInput carries a preference change for an existing contact.
type PreferencesInput struct {
	Email  string
	Locale string
	Topics []string
}

// PreferencesDeps holds dependencies for UpdatePreferences.
type PreferencesDeps struct {
	Contacts ContactStoreForOrchestrator
	Locales  []string
	Now      func() time.Time
}

// ExecuteUpdatePreferences replaces an active contact's locale and topics.
// An unsubscribed contact must go back through opt-in instead.
// PRE: Email identifies an existing contact
// POST: Preferences replaced, or ErrUnsubscribed
func ExecuteUpdatePreferences(ctx context.Context, input PreferencesInput, deps PreferencesDeps) (contactDomain.Contact, error) {
	c, err := deps.Contacts.GetByEmail(ctx, input.Email)
	if err != nil {
		return contactDomain.Contact{}, err
	}
	if c.Unsubscribed {
		return contactDomain.Contact{}, contactDomain.ErrUnsubscribed
	}
	if !slices.Contains(deps.Locales, input.Locale) {
		return contactDomain.Contact{}, contactDomain.ErrUnknownLocale
	}

	c.SetPreferences(input.Locale, input.Topics, deps.Now())
	if err := c.Validate(); err != nil {
		return contactDomain.Contact{}, err
	}
	if err := deps.Contacts.Save(ctx, c); err != nil {
		return contactDomain.Contact{}, err
	}

	slog.Info("contact_event", "event", "preferences_updated", "contact_id", c.ID, "locale", c.Locale, "topic_count", len(c.Topics))
	return c, nil
}

// --- Unsubscribe ---

// UnsubscribeInput carries the verified claims of an unsubscribe token.
type UnsubscribeInput struct {
	Email string
}

// UnsubscribeDeps holds dependencies for Unsubscribe.
type UnsubscribeDeps struct {
	Contacts ContactStoreForOrchestrator
	Now      func() time.Time
}

// ExecuteUnsubscribe soft-deletes a contact. Idempotent: repeated clicks on
// an old link, and links for addresses that were never confirmed, all
// succeed quietly.
// POST: No active contact exists for the email
func ExecuteUnsubscribe(ctx context.Context, input UnsubscribeInput, deps UnsubscribeDeps) error {
	c, err := deps.Contacts.GetByEmail(ctx, input.Email)
	if errors.Is(err, storageContact.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if c.Unsubscribed {
		return nil
	}

	c.Unsubscribe(deps.Now())
	if err := deps.Contacts.Save(ctx, c); err != nil {
		return err
	}

	slog.Info("contact_event", "event", "contact_unsubscribed", "contact_id", c.ID)
	return nil
}
