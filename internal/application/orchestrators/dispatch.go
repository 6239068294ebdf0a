// Package orchestrators wires the digest pipeline's use cases: composing the
// weekly draft, approving and dispatching it, the safety-net recheck, draft
// edits, the contact lifecycle, and editor login.
package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "civicwatch/internal/adapters/email"
	"civicwatch/internal/application/render"
	contactDomain "civicwatch/internal/domain/contact"
	"civicwatch/internal/domain/digest"
	"civicwatch/internal/domain/feed"
)

// Unsubscribe links must keep working from old digests sitting in inboxes.
const unsubscribeTTL = 365 * 24 * time.Hour

// Each provider batch gets its own deadline so one slow batch cannot eat the
// whole request budget.
const batchTimeout = 30 * time.Second

// ContactLister lists the dispatch audience.
type ContactLister interface {
	ListSubscribed(ctx context.Context) ([]contactDomain.Contact, error)
}

// FeedReader reads the content change feed. Changed items are ephemeral and
// re-read on every pipeline run.
type FeedReader interface {
	ChangesSince(ctx context.Context, since time.Time) (feed.ChangeSet, error)
}

// TokenIssuer issues the signed tokens embedded in email links.
type TokenIssuer interface {
	ApprovalToken(week string, ttl time.Duration) (string, error)
	ConfirmToken(email, locale string, topics []string, ttl time.Duration) (string, error)
	UnsubscribeToken(email string, ttl time.Duration) (string, error)
}

// DispatchDeps holds the shared dependencies of every path that sends the
// digest to subscribers (approval and safety net).
type DispatchDeps struct {
	Contacts      ContactLister
	Feed          FeedReader
	Sender        emailAdapter.Sender
	Renderer      *render.Renderer
	Tokens        TokenIssuer
	BaseURL       string
	From          string
	ReplyTo       string
	DefaultLocale string
	BatchSize     int
	Location      *time.Location
	Now           func() time.Time
}

// DispatchResult reports one dispatch run. Contacts in a failed batch are
// not counted in Sent.
type DispatchResult struct {
	Week        string    `json:"week"`
	Sent        int       `json:"sent"`
	Skipped     int       `json:"skipped"`
	ScheduledAt time.Time `json:"-"`
	Errors      []string  `json:"errors,omitempty"`
}

// runDispatch sends one approved digest to every relevant subscriber. It is
// the single dispatch contract: the approval path and the safety net differ
// only in how they arrive here.
// PRE: rec is approved and unsent
// POST: Every relevant contact got one provider submission; batch failures
// are collected, never fatal
func runDispatch(ctx context.Context, rec digest.Record, deps DispatchDeps) (DispatchResult, error) {
	result := DispatchResult{Week: rec.Week}

	// Approval before the send window defers delivery to it, provider-side.
	window, err := digest.SendWindow(rec.Week, deps.Location)
	if err != nil {
		return result, err
	}
	var scheduledAt time.Time
	if deps.Now().Before(window) {
		scheduledAt = window
		result.ScheduledAt = window
	}

	// Changed items are never persisted with the record; re-read them from
	// the start of the digest week.
	cutoff, err := digest.WeekStart(rec.Week, deps.Location)
	if err != nil {
		return result, err
	}
	changes, err := deps.Feed.ChangesSince(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("dispatch %s: %w", rec.Week, err)
	}

	contacts, err := deps.Contacts.ListSubscribed(ctx)
	if err != nil {
		return result, fmt.Errorf("dispatch %s: %w", rec.Week, err)
	}

	var reqs []emailAdapter.SendRequest
	for _, c := range contacts {
		locale := c.Locale
		if len(changes.Updates[locale]) == 0 && locale != deps.DefaultLocale {
			locale = deps.DefaultLocale
		}

		relevant, skipped := c.Relevant(changes.Updates[locale])
		if skipped {
			result.Skipped++
			continue
		}

		unsubToken, err := deps.Tokens.UnsubscribeToken(c.Email, unsubscribeTTL)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: unsubscribe token: %v", c.Email, err))
			continue
		}
		msg, err := deps.Renderer.Digest(rec, locale, relevant,
			deps.BaseURL+"/api/contacts/unsubscribe?token="+unsubToken)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: render: %v", c.Email, err))
			continue
		}

		reqs = append(reqs, emailAdapter.SendRequest{
			To:      []string{c.Email},
			From:    deps.From,
			Subject: msg.Subject,
			HTML:    msg.HTML,
			ReplyTo: deps.ReplyTo,
			Tags: []emailAdapter.Tag{
				{Name: "type", Value: "digest"},
				{Name: "locale", Value: locale},
				{Name: "week", Value: rec.Week},
			},
			ScheduledAt: scheduledAt,
		})
	}

	// Sequential fixed-size batches. A failed batch is recorded and the run
	// moves on; re-dispatching failed contacts is an operator decision, not
	// an automatic retry.
	for start := 0; start < len(reqs); start += deps.BatchSize {
		end := min(start+deps.BatchSize, len(reqs))
		batch := reqs[start:end]

		batchCtx, cancel := context.WithTimeout(ctx, batchTimeout)
		_, err := deps.Sender.SendBatch(batchCtx, batch)
		cancel()
		if err != nil {
			slog.Error("digest_event", "event", "batch_failed", "week", rec.Week, "batch_start", start, "size", len(batch), "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("batch %d-%d: %v", start, end-1, err))
			continue
		}
		result.Sent += len(batch)
	}

	slog.Info("digest_event", "event", "digest_dispatched", "week", rec.Week,
		"sent", result.Sent, "skipped", result.Skipped, "batch_errors", len(result.Errors),
		"scheduled_at", scheduledAt)
	return result, nil
}
