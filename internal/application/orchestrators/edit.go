package orchestrators

import (
	"context"
	"log/slog"

	"civicwatch/internal/domain/digest"
)

// EditDigestInput carries the mutable fields of a draft. Nil maps leave the
// stored value untouched; a non-nil map replaces it wholesale.
type EditDigestInput struct {
	Week         string
	Summary      map[string]string
	ClosingNote  map[string]string
	WeeklyNumber *digest.WeeklyNumber
}

// EditDigestDeps holds dependencies for EditDigest.
type EditDigestDeps struct {
	Digests DigestStoreForOrchestrator
}

// ExecuteEditDigest updates the human-readable fields of a pending draft.
// The write reuses the revision read up front, so a concurrent approval that
// lands first surfaces as a conflict instead of silently losing the edit (or
// the send).
// PRE: Week identifies an existing, unsent record
// POST: Draft fields replaced, or ErrAlreadySent / store conflict
func ExecuteEditDigest(ctx context.Context, input EditDigestInput, deps EditDigestDeps) (digest.Record, error) {
	rec, revision, err := deps.Digests.Get(ctx, input.Week)
	if err != nil {
		return digest.Record{}, err
	}
	if err := rec.EnsureEditable(); err != nil {
		return digest.Record{}, err
	}

	if input.Summary != nil {
		rec.Summary = input.Summary
	}
	if input.ClosingNote != nil {
		rec.ClosingNote = input.ClosingNote
	}
	if input.WeeklyNumber != nil {
		rec.WeeklyNumber = *input.WeeklyNumber
	}

	if err := deps.Digests.Update(ctx, rec, revision); err != nil {
		return digest.Record{}, err
	}

	slog.Info("digest_event", "event", "draft_edited", "week", rec.Week)
	return rec, nil
}
