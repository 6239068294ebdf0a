package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	storageDigest "civicwatch/internal/adapters/storage/digest"
	"civicwatch/internal/domain/digest"
)

// DigestStoreForOrchestrator defines the store interface needed by the
// digest orchestrators.
type DigestStoreForOrchestrator interface {
	Get(ctx context.Context, week string) (digest.Record, int64, error)
	Create(ctx context.Context, record digest.Record) error
	Update(ctx context.Context, record digest.Record, expectedRevision int64) error
}

// PrincipalKind names how an approval request was authenticated.
type PrincipalKind string

const (
	// PrincipalToken is the one-click link from the preview email; the
	// signed token pins the week it may approve.
	PrincipalToken PrincipalKind = "token"
	// PrincipalSession is an authenticated editor acting through the site.
	PrincipalSession PrincipalKind = "session"
)

// Principal identifies who approves. Week is set only for token principals.
type Principal struct {
	Kind PrincipalKind
	Week string
}

// ApproveInput carries input for the approval orchestrator.
type ApproveInput struct {
	Week      string
	Principal Principal
}

// ApproveDeps holds dependencies for Approve.
type ApproveDeps struct {
	Digests  DigestStoreForOrchestrator
	Dispatch DispatchDeps
}

// ExecuteApprove flips the record to approved and dispatches the digest in
// the same request. The write-back reuses the revision read up front, so of
// two racing approvals exactly one marks the record sent; the loser's
// conflict is reported as an already-sent digest, never retried blindly.
// PRE: Week identifies an existing record; the principal is authenticated
// POST: Record is approved and sent, subscribers dispatched exactly once
func ExecuteApprove(ctx context.Context, input ApproveInput, deps ApproveDeps) (DispatchResult, error) {
	rec, revision, err := deps.Digests.Get(ctx, input.Week)
	if err != nil {
		return DispatchResult{}, err
	}

	if rec.Sent {
		return DispatchResult{}, fmt.Errorf("%w: %s", digest.ErrAlreadySent, rec.Week)
	}
	if input.Principal.Kind == PrincipalToken && input.Principal.Week != rec.Week {
		return DispatchResult{}, fmt.Errorf("%w: token is for %s", digest.ErrWeekMismatch, input.Principal.Week)
	}

	if err := rec.Approve(); err != nil {
		return DispatchResult{}, err
	}

	result, err := runDispatch(ctx, rec, deps.Dispatch)
	if err != nil {
		// Nothing was persisted; the record stays pending and the safety
		// net (or a retried click) picks it up.
		return result, err
	}

	if err := rec.MarkSent(deps.Dispatch.Now()); err != nil {
		return result, err
	}
	if err := deps.Digests.Update(ctx, rec, revision); err != nil {
		if errors.Is(err, storageDigest.ErrConflict) {
			slog.Warn("digest_event", "event", "approval_lost_race", "week", rec.Week, "principal", input.Principal.Kind)
			return result, fmt.Errorf("%w: %s", digest.ErrAlreadySent, rec.Week)
		}
		return result, err
	}

	slog.Info("digest_event", "event", "digest_approved", "week", rec.Week, "principal", input.Principal.Kind, "sent", result.Sent, "skipped", result.Skipped)
	return result, nil
}
