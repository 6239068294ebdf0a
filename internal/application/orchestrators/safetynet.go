package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	storageDigest "civicwatch/internal/adapters/storage/digest"
	"civicwatch/internal/domain/digest"
)

// Safety-net actions.
const (
	ActionNone = "none"
	ActionSend = "safety-net-send"
)

// SafetyNetInput carries input for the safety-net recheck.
type SafetyNetInput struct {
	Week string
}

// SafetyNetDeps holds dependencies for SafetyNet.
type SafetyNetDeps struct {
	Digests  DigestStoreForOrchestrator
	Dispatch DispatchDeps
}

// SafetyNetResult reports what the recheck did.
type SafetyNetResult struct {
	Week     string         `json:"week"`
	Action   string         `json:"action"`
	Dispatch DispatchResult `json:"dispatch,omitempty"`
}

// ExecuteSafetyNet re-checks one week and dispatches only a record that is
// approved but was never marked sent (a crash between approval and the
// write-back). Sent and unapproved records are left alone without touching
// the provider.
// POST: Action is none, or the record is dispatched and marked sent
func ExecuteSafetyNet(ctx context.Context, input SafetyNetInput, deps SafetyNetDeps) (SafetyNetResult, error) {
	result := SafetyNetResult{Week: input.Week, Action: ActionNone}

	rec, revision, err := deps.Digests.Get(ctx, input.Week)
	if errors.Is(err, storageDigest.ErrNotFound) {
		// No draft for this week yet; nothing to rescue.
		return result, nil
	}
	if err != nil {
		return result, err
	}

	if rec.Sent || !rec.Approved {
		slog.Info("digest_event", "event", "safety_net_noop", "week", rec.Week, "sent", rec.Sent, "approved", rec.Approved)
		return result, nil
	}

	dispatch, err := runDispatch(ctx, rec, deps.Dispatch)
	result.Dispatch = dispatch
	if err != nil {
		return result, err
	}

	if err := rec.MarkSent(deps.Dispatch.Now()); err != nil {
		return result, err
	}
	if err := deps.Digests.Update(ctx, rec, revision); err != nil {
		if errors.Is(err, storageDigest.ErrConflict) {
			slog.Warn("digest_event", "event", "safety_net_lost_race", "week", rec.Week)
			return result, fmt.Errorf("%w: %s", digest.ErrAlreadySent, rec.Week)
		}
		return result, err
	}

	result.Action = ActionSend
	slog.Info("digest_event", "event", "safety_net_sent", "week", rec.Week, "sent", dispatch.Sent, "skipped", dispatch.Skipped)
	return result, nil
}
