package orchestrators

import (
	"context"
	"testing"
	"time"
)

// TestExecuteSafetyNet_SentRecordIsLeftAlone tests that a sent record causes
// no provider traffic at all.
func TestExecuteSafetyNet_SentRecordIsLeftAlone(t *testing.T) {
	digests := newMockDigestStore()
	rec := pendingRecord()
	rec.Approved = true
	rec.Sent = true
	rec.SentAt = afterWindow
	digests.Create(context.Background(), rec)
	sender := &mockSender{}

	result, err := ExecuteSafetyNet(context.Background(), SafetyNetInput{Week: testWeek},
		SafetyNetDeps{Digests: digests, Dispatch: testDispatchDeps(newMockContactStore(), sender, afterWindow)})
	if err != nil {
		t.Fatalf("safety net: %v", err)
	}
	if result.Action != ActionNone {
		t.Errorf("action = %q, want %q", result.Action, ActionNone)
	}
	if sender.providerCalls() != 0 {
		t.Errorf("provider was called %d times for a sent record", sender.providerCalls())
	}
}

// TestExecuteSafetyNet_UnapprovedRecordIsLeftAlone tests that a pending
// draft is never auto-sent.
func TestExecuteSafetyNet_UnapprovedRecordIsLeftAlone(t *testing.T) {
	digests := newMockDigestStore()
	digests.Create(context.Background(), pendingRecord())
	sender := &mockSender{}

	result, err := ExecuteSafetyNet(context.Background(), SafetyNetInput{Week: testWeek},
		SafetyNetDeps{Digests: digests, Dispatch: testDispatchDeps(newMockContactStore(), sender, afterWindow)})
	if err != nil {
		t.Fatalf("safety net: %v", err)
	}
	if result.Action != ActionNone {
		t.Errorf("action = %q, want %q", result.Action, ActionNone)
	}
	if sender.providerCalls() != 0 {
		t.Error("unapproved draft reached the provider")
	}
}

// TestExecuteSafetyNet_NoRecord tests the week with no draft at all.
func TestExecuteSafetyNet_NoRecord(t *testing.T) {
	result, err := ExecuteSafetyNet(context.Background(), SafetyNetInput{Week: testWeek},
		SafetyNetDeps{Digests: newMockDigestStore(), Dispatch: testDispatchDeps(newMockContactStore(), &mockSender{}, afterWindow)})
	if err != nil {
		t.Fatalf("safety net: %v", err)
	}
	if result.Action != ActionNone {
		t.Errorf("action = %q, want %q", result.Action, ActionNone)
	}
}

// TestExecuteSafetyNet_RescuesApprovedUnsent tests the crash-recovery path:
// approved but never marked sent gets dispatched and finalized.
func TestExecuteSafetyNet_RescuesApprovedUnsent(t *testing.T) {
	digests := newMockDigestStore()
	rec := pendingRecord()
	rec.Approved = true
	digests.Create(context.Background(), rec)
	contacts := newMockContactStore(subscriber("a@example.lu", "fr"))
	sender := &mockSender{}
	now := time.Date(2026, 2, 16, 9, 30, 0, 0, time.UTC)

	result, err := ExecuteSafetyNet(context.Background(), SafetyNetInput{Week: testWeek},
		SafetyNetDeps{Digests: digests, Dispatch: testDispatchDeps(contacts, sender, now)})
	if err != nil {
		t.Fatalf("safety net: %v", err)
	}
	if result.Action != ActionSend {
		t.Errorf("action = %q, want %q", result.Action, ActionSend)
	}
	if result.Dispatch.Sent != 1 {
		t.Errorf("sent = %d, want 1", result.Dispatch.Sent)
	}

	got, _, _ := digests.Get(context.Background(), testWeek)
	if !got.Sent || !got.SentAt.Equal(now) {
		t.Errorf("record not finalized: %+v", got)
	}
}
