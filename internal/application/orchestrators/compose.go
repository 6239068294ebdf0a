package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "civicwatch/internal/adapters/email"
	storageDigest "civicwatch/internal/adapters/storage/digest"
	"civicwatch/internal/application/render"
	"civicwatch/internal/domain/digest"
	"civicwatch/internal/domain/feed"
)

// composeCutoff is how far back the composer reads the change feed.
const composeCutoff = 7 * 24 * time.Hour

// summaryTemplates are the per-locale literal sentences built from counts
// only. No translation service: every locale has its own fixed wording.
var summaryTemplates = map[string]string{
	digest.LocaleFR: "Cette semaine, %d contenus ont été mis à jour, dont %d changements de statut.",
	digest.LocaleDE: "Diese Woche wurden %d Inhalte aktualisiert, davon %d Statusänderungen.",
	digest.LocaleEN: "This week, %d items were updated, including %d status changes.",
}

// commitmentLabels caption the weekly number when it falls back to the
// outstanding-commitment count.
var commitmentLabels = map[string]string{
	digest.LocaleFR: "engagements suivis",
	digest.LocaleDE: "verfolgte Zusagen",
	digest.LocaleEN: "commitments tracked",
}

// ComposeDeps holds dependencies for Compose.
type ComposeDeps struct {
	Digests       DigestStoreForOrchestrator
	Feed          FeedReader
	Sender        emailAdapter.Sender
	Renderer      *render.Renderer
	Tokens        TokenIssuer
	BaseURL       string
	From          string
	ReplyTo       string
	OperatorEmail string
	ApprovalTTL   time.Duration
	Now           func() time.Time
}

// ComposeResult reports one composer run.
type ComposeResult struct {
	Week        string `json:"week"`
	Created     bool   `json:"created"`
	PreviewSent bool   `json:"previewSent"`
}

// ExecuteCompose drafts the current week's digest from the change feed and
// notifies the operator. Running it twice in the same week is a no-op: the
// first writer wins and the existing draft, edits included, is untouched.
// PRE: the change feed is reachable
// POST: A draft exists for the current week; a preview email was attempted
// for a fresh draft
func ExecuteCompose(ctx context.Context, deps ComposeDeps) (ComposeResult, error) {
	now := deps.Now()
	week := digest.WeekKey(now)
	result := ComposeResult{Week: week}

	// Feed down → no draft. The next scheduled run starts from scratch.
	changes, err := deps.Feed.ChangesSince(ctx, now.Add(-composeCutoff))
	if err != nil {
		return result, fmt.Errorf("compose %s: %w", week, err)
	}

	rec := digest.Record{
		Week:              week,
		CreatedAt:         now,
		Summary:           buildSummaries(changes),
		ClosingNote:       map[string]string{},
		WeeklyNumber:      suggestWeeklyNumber(changes),
		CommitmentCount:   changes.CommitmentCount,
		UpdatedCategories: changes.Categories(),
	}
	if err := rec.Validate(); err != nil {
		return result, err
	}

	if err := deps.Digests.Create(ctx, rec); err != nil {
		if errors.Is(err, storageDigest.ErrExists) {
			slog.Info("digest_event", "event", "compose_noop", "week", week)
			return result, nil
		}
		return result, err
	}
	result.Created = true

	// Preview failure is reported, not fatal: the draft exists and the
	// editor can still reach it through the authenticated endpoints.
	if err := sendPreview(ctx, rec, deps); err != nil {
		slog.Warn("digest_event", "event", "preview_failed", "week", week, "error", err)
	} else {
		result.PreviewSent = true
	}

	slog.Info("digest_event", "event", "digest_composed", "week", week,
		"categories", len(rec.UpdatedCategories), "commitments", rec.CommitmentCount,
		"preview_sent", result.PreviewSent)
	return result, nil
}

func buildSummaries(changes feed.ChangeSet) map[string]string {
	summaries := make(map[string]string, len(digest.Locales))
	for _, locale := range digest.Locales {
		updates := changes.Updates[locale]
		summaries[locale] = fmt.Sprintf(summaryTemplates[locale], len(updates), feed.StatusChanges(updates))
	}
	return summaries
}

// suggestWeeklyNumber picks the first canonical-locale item carrying a
// metric; each other locale contributes its own first metric item's label
// and source. Without any metric, the outstanding-commitment count stands in
// with fixed captions. The editor can overwrite all of it before approval.
func suggestWeeklyNumber(changes feed.ChangeSet) digest.WeeklyNumber {
	number := digest.WeeklyNumber{Label: map[string]string{}, Source: map[string]string{}}

	for _, u := range changes.Updates[digest.LocaleFR] {
		if u.Metric == nil {
			continue
		}
		number.Value = u.Metric.Value
		for _, locale := range digest.Locales {
			for _, v := range changes.Updates[locale] {
				if v.Metric != nil {
					number.Label[locale] = v.Metric.Label
					number.Source[locale] = v.Title
					break
				}
			}
		}
		return number
	}

	number.Value = float64(changes.CommitmentCount)
	for _, locale := range digest.Locales {
		number.Label[locale] = commitmentLabels[locale]
	}
	return number
}

func sendPreview(ctx context.Context, rec digest.Record, deps ComposeDeps) error {
	if deps.OperatorEmail == "" {
		return errors.New("no operator email configured")
	}

	approveToken, err := deps.Tokens.ApprovalToken(rec.Week, deps.ApprovalTTL)
	if err != nil {
		return err
	}
	msg, err := deps.Renderer.Preview(rec,
		deps.BaseURL+"/api/digest/approve?token="+approveToken,
		deps.BaseURL+"/api/digest/draft")
	if err != nil {
		return err
	}

	_, err = deps.Sender.Send(ctx, emailAdapter.SendRequest{
		To:      []string{deps.OperatorEmail},
		From:    deps.From,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: deps.ReplyTo,
		Tags: []emailAdapter.Tag{
			{Name: "type", Value: "preview"},
			{Name: "week", Value: rec.Week},
		},
	})
	return err
}
