package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// maxBatch is the Resend batch API limit per call.
const maxBatch = 100

// ResendSender sends emails via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a new ResendSender with the given API key and default from address.
// PRE: apiKey is a valid Resend API key; from is a valid sender address
// POST: Returns a ready-to-use sender
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (s *ResendSender) params(req SendRequest) *resend.SendEmailRequest {
	from := req.From
	if from == "" {
		from = s.from
	}
	p := &resend.SendEmailRequest{
		From:    from,
		To:      req.To,
		Subject: req.Subject,
		Html:    req.HTML,
	}
	if req.ReplyTo != "" {
		p.ReplyTo = req.ReplyTo
	}
	for _, tag := range req.Tags {
		p.Tags = append(p.Tags, resend.Tag{Name: tag.Name, Value: tag.Value})
	}
	if !req.ScheduledAt.IsZero() {
		p.ScheduledAt = req.ScheduledAt.Format(time.RFC3339)
	}
	return p
}

// Send sends a single email via Resend.
// PRE: req has at least one recipient and a subject
// POST: Email is queued for delivery; returns the Resend message ID
func (s *ResendSender) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, s.params(req))
	if err != nil {
		slog.Error("resend_send_failed", "error", err, "to", req.To, "subject", req.Subject)
		return SendResult{}, fmt.Errorf("resend send failed: %w", err)
	}

	slog.Info("resend_sent", "message_id", sent.Id, "to", req.To, "subject", req.Subject)
	return SendResult{
		MessageID: sent.Id,
		SentAt:    time.Now(),
	}, nil
}

// SendBatch sends one batch via Resend's batch API. The dispatcher owns
// batch partitioning; this adapter only enforces the provider's hard cap.
// PRE: 0 < len(reqs) <= 100
// POST: All emails in the batch are queued; results are in request order
func (s *ResendSender) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	if len(reqs) > maxBatch {
		return nil, fmt.Errorf("resend batch too large: %d > %d", len(reqs), maxBatch)
	}

	batchParams := make([]*resend.SendEmailRequest, 0, len(reqs))
	for _, req := range reqs {
		batchParams = append(batchParams, s.params(req))
	}

	resp, err := s.client.Batch.SendWithContext(ctx, batchParams)
	if err != nil {
		slog.Error("resend_batch_failed", "error", err, "batch_size", len(reqs))
		return nil, fmt.Errorf("resend batch send failed: %w", err)
	}

	results := make([]SendResult, 0, len(resp.Data))
	for _, item := range resp.Data {
		results = append(results, SendResult{
			MessageID: item.Id,
			SentAt:    time.Now(),
		})
	}

	slog.Info("resend_batch_sent", "count", len(reqs))
	return results, nil
}
