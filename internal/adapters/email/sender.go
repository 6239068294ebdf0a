package email

import (
	"context"
	"time"
)

// Tag is a provider-side label attached to a message for tracking, e.g.
// {type: digest, locale: fr, week: 2026-w07}.
type Tag struct {
	Name  string
	Value string
}

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To          []string // Recipient email addresses
	From        string   // Sender address (e.g. "CivicWatch <digest@civicwatch.lu>")
	Subject     string
	HTML        string    // HTML body
	ReplyTo     string    // Reply-to address
	Tags        []Tag     // Provider-side tracking tags
	ScheduledAt time.Time // Zero means deliver immediately; otherwise provider-side scheduling
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string    // Provider's message ID for tracking
	SentAt    time.Time // When the send was accepted
}

// Sender is the interface for sending emails via an external provider.
// SendBatch submits one fixed-size batch; partitioning is the caller's job.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error)
}
