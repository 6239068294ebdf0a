// Package web wires the JSON API: the approval gateway, the draft endpoints,
// the cron entry points, and the contact lifecycle.
package web

import (
	"net/http"
	"time"

	"civicwatch/internal/adapters/email"
	"civicwatch/internal/adapters/http/middleware"
	accountStore "civicwatch/internal/adapters/storage/account"
	contactStore "civicwatch/internal/adapters/storage/contact"
	digestStore "civicwatch/internal/adapters/storage/digest"
	"civicwatch/internal/adapters/token"
	"civicwatch/internal/application/orchestrators"
	"civicwatch/internal/application/render"
)

// Stores holds all storage dependencies.
type Stores struct {
	DigestStore  digestStore.Store
	ContactStore contactStore.Store
	AccountStore accountStore.Store
}

// Options carries the request-independent configuration the handlers need.
type Options struct {
	BaseURL        string
	OperatorEmail  string
	DefaultLocale  string
	Locales        []string
	BatchSize      int
	Location       *time.Location
	ApprovalTTL    time.Duration
	CronSecret     string
	CSRFKey        []byte
	TrustedOrigins []string
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// Global feed client, token signer and renderer (set by NewMux)
var feedReader orchestrators.FeedReader
var signer *token.Signer
var renderer *render.Renderer

// Handler options (set by NewMux)
var opts Options

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Global email sender instance (set by SetEmailSender)
var emailSender email.Sender

// Email configuration
var emailFromAddress string
var emailReplyTo string

// Clock, swappable in tests.
var nowFunc = time.Now

// SetEmailSender sets the global email sender for the application.
func SetEmailSender(sender email.Sender, from, replyTo string) {
	emailSender = sender
	emailFromAddress = from
	emailReplyTo = replyTo
}

// NewMux wires HTTP handlers for the service.
func NewMux(s *Stores, feed orchestrators.FeedReader, tokens *token.Signer, o Options) http.Handler {
	stores = s
	feedReader = feed
	signer = tokens
	renderer = render.New()
	opts = o
	sessions = middleware.NewSessionStore()

	mux := http.NewServeMux()
	registerRoutes(mux)

	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: RequestLog -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(o.CSRFKey, o.TrustedOrigins),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.RequestLog,
	)
}
