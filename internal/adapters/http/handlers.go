package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"civicwatch/internal/adapters/feed"
	"civicwatch/internal/adapters/http/middleware"
	storageContact "civicwatch/internal/adapters/storage/contact"
	storageDigest "civicwatch/internal/adapters/storage/digest"
	"civicwatch/internal/adapters/token"
	"civicwatch/internal/application/orchestrators"
	contactDomain "civicwatch/internal/domain/contact"
	"civicwatch/internal/domain/digest"
)

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", handleHealthz)

	mux.HandleFunc("/api/login", handleLogin)
	mux.HandleFunc("/api/logout", handleLogout)

	mux.HandleFunc("/api/digest/approve", handleApprove)
	mux.HandleFunc("/api/digest/draft", handleDraft)

	mux.HandleFunc("/api/cron/compose", handleCronCompose)
	mux.HandleFunc("/api/cron/safety-net", handleCronSafetyNet)

	mux.HandleFunc("/api/contacts/subscribe", handleSubscribe)
	mux.HandleFunc("/api/contacts/confirm", handleConfirm)
	mux.HandleFunc("/api/contacts/preferences", handlePreferences)
	mux.HandleFunc("/api/contacts/unsubscribe", handleUnsubscribe)
}

// --- Helpers ---

func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

// writeError maps the domain error taxonomy onto HTTP statuses: bad or
// expired tokens are 401, missing records 404, terminal-state and
// concurrency rejections 409, feed unavailability 502, validation 400.
func writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, token.ErrTokenInvalid), errors.Is(err, token.ErrTokenExpired),
		errors.Is(err, orchestrators.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, storageDigest.ErrNotFound), errors.Is(err, storageContact.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, digest.ErrAlreadySent), errors.Is(err, digest.ErrWeekMismatch),
		errors.Is(err, storageDigest.ErrConflict), errors.Is(err, contactDomain.ErrUnsubscribed):
		status = http.StatusConflict
	case errors.Is(err, feed.ErrFeedUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, contactDomain.ErrEmptyEmail), errors.Is(err, contactDomain.ErrInvalidEmail),
		errors.Is(err, contactDomain.ErrEmailTooLong), errors.Is(err, contactDomain.ErrUnknownTopic),
		errors.Is(err, contactDomain.ErrUnknownLocale), errors.Is(err, digest.ErrBadWeekKey):
		status = http.StatusBadRequest
	default:
		internalError(w, err)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
}

// requireCron authenticates scheduled invocations with the shared bearer
// secret. Handlers stay stateless; the scheduler lives outside the process.
func requireCron(w http.ResponseWriter, r *http.Request) bool {
	auth := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if opts.CronSecret == "" ||
		subtle.ConstantTimeCompare([]byte(auth), []byte(opts.CronSecret)) != 1 {
		unauthorized(w)
		return false
	}
	return true
}

func dispatchDeps() orchestrators.DispatchDeps {
	return orchestrators.DispatchDeps{
		Contacts:      stores.ContactStore,
		Feed:          feedReader,
		Sender:        emailSender,
		Renderer:      renderer,
		Tokens:        signer,
		BaseURL:       opts.BaseURL,
		From:          emailFromAddress,
		ReplyTo:       emailReplyTo,
		DefaultLocale: opts.DefaultLocale,
		BatchSize:     opts.BatchSize,
		Location:      opts.Location,
		Now:           nowFunc,
	}
}

// approveResponse is the wire shape of both approval paths and the
// safety-net dispatch report.
type approveResponse struct {
	Week        string   `json:"week"`
	Sent        int      `json:"sent"`
	Skipped     int      `json:"skipped"`
	ScheduledAt string   `json:"scheduledAt"`
	Errors      []string `json:"errors,omitempty"`
}

func toApproveResponse(result orchestrators.DispatchResult) approveResponse {
	resp := approveResponse{
		Week:        result.Week,
		Sent:        result.Sent,
		Skipped:     result.Skipped,
		ScheduledAt: "immediate",
		Errors:      result.Errors,
	}
	if !result.ScheduledAt.IsZero() {
		resp.ScheduledAt = result.ScheduledAt.Format(time.RFC3339)
	}
	return resp
}

// --- Health ---

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Auth ---

// handleLogin handles POST /api/login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var input orchestrators.LoginInput
	if err := strictDecode(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), input,
		orchestrators.LoginDeps{Accounts: stores.AccountStore})
	if err != nil {
		writeError(w, err)
		return
	}

	sessionToken, err := sessions.Create(result.AccountID, result.Email, result.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, sessionToken)
	writeJSON(w, http.StatusOK, map[string]string{"email": result.Email, "role": result.Role})
}

// handleLogout handles POST /api/logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if t := middleware.SessionToken(r); t != "" {
		sessions.Delete(t)
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// --- Approval gateway ---

// handleApprove handles the two approval paths.
// GET  /api/digest/approve?token=...  one-click link from the preview email
// POST /api/digest/approve            authenticated editor session
func handleApprove(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.ApproveInput

	switch r.Method {
	case http.MethodGet:
		claims, err := signer.Verify(r.URL.Query().Get("token"), token.PurposeApprove)
		if err != nil {
			writeError(w, err)
			return
		}
		input = orchestrators.ApproveInput{
			Week:      claims.Week,
			Principal: orchestrators.Principal{Kind: orchestrators.PrincipalToken, Week: claims.Week},
		}

	case http.MethodPost:
		if _, ok := middleware.GetSessionFromContext(r.Context()); !ok {
			unauthorized(w)
			return
		}
		var body struct {
			Week string `json:"week"`
		}
		if err := strictDecode(r, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Week == "" {
			body.Week = digest.WeekKey(nowFunc())
		}
		input = orchestrators.ApproveInput{
			Week:      body.Week,
			Principal: orchestrators.Principal{Kind: orchestrators.PrincipalSession},
		}

	default:
		methodNotAllowed(w)
		return
	}

	result, err := orchestrators.ExecuteApprove(r.Context(), input,
		orchestrators.ApproveDeps{Digests: stores.DigestStore, Dispatch: dispatchDeps()})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApproveResponse(result))
}

// --- Draft endpoints ---

// handleDraft handles GET (read) and PUT (edit) for /api/digest/draft.
// Both require an authenticated session; ?week= defaults to the current week.
func handleDraft(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetSessionFromContext(r.Context()); !ok {
		unauthorized(w)
		return
	}

	switch r.Method {
	case http.MethodGet:
		week := r.URL.Query().Get("week")
		if week == "" {
			week = digest.WeekKey(nowFunc())
		}
		rec, revision, err := stores.DigestStore.Get(r.Context(), week)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"record": rec, "revision": revision})

	case http.MethodPut:
		var body struct {
			Week         string               `json:"week"`
			Summary      map[string]string    `json:"summary"`
			ClosingNote  map[string]string    `json:"closingNote"`
			WeeklyNumber *digest.WeeklyNumber `json:"weeklyNumber"`
		}
		if err := strictDecode(r, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Week == "" {
			body.Week = digest.WeekKey(nowFunc())
		}

		rec, err := orchestrators.ExecuteEditDigest(r.Context(), orchestrators.EditDigestInput{
			Week:         body.Week,
			Summary:      body.Summary,
			ClosingNote:  body.ClosingNote,
			WeeklyNumber: body.WeeklyNumber,
		}, orchestrators.EditDigestDeps{Digests: stores.DigestStore})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)

	default:
		methodNotAllowed(w)
	}
}

// --- Cron entry points ---

// handleCronCompose handles POST /api/cron/compose
func handleCronCompose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !requireCron(w, r) {
		return
	}

	result, err := orchestrators.ExecuteCompose(r.Context(), orchestrators.ComposeDeps{
		Digests:       stores.DigestStore,
		Feed:          feedReader,
		Sender:        emailSender,
		Renderer:      renderer,
		Tokens:        signer,
		BaseURL:       opts.BaseURL,
		From:          emailFromAddress,
		ReplyTo:       emailReplyTo,
		OperatorEmail: opts.OperatorEmail,
		ApprovalTTL:   opts.ApprovalTTL,
		Now:           nowFunc,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCronSafetyNet handles POST /api/cron/safety-net
func handleCronSafetyNet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !requireCron(w, r) {
		return
	}

	week := r.URL.Query().Get("week")
	if week == "" {
		week = digest.WeekKey(nowFunc())
	}

	result, err := orchestrators.ExecuteSafetyNet(r.Context(), orchestrators.SafetyNetInput{Week: week},
		orchestrators.SafetyNetDeps{Digests: stores.DigestStore, Dispatch: dispatchDeps()})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"week":     result.Week,
		"action":   result.Action,
		"dispatch": toApproveResponse(result.Dispatch),
	})
}

// --- Contact lifecycle ---

// handleSubscribe handles POST /api/contacts/subscribe
func handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var input orchestrators.SubscribeInput
	if err := strictDecode(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	err := orchestrators.ExecuteSubscribe(r.Context(), input, orchestrators.SubscribeDeps{
		Tokens:   signer,
		Renderer: renderer,
		Sender:   emailSender,
		Locales:  opts.Locales,
		BaseURL:  opts.BaseURL,
		From:     emailFromAddress,
		ReplyTo:  emailReplyTo,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "confirmation sent"})
}

// handleConfirm handles GET /api/contacts/confirm?token=...
func handleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	claims, err := signer.Verify(r.URL.Query().Get("token"), token.PurposeConfirm)
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := orchestrators.ExecuteConfirm(r.Context(), orchestrators.ConfirmInput{
		Email:  claims.Email,
		Locale: claims.Locale,
		Topics: claims.Topics,
	}, orchestrators.ConfirmDeps{
		Contacts:   stores.ContactStore,
		GenerateID: uuid.NewString,
		Now:        nowFunc,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"email": c.Email, "locale": c.Locale, "topics": c.Topics})
}

// handlePreferences handles POST /api/contacts/preferences. The caller is
// either a subscriber following the signed manage link (?token=) or an
// authenticated editor acting on any address.
func handlePreferences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var body struct {
		Email  string   `json:"email,omitempty"`
		Locale string   `json:"locale"`
		Topics []string `json:"topics"`
	}
	if err := strictDecode(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	email := body.Email
	if t := r.URL.Query().Get("token"); t != "" {
		claims, err := signer.Verify(t, token.PurposeUnsubscribe)
		if err != nil {
			writeError(w, err)
			return
		}
		email = claims.Email
	} else if _, ok := middleware.GetSessionFromContext(r.Context()); !ok {
		unauthorized(w)
		return
	}

	c, err := orchestrators.ExecuteUpdatePreferences(r.Context(), orchestrators.PreferencesInput{
		Email:  email,
		Locale: body.Locale,
		Topics: body.Topics,
	}, orchestrators.PreferencesDeps{
		Contacts: stores.ContactStore,
		Locales:  opts.Locales,
		Now:      nowFunc,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"email": c.Email, "locale": c.Locale, "topics": c.Topics})
}

// handleUnsubscribe handles GET /api/contacts/unsubscribe?token=...
func handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	claims, err := signer.Verify(r.URL.Query().Get("token"), token.PurposeUnsubscribe)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := orchestrators.ExecuteUnsubscribe(r.Context(),
		orchestrators.UnsubscribeInput{Email: claims.Email},
		orchestrators.UnsubscribeDeps{Contacts: stores.ContactStore, Now: nowFunc}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}
