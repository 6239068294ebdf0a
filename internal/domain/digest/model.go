package digest

import (
	"errors"
	"time"
)

// Supported site locales. French is the canonical locale: auto-suggested
// content is derived from the French change feed first.
const (
	LocaleFR = "fr"
	LocaleDE = "de"
	LocaleEN = "en"
)

// Locales lists every locale a digest carries text for.
var Locales = []string{LocaleFR, LocaleDE, LocaleEN}

// Domain errors
var (
	ErrAlreadySent  = errors.New("digest has already been sent")
	ErrNotApproved  = errors.New("digest has not been approved")
	ErrWeekMismatch = errors.New("token week does not match the pending digest")
	ErrEmptyWeek    = errors.New("week key is required")
)

// WeeklyNumber is the highlighted figure of the week, with a localized
// label and source attribution.
type WeeklyNumber struct {
	Value  float64           `json:"value"`
	Label  map[string]string `json:"label"`
	Source map[string]string `json:"source"`
}

// Record is the single digest record for one ISO week. It is persisted as
// one JSON object keyed by Week and must round-trip without field loss.
type Record struct {
	Week              string            `json:"week"`
	CreatedAt         time.Time         `json:"createdAt"`
	Approved          bool              `json:"approved"`
	Sent              bool              `json:"sent"`
	SentAt            time.Time         `json:"sentAt"`
	Summary           map[string]string `json:"summary"`
	ClosingNote       map[string]string `json:"closingNote"`
	WeeklyNumber      WeeklyNumber      `json:"weeklyNumber"`
	CommitmentCount   int               `json:"commitmentCount"`
	UpdatedCategories []string          `json:"updatedCategories"`
}

// Validate checks that the Record has valid data.
// PRE: Record struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Record) Validate() error {
	if r.Week == "" {
		return ErrEmptyWeek
	}
	if r.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	return nil
}

// Approve marks the record as approved. The flag is monotonic: approving an
// already approved record is a no-op, approving a sent record is rejected.
// PRE: Record is unsent
// POST: Approved is true
func (r *Record) Approve() error {
	if r.Sent {
		return ErrAlreadySent
	}
	r.Approved = true
	return nil
}

// MarkSent records the terminal send. A sent record is immutable; there is
// no transition back.
// PRE: Record is approved and unsent
// POST: Sent is true, SentAt is set
func (r *Record) MarkSent(at time.Time) error {
	if r.Sent {
		return ErrAlreadySent
	}
	if !r.Approved {
		return ErrNotApproved
	}
	r.Sent = true
	r.SentAt = at
	return nil
}

// EnsureEditable rejects mutation of the human-readable fields once the
// record is sent.
// INVARIANT: Record fields are not mutated
func (r *Record) EnsureEditable() error {
	if r.Sent {
		return ErrAlreadySent
	}
	return nil
}
