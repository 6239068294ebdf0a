package render

import (
	"strings"
	"testing"
	"time"

	"civicwatch/internal/domain/digest"
	"civicwatch/internal/domain/feed"
)

func testRecord() digest.Record {
	return digest.Record{
		Week:      "2026-w07",
		CreatedAt: time.Date(2026, 2, 13, 6, 0, 0, 0, time.UTC),
		Summary: map[string]string{
			"fr": "Cette semaine, 3 contenus ont été mis à jour.",
			"de": "Diese Woche wurden 3 Inhalte aktualisiert.",
		},
		ClosingNote: map[string]string{
			"fr": "Merci de votre **attention**.",
		},
		WeeklyNumber: digest.WeeklyNumber{
			Value:  120,
			Label:  map[string]string{"fr": "millions d'euros", "de": "Millionen Euro"},
			Source: map[string]string{"fr": "Budget 2026", "de": "Haushalt 2026"},
		},
		CommitmentCount: 17,
	}
}

// TestDigest_FR tests the full French subscriber email: summary, updates,
// weekly number, markdown closing note and unsubscribe link.
func TestDigest_FR(t *testing.T) {
	r := New()
	updates := []feed.Update{
		{Title: "Budget 2026", Category: "budget", Status: feed.StatusDone, Summary: "Voté.", URL: "https://example.lu/fr/budget"},
		{Title: "Pistes cyclables", Category: "mobility", Summary: "En chantier.", URL: "https://example.lu/fr/pistes"},
	}

	email, err := r.Digest(testRecord(), "fr", updates, "https://example.lu/api/contacts/unsubscribe?token=x")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if email.Subject != "L'essentiel de la semaine 07/2026" {
		t.Errorf("subject = %q", email.Subject)
	}
	for _, want := range []string{
		"Cette semaine, 3 contenus",
		`<a href="https://example.lu/fr/budget">Budget 2026</a>`,
		"(réalisé)",
		"Le chiffre de la semaine",
		"millions d&#39;euros (source : Budget 2026)",
		"<strong>attention</strong>", // markdown was converted
		"unsubscribe?token=x",
	} {
		if !strings.Contains(email.HTML, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(email.HTML, "(en cours)") {
		t.Error("status label rendered for an update without a status")
	}
}

// TestDigest_UnknownLocaleFallsBack tests that a bad stored locale renders
// the canonical-locale strings instead of an empty shell.
func TestDigest_UnknownLocaleFallsBack(t *testing.T) {
	r := New()
	email, err := r.Digest(testRecord(), "xx", nil, "https://example.lu/u")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(email.Subject, "L'essentiel") {
		t.Errorf("expected French fallback subject, got %q", email.Subject)
	}
}

// TestDigest_NoWeeklyNumber tests that a zero weekly number hides the block.
func TestDigest_NoWeeklyNumber(t *testing.T) {
	r := New()
	rec := testRecord()
	rec.WeeklyNumber = digest.WeeklyNumber{}
	email, err := r.Digest(rec, "de", nil, "https://example.lu/u")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(email.HTML, "Die Zahl der Woche") {
		t.Error("weekly number block rendered despite zero value")
	}
}

// TestDigest_NumberWithoutSource tests that the commitment-count fallback
// (label but no source) renders the label alone.
func TestDigest_NumberWithoutSource(t *testing.T) {
	r := New()
	rec := testRecord()
	rec.WeeklyNumber = digest.WeeklyNumber{
		Value: 17,
		Label: map[string]string{"fr": "engagements suivis"},
	}
	email, err := r.Digest(rec, "fr", nil, "https://example.lu/u")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(email.HTML, "engagements suivis") {
		t.Error("body missing the fallback label")
	}
	if strings.Contains(email.HTML, "source :") {
		t.Error("empty source rendered")
	}
}

// TestDigest_ClosingNoteRawHTMLNotPassedThrough tests that HTML embedded in a
// closing note never reaches the email verbatim.
func TestDigest_ClosingNoteRawHTMLNotPassedThrough(t *testing.T) {
	r := New()
	rec := testRecord()
	rec.ClosingNote["fr"] = "Bonjour <script>alert(1)</script>"
	email, err := r.Digest(rec, "fr", nil, "https://example.lu/u")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(email.HTML, "<script>") {
		t.Error("raw HTML from the closing note reached the email body")
	}
}

// TestPreview tests the operator email: canonical-locale draft plus approval
// and edit links.
func TestPreview(t *testing.T) {
	r := New()
	email, err := r.Preview(testRecord(), "https://example.lu/api/digest/approve?token=y", "https://example.lu/admin/draft")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(email.Subject, "07/2026") {
		t.Errorf("subject = %q", email.Subject)
	}
	for _, want := range []string{
		"approve?token=y",
		"https://example.lu/admin/draft",
		"Cette semaine, 3 contenus",
	} {
		if !strings.Contains(email.HTML, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

// TestConfirm tests the opt-in email for a non-canonical locale.
func TestConfirm(t *testing.T) {
	r := New()
	email, err := r.Confirm("en", "https://example.lu/api/contacts/confirm?token=z")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if email.Subject != "Confirm your subscription" {
		t.Errorf("subject = %q", email.Subject)
	}
	if !strings.Contains(email.HTML, "confirm?token=z") {
		t.Error("body missing the confirmation link")
	}
}
