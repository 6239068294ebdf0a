// Package render turns a digest record into the localized HTML emails the
// pipeline sends: the subscriber digest, the operator preview, and the
// contact-lifecycle notices.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"

	"civicwatch/internal/domain/digest"
	"civicwatch/internal/domain/feed"
)

// Email is a rendered message, ready for the sender.
type Email struct {
	Subject string
	HTML    string
}

// text holds the per-locale literal strings. No translation service: every
// string an email needs exists verbatim in this table.
type text struct {
	subject       string // takes the week label
	greeting      string
	numberHeading string
	numberOf      string // joins label and source
	statusLabels  map[string]string
	closingHead   string
	unsubscribe   string
	previewHead   string // takes the week label
	approve       string
	edit          string
	confirmSubj   string
	confirmBody   string
	confirmLink   string
}

var texts = map[string]text{
	digest.LocaleFR: {
		subject:       "L'essentiel de la semaine %s",
		greeting:      "Voici ce qui a changé cette semaine.",
		numberHeading: "Le chiffre de la semaine",
		numberOf:      "%s (source : %s)",
		statusLabels:  map[string]string{feed.StatusInProgress: "en cours", feed.StatusDone: "réalisé", feed.StatusStalled: "au point mort"},
		closingHead:   "Le mot de la fin",
		unsubscribe:   "Se désabonner",
		previewHead:   "Brouillon du récap de la semaine %s",
		approve:       "Approuver et envoyer",
		edit:          "Modifier le brouillon",
		confirmSubj:   "Confirmez votre abonnement",
		confirmBody:   "Cliquez sur le lien ci-dessous pour confirmer votre abonnement au récap hebdomadaire.",
		confirmLink:   "Confirmer mon abonnement",
	},
	digest.LocaleDE: {
		subject:       "Das Wichtigste der Woche %s",
		greeting:      "Das hat sich diese Woche geändert.",
		numberHeading: "Die Zahl der Woche",
		numberOf:      "%s (Quelle: %s)",
		statusLabels:  map[string]string{feed.StatusInProgress: "läuft", feed.StatusDone: "umgesetzt", feed.StatusStalled: "steht still"},
		closingHead:   "Zum Schluss",
		unsubscribe:   "Abmelden",
		previewHead:   "Entwurf des Wochenrückblicks %s",
		approve:       "Freigeben und versenden",
		edit:          "Entwurf bearbeiten",
		confirmSubj:   "Bestätigen Sie Ihr Abonnement",
		confirmBody:   "Klicken Sie auf den folgenden Link, um Ihr Abonnement des Wochenrückblicks zu bestätigen.",
		confirmLink:   "Abonnement bestätigen",
	},
	digest.LocaleEN: {
		subject:       "This week in brief — %s",
		greeting:      "Here is what changed this week.",
		numberHeading: "Number of the week",
		numberOf:      "%s (source: %s)",
		statusLabels:  map[string]string{feed.StatusInProgress: "in progress", feed.StatusDone: "done", feed.StatusStalled: "stalled"},
		closingHead:   "One last thing",
		unsubscribe:   "Unsubscribe",
		previewHead:   "Draft digest for week %s",
		approve:       "Approve and send",
		edit:          "Edit draft",
		confirmSubj:   "Confirm your subscription",
		confirmBody:   "Click the link below to confirm your subscription to the weekly digest.",
		confirmLink:   "Confirm subscription",
	},
}

// localeText falls back to the canonical locale for unknown values so a bad
// stored locale degrades to French instead of a blank email.
func localeText(locale string) text {
	if t, ok := texts[locale]; ok {
		return t
	}
	return texts[digest.LocaleFR]
}

const digestTemplate = `<!DOCTYPE html>
<html lang="{{.Locale}}">
<body style="font-family: Georgia, serif; max-width: 600px; margin: 0 auto; padding: 24px; color: #1a1a1a;">
	<p>{{.Greeting}}</p>
	<p>{{.Summary}}</p>
	{{if .Number}}
	<div style="border-left: 4px solid #2b6cb0; padding: 8px 16px; margin: 16px 0;">
		<strong>{{.NumberHeading}}</strong><br>
		<span style="font-size: 1.6em;">{{.NumberValue}}</span> {{.NumberCaption}}
	</div>
	{{end}}
	<ul style="padding-left: 20px;">
	{{range .Updates}}
		<li style="margin-bottom: 12px;">
			<a href="{{.URL}}">{{.Title}}</a>{{if .StatusLabel}} <em>({{.StatusLabel}})</em>{{end}}<br>
			{{.Summary}}
		</li>
	{{end}}
	</ul>
	{{if .ClosingNote}}
	<p><strong>{{.ClosingHead}}</strong></p>
	{{.ClosingNote}}
	{{end}}
	<hr style="border: none; border-top: 1px solid #ddd; margin-top: 32px;">
	<p style="font-size: 0.85em; color: #666;">
		<a href="{{.UnsubscribeURL}}" style="color: #666;">{{.Unsubscribe}}</a>
	</p>
</body>
</html>`

const previewTemplate = `<!DOCTYPE html>
<html lang="{{.Locale}}">
<body style="font-family: Georgia, serif; max-width: 600px; margin: 0 auto; padding: 24px; color: #1a1a1a;">
	<h2>{{.Heading}}</h2>
	<p>{{.Summary}}</p>
	{{if .Number}}
	<p><strong>{{.NumberHeading}}</strong>: {{.NumberValue}} {{.NumberCaption}}</p>
	{{end}}
	{{if .ClosingNote}}{{.ClosingNote}}{{end}}
	<p style="margin-top: 32px;">
		<a href="{{.ApproveURL}}" style="background: #2b6cb0; color: #fff; padding: 10px 18px; text-decoration: none;">{{.Approve}}</a>
		&nbsp;&nbsp;
		<a href="{{.EditURL}}">{{.Edit}}</a>
	</p>
</body>
</html>`

const confirmTemplate = `<!DOCTYPE html>
<html lang="{{.Locale}}">
<body style="font-family: Georgia, serif; max-width: 600px; margin: 0 auto; padding: 24px; color: #1a1a1a;">
	<p>{{.Body}}</p>
	<p><a href="{{.ConfirmURL}}" style="background: #2b6cb0; color: #fff; padding: 10px 18px; text-decoration: none;">{{.Link}}</a></p>
</body>
</html>`

// Renderer renders all pipeline emails. Templates are parsed once at
// construction; the markdown converter escapes raw HTML in closing notes.
type Renderer struct {
	digestTpl  *template.Template
	previewTpl *template.Template
	confirmTpl *template.Template
	md         goldmark.Markdown
}

// New creates a Renderer. Panics on template parse failure, which only a
// source change can cause.
func New() *Renderer {
	return &Renderer{
		digestTpl:  template.Must(template.New("digest").Parse(digestTemplate)),
		previewTpl: template.Must(template.New("preview").Parse(previewTemplate)),
		confirmTpl: template.Must(template.New("confirm").Parse(confirmTemplate)),
		md:         goldmark.New(),
	}
}

type updateView struct {
	Title       string
	URL         string
	Summary     string
	StatusLabel string
}

// Digest renders the subscriber email for one locale.
// PRE: updates have already been filtered to this contact
// POST: Returns the subject and HTML body
func (r *Renderer) Digest(rec digest.Record, locale string, updates []feed.Update, unsubscribeURL string) (Email, error) {
	t := localeText(locale)

	views := make([]updateView, 0, len(updates))
	for _, u := range updates {
		views = append(views, updateView{
			Title:       u.Title,
			URL:         u.URL,
			Summary:     u.Summary,
			StatusLabel: t.statusLabels[u.Status],
		})
	}

	note, err := r.markdown(rec.ClosingNote[locale])
	if err != nil {
		return Email{}, err
	}

	data := struct {
		Locale         string
		Greeting       string
		Summary        string
		Number         bool
		NumberHeading  string
		NumberValue    string
		NumberCaption  string
		Updates        []updateView
		ClosingHead    string
		ClosingNote    template.HTML
		UnsubscribeURL string
		Unsubscribe    string
	}{
		Locale:         locale,
		Greeting:       t.greeting,
		Summary:        rec.Summary[locale],
		ClosingHead:    t.closingHead,
		ClosingNote:    note,
		UnsubscribeURL: unsubscribeURL,
		Unsubscribe:    t.unsubscribe,
		Updates:        views,
	}
	if rec.WeeklyNumber.Value != 0 {
		data.Number = true
		data.NumberHeading = t.numberHeading
		data.NumberValue = formatNumber(rec.WeeklyNumber.Value)
		data.NumberCaption = numberCaption(t, rec.WeeklyNumber, locale)
	}

	var buf bytes.Buffer
	if err := r.digestTpl.Execute(&buf, data); err != nil {
		return Email{}, fmt.Errorf("render digest email: %w", err)
	}
	return Email{
		Subject: fmt.Sprintf(t.subject, weekLabel(rec.Week)),
		HTML:    buf.String(),
	}, nil
}

// Preview renders the operator notification: the canonical-locale draft plus
// approval and edit links.
func (r *Renderer) Preview(rec digest.Record, approveURL, editURL string) (Email, error) {
	t := localeText(digest.LocaleFR)

	note, err := r.markdown(rec.ClosingNote[digest.LocaleFR])
	if err != nil {
		return Email{}, err
	}

	data := struct {
		Locale        string
		Heading       string
		Summary       string
		Number        bool
		NumberHeading string
		NumberValue   string
		NumberCaption string
		ClosingNote   template.HTML
		ApproveURL    string
		EditURL       string
		Approve       string
		Edit          string
	}{
		Locale:      digest.LocaleFR,
		Heading:     fmt.Sprintf(t.previewHead, weekLabel(rec.Week)),
		Summary:     rec.Summary[digest.LocaleFR],
		ClosingNote: note,
		ApproveURL:  approveURL,
		EditURL:     editURL,
		Approve:     t.approve,
		Edit:        t.edit,
	}
	if rec.WeeklyNumber.Value != 0 {
		data.Number = true
		data.NumberHeading = t.numberHeading
		data.NumberValue = formatNumber(rec.WeeklyNumber.Value)
		data.NumberCaption = numberCaption(t, rec.WeeklyNumber, digest.LocaleFR)
	}

	var buf bytes.Buffer
	if err := r.previewTpl.Execute(&buf, data); err != nil {
		return Email{}, fmt.Errorf("render preview email: %w", err)
	}
	return Email{Subject: data.Heading, HTML: buf.String()}, nil
}

// Confirm renders the double-opt-in email.
func (r *Renderer) Confirm(locale, confirmURL string) (Email, error) {
	t := localeText(locale)
	data := struct {
		Locale     string
		Body       string
		ConfirmURL string
		Link       string
	}{Locale: locale, Body: t.confirmBody, ConfirmURL: confirmURL, Link: t.confirmLink}

	var buf bytes.Buffer
	if err := r.confirmTpl.Execute(&buf, data); err != nil {
		return Email{}, fmt.Errorf("render confirm email: %w", err)
	}
	return Email{Subject: t.confirmSubj, HTML: buf.String()}, nil
}

// markdown converts a closing note to HTML. Raw HTML inside the note is not
// passed through; goldmark drops it by default.
func (r *Renderer) markdown(src string) (template.HTML, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render closing note: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// numberCaption joins the weekly number's label and source. A number with no
// source (the commitment-count fallback) shows the label alone.
func numberCaption(t text, n digest.WeeklyNumber, locale string) string {
	label := n.Label[locale]
	source := n.Source[locale]
	if source == "" {
		return label
	}
	return fmt.Sprintf(t.numberOf, label, source)
}

// formatNumber trims the trailing zeros of a float for display.
func formatNumber(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// weekLabel turns "2026-w07" into the display form "07/2026". A malformed
// key is shown as-is rather than failing the whole email.
func weekLabel(week string) string {
	year, num, err := digest.ParseWeekKey(week)
	if err != nil {
		return week
	}
	return fmt.Sprintf("%02d/%d", num, year)
}
