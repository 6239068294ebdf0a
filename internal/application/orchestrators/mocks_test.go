package orchestrators

import (
	"context"
	"fmt"
	"sort"
	"time"

	emailAdapter "civicwatch/internal/adapters/email"
	storageContact "civicwatch/internal/adapters/storage/contact"
	storageDigest "civicwatch/internal/adapters/storage/digest"
	"civicwatch/internal/application/render"
	accountDomain "civicwatch/internal/domain/account"
	contactDomain "civicwatch/internal/domain/contact"
	"civicwatch/internal/domain/digest"
	"civicwatch/internal/domain/feed"
)

// --- Digest store mock (in-memory CAS semantics) ---

type mockDigestStore struct {
	records   map[string]digest.Record
	revisions map[string]int64
	updateErr error
}

func newMockDigestStore() *mockDigestStore {
	return &mockDigestStore{
		records:   make(map[string]digest.Record),
		revisions: make(map[string]int64),
	}
}

func (m *mockDigestStore) Get(_ context.Context, week string) (digest.Record, int64, error) {
	rec, ok := m.records[week]
	if !ok {
		return digest.Record{}, 0, fmt.Errorf("%w: %s", storageDigest.ErrNotFound, week)
	}
	return rec, m.revisions[week], nil
}

func (m *mockDigestStore) Create(_ context.Context, rec digest.Record) error {
	if _, ok := m.records[rec.Week]; ok {
		return fmt.Errorf("%w: %s", storageDigest.ErrExists, rec.Week)
	}
	m.records[rec.Week] = rec
	m.revisions[rec.Week] = 1
	return nil
}

func (m *mockDigestStore) Update(_ context.Context, rec digest.Record, expectedRevision int64) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	current, ok := m.revisions[rec.Week]
	if !ok {
		return fmt.Errorf("%w: %s", storageDigest.ErrNotFound, rec.Week)
	}
	if current != expectedRevision {
		return fmt.Errorf("%w: %s", storageDigest.ErrConflict, rec.Week)
	}
	m.records[rec.Week] = rec
	m.revisions[rec.Week] = current + 1
	return nil
}

// --- Contact store mock ---

type mockContactStore struct {
	contacts map[string]contactDomain.Contact
	listErr  error
}

func newMockContactStore(contacts ...contactDomain.Contact) *mockContactStore {
	m := &mockContactStore{contacts: make(map[string]contactDomain.Contact)}
	for _, c := range contacts {
		m.contacts[c.Email] = c
	}
	return m
}

func (m *mockContactStore) GetByEmail(_ context.Context, email string) (contactDomain.Contact, error) {
	c, ok := m.contacts[email]
	if !ok {
		return contactDomain.Contact{}, fmt.Errorf("%w: %s", storageContact.ErrNotFound, email)
	}
	return c, nil
}

func (m *mockContactStore) Save(_ context.Context, c contactDomain.Contact) error {
	m.contacts[c.Email] = c
	return nil
}

func (m *mockContactStore) ListSubscribed(_ context.Context) ([]contactDomain.Contact, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []contactDomain.Contact
	for _, c := range m.contacts {
		if !c.Unsubscribed {
			out = append(out, c)
		}
	}
	// Same ordering contract as the real store.
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// --- Account store mock ---

type mockAccountStore struct {
	accounts map[string]accountDomain.Account
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{accounts: make(map[string]accountDomain.Account)}
}

func (m *mockAccountStore) GetByEmail(_ context.Context, email string) (accountDomain.Account, error) {
	a, ok := m.accounts[email]
	if !ok {
		return accountDomain.Account{}, fmt.Errorf("account not found: %s", email)
	}
	return a, nil
}

func (m *mockAccountStore) Save(_ context.Context, a accountDomain.Account) error {
	m.accounts[a.Email] = a
	return nil
}

func (m *mockAccountStore) Count(_ context.Context) (int, error) {
	return len(m.accounts), nil
}

// --- Sender mock ---

type mockSender struct {
	sent     []emailAdapter.SendRequest   // single sends
	batches  [][]emailAdapter.SendRequest // batch submissions
	sendErr  error
	batchErr func(batchIndex int) error // nil means every batch succeeds
}

func (m *mockSender) Send(_ context.Context, req emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	if m.sendErr != nil {
		return emailAdapter.SendResult{}, m.sendErr
	}
	m.sent = append(m.sent, req)
	return emailAdapter.SendResult{MessageID: fmt.Sprintf("msg-%d", len(m.sent))}, nil
}

func (m *mockSender) SendBatch(_ context.Context, reqs []emailAdapter.SendRequest) ([]emailAdapter.SendResult, error) {
	idx := len(m.batches)
	m.batches = append(m.batches, reqs)
	if m.batchErr != nil {
		if err := m.batchErr(idx); err != nil {
			return nil, err
		}
	}
	results := make([]emailAdapter.SendResult, len(reqs))
	for i := range reqs {
		results[i] = emailAdapter.SendResult{MessageID: fmt.Sprintf("msg-%d-%d", idx, i)}
	}
	return results, nil
}

func (m *mockSender) providerCalls() int {
	return len(m.sent) + len(m.batches)
}

// --- Feed mock ---

type mockFeed struct {
	changes feed.ChangeSet
	err     error
}

func (m *mockFeed) ChangesSince(_ context.Context, _ time.Time) (feed.ChangeSet, error) {
	if m.err != nil {
		return feed.ChangeSet{}, m.err
	}
	return m.changes, nil
}

// --- Token issuer mock ---

type mockTokens struct{}

func (mockTokens) ApprovalToken(week string, _ time.Duration) (string, error) {
	return "approve-" + week, nil
}

func (mockTokens) ConfirmToken(email, _ string, _ []string, _ time.Duration) (string, error) {
	return "confirm-" + email, nil
}

func (mockTokens) UnsubscribeToken(email string, _ time.Duration) (string, error) {
	return "unsub-" + email, nil
}

// --- Shared fixtures ---

// week 2026-w07 runs Mon Feb 9 – Sun Feb 15; its send window is Mon Feb 16
// 08:00 UTC in these tests.
const testWeek = "2026-w07"

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testChanges() feed.ChangeSet {
	return feed.ChangeSet{
		Updates: map[string][]feed.Update{
			"fr": {
				{Title: "Budget 2026", Category: "budget", Status: feed.StatusDone, Summary: "Voté.", URL: "https://example.lu/fr/budget",
					Metric: &feed.Metric{Value: 120, Label: "millions d'euros"}},
				{Title: "Pistes cyclables", Category: "mobility", Summary: "En chantier.", URL: "https://example.lu/fr/pistes"},
			},
			"de": {
				{Title: "Budget 2026", Category: "budget", Status: feed.StatusDone, Summary: "Verabschiedet.", URL: "https://example.lu/de/budget",
					Metric: &feed.Metric{Value: 120, Label: "Millionen Euro"}},
			},
		},
		CommitmentCount: 17,
	}
}

func pendingRecord() digest.Record {
	return digest.Record{
		Week:      testWeek,
		CreatedAt: time.Date(2026, 2, 9, 6, 0, 0, 0, time.UTC),
		Summary: map[string]string{
			"fr": "Cette semaine, 2 contenus ont été mis à jour, dont 1 changements de statut.",
			"de": "Diese Woche wurden 1 Inhalte aktualisiert, davon 1 Statusänderungen.",
			"en": "This week, 0 items were updated, including 0 status changes.",
		},
		ClosingNote:       map[string]string{},
		CommitmentCount:   17,
		UpdatedCategories: []string{"budget", "mobility"},
	}
}

func testDispatchDeps(contacts *mockContactStore, sender *mockSender, now time.Time) DispatchDeps {
	return DispatchDeps{
		Contacts:      contacts,
		Feed:          &mockFeed{changes: testChanges()},
		Sender:        sender,
		Renderer:      render.New(),
		Tokens:        mockTokens{},
		BaseURL:       "https://civicwatch.example.lu",
		From:          "CivicWatch <digest@civicwatch.example.lu>",
		ReplyTo:       "hello@civicwatch.example.lu",
		DefaultLocale: "fr",
		BatchSize:     2,
		Location:      time.UTC,
		Now:           fixedNow(now),
	}
}
