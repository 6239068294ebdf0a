package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestChangesSince_OK tests decoding a healthy feed response.
func TestChangesSince_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/changes" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("since") == "" {
			t.Error("missing since parameter")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"updates": {
				"fr": [{"title": "Budget 2026", "category": "budget", "status": "done", "summary": "Voté.", "url": "https://example.lu/fr/budget", "metric": {"value": 120, "label": "millions d'euros"}}],
				"de": [{"title": "Budget 2026", "category": "budget", "status": "done", "summary": "Verabschiedet.", "url": "https://example.lu/de/budget"}]
			},
			"commitmentCount": 17
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	cs, err := c.ChangesSince(context.Background(), time.Now().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("ChangesSince: %v", err)
	}
	if cs.CommitmentCount != 17 {
		t.Errorf("commitmentCount = %d, want 17", cs.CommitmentCount)
	}
	fr := cs.Updates["fr"]
	if len(fr) != 1 || fr[0].Metric == nil || fr[0].Metric.Value != 120 {
		t.Errorf("unexpected fr updates: %+v", fr)
	}
}

// TestChangesSince_ServerError tests that a 5xx maps to ErrFeedUnavailable.
func TestChangesSince_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.ChangesSince(context.Background(), time.Now()); !errors.Is(err, ErrFeedUnavailable) {
		t.Errorf("expected ErrFeedUnavailable, got: %v", err)
	}
}

// TestChangesSince_Unreachable tests that a connection failure maps to
// ErrFeedUnavailable.
func TestChangesSince_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Closed immediately so the address refuses connections.

	c := NewClient(srv.URL, time.Second)
	if _, err := c.ChangesSince(context.Background(), time.Now()); !errors.Is(err, ErrFeedUnavailable) {
		t.Errorf("expected ErrFeedUnavailable, got: %v", err)
	}
}
