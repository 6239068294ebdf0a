// Package feed talks to the content change feed, the external collaborator
// that knows what content changed since a cutoff. The pipeline only consumes
// this; it never computes diffs itself.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	domain "civicwatch/internal/domain/feed"
)

// ErrFeedUnavailable indicates the change feed could not be reached or
// returned an unusable response. Composition aborts on it and retries on
// the next scheduled run.
var ErrFeedUnavailable = errors.New("content feed unavailable")

// Client is the HTTP client for the change feed.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a feed client with a bounded request timeout.
// PRE: baseURL is the feed endpoint root; timeout > 0
// POST: Returns a ready-to-use client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ChangesSince returns the per-locale changed items and the outstanding-
// commitment count for the window starting at cutoff.
// PRE: ctx is valid; cutoff is in the past
// POST: Returns the change set, or an error wrapping ErrFeedUnavailable
func (c *Client) ChangesSince(ctx context.Context, cutoff time.Time) (domain.ChangeSet, error) {
	endpoint := fmt.Sprintf("%s/changes?since=%s", c.baseURL, url.QueryEscape(cutoff.UTC().Format(time.RFC3339)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ChangeSet{}, fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	var cs domain.ChangeSet
	if err := json.NewDecoder(resp.Body).Decode(&cs); err != nil {
		return domain.ChangeSet{}, fmt.Errorf("%w: decode: %v", ErrFeedUnavailable, err)
	}
	return cs, nil
}
