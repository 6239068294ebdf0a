// Package feed holds the ephemeral "what changed" data consumed from the
// content change feed. Updates are never persisted; they are recomputed from
// the feed on every pipeline read.
package feed

import "sort"

// Common content statuses surfaced by the change feed.
const (
	StatusInProgress = "in-progress"
	StatusDone       = "done"
	StatusStalled    = "stalled"
)

// Metric is an optional numeric figure attached to a changed item, used to
// auto-suggest the digest's weekly number.
type Metric struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Update is a single changed content item for one locale.
type Update struct {
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Status   string  `json:"status,omitempty"`
	Summary  string  `json:"summary"`
	URL      string  `json:"url"`
	Metric   *Metric `json:"metric,omitempty"`
}

// ChangeSet is everything the feed reports for one cutoff window: the
// changed items per locale plus the auxiliary outstanding-commitment count.
type ChangeSet struct {
	Updates         map[string][]Update `json:"updates"`
	CommitmentCount int                 `json:"commitmentCount"`
}

// Categories returns the sorted union of categories touched in any locale.
func (cs ChangeSet) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, updates := range cs.Updates {
		for _, u := range updates {
			if u.Category == "" || seen[u.Category] {
				continue
			}
			seen[u.Category] = true
			out = append(out, u.Category)
		}
	}
	sort.Strings(out)
	return out
}

// StatusChanges counts the updates in one locale that carry a status,
// i.e. items whose tracked status moved this week.
func StatusChanges(updates []Update) int {
	n := 0
	for _, u := range updates {
		if u.Status != "" {
			n++
		}
	}
	return n
}
