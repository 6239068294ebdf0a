package contact

import (
	"testing"

	"civicwatch/internal/domain/feed"
)

func budgetUpdate() feed.Update {
	return feed.Update{Title: "Budget 2026 adopté", Category: CategoryBudget, Summary: "Le budget communal a été voté.", URL: "https://example.lu/fr/budget-2026"}
}

func mobilityUpdate() feed.Update {
	return feed.Update{Title: "Nouveau plan vélo", Category: CategoryMobility, Summary: "Pistes cyclables étendues.", URL: "https://example.lu/fr/plan-velo"}
}

// TestEffectiveCategories_SectorExpansion tests that a sector topic maps to
// exactly its configured parent category.
func TestEffectiveCategories_SectorExpansion(t *testing.T) {
	c := Contact{Topics: []string{"cycling"}}
	effective := c.EffectiveCategories()
	if !effective[CategoryMobility] {
		t.Error("cycling should expand to mobility")
	}
	if effective[CategoryBudget] {
		t.Error("cycling must not expand to unrelated categories")
	}
}

// TestEffectiveCategories_SolutionsNeverExpands tests the special topic.
func TestEffectiveCategories_SolutionsNeverExpands(t *testing.T) {
	c := Contact{Topics: []string{TopicSolutions}}
	effective := c.EffectiveCategories()
	if len(effective) != 1 || !effective[TopicSolutions] {
		t.Errorf("solutions expanded unexpectedly: %v", effective)
	}
}

// TestRelevant_NoMatchSkips tests that a contact subscribed to mobility is
// skipped when only budget changed.
func TestRelevant_NoMatchSkips(t *testing.T) {
	c := Contact{Topics: []string{CategoryMobility}}
	relevant, skipped := c.Relevant([]feed.Update{budgetUpdate()})
	if !skipped {
		t.Error("expected contact to be skipped")
	}
	if len(relevant) != 0 {
		t.Errorf("expected no relevant updates, got %d", len(relevant))
	}
}

// TestRelevant_EmptyTopicsMeansNoFilter tests that an empty topic set
// receives all updates for the locale.
func TestRelevant_EmptyTopicsMeansNoFilter(t *testing.T) {
	c := Contact{Topics: nil}
	updates := []feed.Update{budgetUpdate(), mobilityUpdate()}
	relevant, skipped := c.Relevant(updates)
	if skipped {
		t.Error("empty topic set must not skip")
	}
	if len(relevant) != 2 {
		t.Errorf("expected all updates, got %d", len(relevant))
	}
}

// TestRelevant_Intersection tests category filtering.
func TestRelevant_Intersection(t *testing.T) {
	c := Contact{Topics: []string{CategoryBudget}}
	relevant, skipped := c.Relevant([]feed.Update{budgetUpdate(), mobilityUpdate()})
	if skipped {
		t.Error("unexpected skip")
	}
	if len(relevant) != 1 || relevant[0].Category != CategoryBudget {
		t.Errorf("expected only the budget update, got %v", relevant)
	}
}

// TestRelevant_SectorReceivesParent tests that a sector subscriber receives
// parent-category updates.
func TestRelevant_SectorReceivesParent(t *testing.T) {
	c := Contact{Topics: []string{"public-transport"}}
	relevant, skipped := c.Relevant([]feed.Update{mobilityUpdate()})
	if skipped || len(relevant) != 1 {
		t.Errorf("sector subscriber should receive parent updates, got %v (skipped=%v)", relevant, skipped)
	}
}

// TestRelevant_SolutionsNeverMatches tests that a solutions-only subscriber
// never matches category-keyed updates, even one literally keyed "solutions".
func TestRelevant_SolutionsNeverMatches(t *testing.T) {
	c := Contact{Topics: []string{TopicSolutions}}
	updates := []feed.Update{budgetUpdate(), {Title: "Solutions", Category: TopicSolutions}}
	relevant, skipped := c.Relevant(updates)
	if !skipped {
		t.Error("solutions-only subscriber should be skipped for category digests")
	}
	if len(relevant) != 0 {
		t.Errorf("expected no matches, got %v", relevant)
	}
}
