package contact

import "civicwatch/internal/domain/feed"

// TopicSolutions is the special topic for the solutions newsletter. It never
// expands to a parent category and never matches category-keyed updates.
const TopicSolutions = "solutions"

// Parent content categories.
const (
	CategoryBudget      = "budget"
	CategoryMobility    = "mobility"
	CategoryEducation   = "education"
	CategoryEnvironment = "environment"
	CategoryHousing     = "housing"
	CategoryGovernance  = "governance"
)

// Categories lists every parent category an update can carry.
var Categories = []string{
	CategoryBudget,
	CategoryMobility,
	CategoryEducation,
	CategoryEnvironment,
	CategoryHousing,
	CategoryGovernance,
}

// sectorParent maps sector-level topics to their parent category. Static
// many-to-one; a sector subscription receives everything in its parent.
var sectorParent = map[string]string{
	"public-transport": CategoryMobility,
	"cycling":          CategoryMobility,
	"roads":            CategoryMobility,
	"schools":          CategoryEducation,
	"childcare":        CategoryEducation,
	"taxes":            CategoryBudget,
	"subsidies":        CategoryBudget,
	"waste":            CategoryEnvironment,
	"energy":           CategoryEnvironment,
	"water":            CategoryEnvironment,
	"social-housing":   CategoryHousing,
	"zoning":           CategoryHousing,
	"elections":        CategoryGovernance,
	"transparency":     CategoryGovernance,
}

// ParentCategory resolves a sector topic to its parent category.
func ParentCategory(topic string) (string, bool) {
	parent, ok := sectorParent[topic]
	return parent, ok
}

// KnownTopic reports whether a topic is a category, a mapped sector, or the
// solutions topic.
func KnownTopic(topic string) bool {
	if topic == TopicSolutions {
		return true
	}
	if _, ok := sectorParent[topic]; ok {
		return true
	}
	for _, c := range Categories {
		if c == topic {
			return true
		}
	}
	return false
}

// EffectiveCategories resolves the contact's raw topics into the category
// set used for filtering: raw topics plus, for every sector topic, its
// parent category. The solutions topic is carried as-is but is excluded from
// expansion; it never gains a parent.
// INVARIANT: Contact fields are not mutated
func (c *Contact) EffectiveCategories() map[string]bool {
	effective := make(map[string]bool, len(c.Topics)*2)
	for _, topic := range c.Topics {
		effective[topic] = true
		if topic == TopicSolutions {
			continue
		}
		if parent, ok := sectorParent[topic]; ok {
			effective[parent] = true
		}
	}
	return effective
}

// Relevant returns the subset of updates the contact should receive, and
// whether the contact is skipped for this run.
//
// An empty effective set means "no filter": the contact receives every
// update for their locale, which protects misconfigured accounts from
// silently receiving nothing. A non-empty set with an empty intersection
// skips the contact entirely (no email, counted as skipped, not an error).
func (c *Contact) Relevant(updates []feed.Update) (relevant []feed.Update, skipped bool) {
	effective := c.EffectiveCategories()
	if len(effective) == 0 {
		return updates, false
	}
	for _, u := range updates {
		if u.Category == TopicSolutions {
			continue
		}
		if effective[u.Category] {
			relevant = append(relevant, u)
		}
	}
	if len(relevant) == 0 {
		return nil, true
	}
	return relevant, false
}
