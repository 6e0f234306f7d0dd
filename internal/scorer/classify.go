package scorer

import "strings"

// Classifier maps raw provider type tags onto categories.
//
// Categories are checked in declining-weight order, so a point whose tags
// span two categories always lands in the heavier one. Within a category the
// tag list order does not matter. Points matching no category are discarded
// by callers.
type Classifier struct {
	order []Category
	tags  map[Category]map[string]bool
}

// NewClassifier builds a classifier from the config's tag sets.
func NewClassifier(cfg Config) *Classifier {
	c := &Classifier{
		tags: make(map[Category]map[string]bool, len(cfg.Categories)),
	}
	for _, cat := range Categories() {
		cc, ok := cfg.Categories[cat]
		if !ok {
			continue
		}
		set := make(map[string]bool, len(cc.Tags))
		for _, tag := range cc.Tags {
			set[strings.ToLower(strings.TrimSpace(tag))] = true
		}
		c.order = append(c.order, cat)
		c.tags[cat] = set
	}
	return c
}

// Classify returns the first category in precedence order whose tag set
// contains any of rawTags. ok is false when no tag is recognized.
func (c *Classifier) Classify(rawTags []string) (Category, bool) {
	if len(rawTags) == 0 {
		return "", false
	}
	normalized := make([]string, 0, len(rawTags))
	for _, tag := range rawTags {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(tag)))
	}
	for _, cat := range c.order {
		set := c.tags[cat]
		for _, tag := range normalized {
			if set[tag] {
				return cat, true
			}
		}
	}
	return "", false
}
