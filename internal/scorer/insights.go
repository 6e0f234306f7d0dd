package scorer

import "fmt"

// scoreBand labels a score range. Bands are ordered highest first and the
// first band whose Min the score meets wins.
type scoreBand struct {
	Min   float64
	Label string
}

var overallBands = []scoreBand{
	{Min: 8.5, Label: "excellent"},
	{Min: 7.0, Label: "good"},
	{Min: 5.0, Label: "moderate"},
	{Min: 0, Label: "limited"},
}

// OverallBand returns the qualitative label for an overall score.
func OverallBand(score float64) string {
	for _, b := range overallBands {
		if score >= b.Min {
			return b.Label
		}
	}
	return overallBands[len(overallBands)-1].Label
}

// Category insight thresholds.
const (
	categoryStrongMin = 8.0
	categoryWeakMax   = 5.0
)

// categoryRule emits one insight for a category result. Rules are checked
// in order and the first match wins, so the zero-sample rule must precede
// the low-score rule it would otherwise shadow.
type categoryRule struct {
	matches func(CategoryResult) bool
	render  func(CategoryResult) string
}

var categoryRules = []categoryRule{
	{
		matches: func(r CategoryResult) bool { return r.Score >= categoryStrongMin },
		render: func(r CategoryResult) string {
			return fmt.Sprintf("Excellent %s access (%.1f/10)", r.Category, r.Score)
		},
	},
	{
		matches: func(r CategoryResult) bool { return r.SampleCount == 0 },
		render: func(r CategoryResult) string {
			return fmt.Sprintf("No %s options found nearby", r.Category)
		},
	},
	{
		matches: func(r CategoryResult) bool { return r.Score < categoryWeakMax },
		render: func(r CategoryResult) string {
			return fmt.Sprintf("Limited %s access (%.1f/10)", r.Category, r.Score)
		},
	},
}

// buildInsights renders the insight list for an aggregate: one overall line
// followed by category lines in declining-weight order. Output is fully
// determined by the scores, so identical inputs yield identical insights.
func buildInsights(agg AggregateScore) []string {
	insights := []string{
		fmt.Sprintf("Overall infrastructure access is %s (%.1f/10)",
			OverallBand(agg.OverallScore), agg.OverallScore),
	}
	for _, cat := range Categories() {
		r, ok := agg.CategoryResults[cat]
		if !ok {
			continue
		}
		for _, rule := range categoryRules {
			if rule.matches(r) {
				insights = append(insights, rule.render(r))
				break
			}
		}
	}
	return insights
}
