package scorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverallBand(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{10, "excellent"},
		{8.5, "excellent"},
		{8.49, "good"},
		{7.0, "good"},
		{6.99, "moderate"},
		{5.0, "moderate"},
		{4.99, "limited"},
		{0, "limited"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, OverallBand(tt.score))
		})
	}
}

func catResult(cat Category, score float64, samples int) CategoryResult {
	return CategoryResult{Category: cat, Score: score, SampleCount: samples}
}

func TestBuildInsights_CategoryThresholds(t *testing.T) {
	agg := AggregateScore{
		OverallScore: 6.2,
		CategoryResults: map[Category]CategoryResult{
			CategoryHealthcare:     catResult(CategoryHealthcare, 8.0, 4),
			CategoryEducation:      catResult(CategoryEducation, 7.9, 3),
			CategoryTransportation: catResult(CategoryTransportation, 5.0, 2),
			CategoryShopping:       catResult(CategoryShopping, 6.5, 3),
			CategoryServices:       catResult(CategoryServices, 4.9, 2),
			CategoryRecreation:     catResult(CategoryRecreation, 9.3, 5),
			CategoryDining:         catResult(CategoryDining, 0, 0),
		},
	}

	insights := buildInsights(agg)

	joined := strings.Join(insights, "\n")
	assert.Contains(t, joined, "Overall infrastructure access is moderate (6.2/10)")
	assert.Contains(t, joined, "Excellent healthcare access (8.0/10)")
	assert.Contains(t, joined, "Excellent recreation access (9.3/10)")
	assert.Contains(t, joined, "Limited services access (4.9/10)")
	assert.Contains(t, joined, "No dining options found nearby")

	// Between the weak and strong thresholds no category line is emitted.
	assert.NotContains(t, joined, "education")
	assert.NotContains(t, joined, "transportation")
	assert.NotContains(t, joined, "shopping")
}

func TestBuildInsights_ZeroSamplesTrumpLowScore(t *testing.T) {
	agg := AggregateScore{
		OverallScore: 0,
		CategoryResults: map[Category]CategoryResult{
			CategoryDining: catResult(CategoryDining, 0, 0),
		},
	}

	insights := buildInsights(agg)

	joined := strings.Join(insights, "\n")
	assert.Contains(t, joined, "No dining options found nearby")
	assert.NotContains(t, joined, "Limited dining access")
}

func TestBuildInsights_OrderIsDeterministic(t *testing.T) {
	agg := AggregateScore{
		OverallScore: 2.0,
		CategoryResults: map[Category]CategoryResult{
			CategoryDining:     catResult(CategoryDining, 1.0, 1),
			CategoryHealthcare: catResult(CategoryHealthcare, 2.0, 1),
			CategoryEducation:  catResult(CategoryEducation, 3.0, 1),
		},
	}

	insights := buildInsights(agg)

	require.Len(t, insights, 4)
	assert.Contains(t, insights[0], "Overall infrastructure access is limited")
	assert.Contains(t, insights[1], "healthcare")
	assert.Contains(t, insights[2], "education")
	assert.Contains(t, insights[3], "dining")
}

func TestBuildInsights_FullCoverageScenario(t *testing.T) {
	// A fully scored location produces the overall line plus one line per
	// category that crosses a threshold.
	e := newTestEngine(t)

	agg := e.Score(nil)
	insights := agg.Insights

	require.NotEmpty(t, insights)
	assert.Contains(t, insights[0], "limited")
	// All seven categories have zero samples.
	assert.Len(t, insights, 1+len(Categories()))
	for _, line := range insights[1:] {
		assert.Contains(t, line, "options found nearby")
	}
}
