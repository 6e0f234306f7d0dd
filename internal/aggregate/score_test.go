package aggregate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/locality/internal/geo"
	"github.com/sells-group/locality/internal/scorer"
	"github.com/sells-group/locality/pkg/geocode"
	"github.com/sells-group/locality/pkg/places"
	"github.com/sells-group/locality/pkg/source"
)

const metersPerDegreeLat = 111_195.0

func northOf(p geo.Point, meters float64) geo.Point {
	return geo.Point{Lat: p.Lat + meters/metersPerDegreeLat, Lng: p.Lng}
}

func TestScoreCoordinates_HealthcareScenario(t *testing.T) {
	f := newFixture()
	f.places.pts = []places.Place{
		{ID: "a", Name: "Hospital A", Types: []string{"hospital"}, Location: northOf(testCenter, 200)},
		{ID: "b", Name: "Pharmacy B", Types: []string{"pharmacy"}, Location: northOf(testCenter, 900)},
		{ID: "c", Name: "Hospital C", Types: []string{"hospital"}, Location: northOf(testCenter, 1800)},
	}
	o := f.build(t)

	agg, err := o.ScoreCoordinates(context.Background(), testCenter, 1000)

	require.NoError(t, err)
	health := agg.CategoryResults[scorer.CategoryHealthcare]
	assert.InDelta(t, 26.0/3+0.5, health.Score, 0.01)
	assert.InDelta(t, health.Score*0.25, agg.OverallScore, 0.01)
	assert.Equal(t, 1, f.places.calls)
}

func TestScoreCoordinates_EmptySearchStillScores(t *testing.T) {
	f := newFixture()
	o := f.build(t)

	agg, err := o.ScoreCoordinates(context.Background(), testCenter, 1000)

	require.NoError(t, err)
	assert.Zero(t, agg.OverallScore)
	assert.Len(t, agg.CategoryResults, len(scorer.Categories()))
	assert.NotEmpty(t, agg.Insights)
}

func TestScoreCoordinates_SearchFailure(t *testing.T) {
	f := newFixture()
	f.places.err = source.Unavailable("stub", "nearby search", nil)
	o := f.build(t)

	_, err := o.ScoreCoordinates(context.Background(), testCenter, 1000)

	require.Error(t, err)
	assert.True(t, source.IsUnavailable(err))
}

func TestScoreAddress_Success(t *testing.T) {
	f := newFixture()
	f.places.pts = []places.Place{
		{ID: "a", Name: "Hospital A", Types: []string{"hospital"}, Location: northOf(testCenter, 200)},
	}
	o := f.build(t)

	res, err := o.ScoreAddress(context.Background(), "Av. Paulista, São Paulo", 1000)

	require.NoError(t, err)
	assert.Equal(t, "Av. Paulista, São Paulo", res.Address)
	assert.Equal(t, "rooftop", res.Quality)
	assert.Equal(t, testCenter, res.Location)
	assert.Positive(t, res.Score.OverallScore)
}

func TestScoreAddress_Unmatched(t *testing.T) {
	f := newFixture()
	f.geocoder.result = &geocode.Result{Matched: false}
	o := f.build(t)

	_, err := o.ScoreAddress(context.Background(), "nowhere at all", 1000)

	require.Error(t, err)
	assert.True(t, source.IsNotFound(err))
}
