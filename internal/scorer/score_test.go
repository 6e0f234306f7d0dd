package scorer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/locality/internal/geo"
	"github.com/sells-group/locality/pkg/places"
)

// metersPerDegreeLat converts a northward offset in meters to degrees of
// latitude for test fixtures.
const metersPerDegreeLat = 111_195.0

var testCenter = geo.Point{Lat: -23.5505, Lng: -46.6333}

func northOf(p geo.Point, meters float64) geo.Point {
	return geo.Point{Lat: p.Lat + meters/metersPerDegreeLat, Lng: p.Lng}
}

func placeAt(id string, loc geo.Point, types ...string) places.Place {
	return places.Place{ID: id, Name: id, Types: types, Location: loc}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	return e
}

func TestNewEngine_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cc := cfg.Categories[CategoryDining]
	cc.Weight = 0.5
	cfg.Categories[CategoryDining] = cc

	_, err := NewEngine(cfg)
	require.Error(t, err)
}

func TestScoreNearby_HealthcareScenario(t *testing.T) {
	// Three healthcare points at 200m, 900m and 1800m with a 1000m ideal:
	// proximity 10, 10 and 6, so the base score is 26/3 and the full
	// availability bonus of 0.5 applies.
	e := newTestEngine(t)
	pts := []places.Place{
		placeAt("near", northOf(testCenter, 200), "hospital"),
		placeAt("mid", northOf(testCenter, 900), "pharmacy"),
		placeAt("far", northOf(testCenter, 1800), "hospital"),
	}

	agg := e.ScoreNearby(testCenter, pts)

	health := agg.CategoryResults[CategoryHealthcare]
	assert.InDelta(t, 26.0/3+0.5, health.Score, 0.01)
	assert.Equal(t, 3, health.SampleCount)
	require.Len(t, health.TopPoints, 3)
	assert.Equal(t, "near", health.TopPoints[0].Place.ID)
	assert.Equal(t, "mid", health.TopPoints[1].Place.ID)
	assert.Equal(t, "far", health.TopPoints[2].Place.ID)
	assert.InDelta(t, (200.0+900+1800)/3, health.AverageDistanceMeters, 1.0)

	// Only healthcare contributes; the other six categories weigh in at 0.
	assert.InDelta(t, health.Score*0.25, agg.OverallScore, 0.01)
}

func TestScore_NoPoints_AllCategoriesPresent(t *testing.T) {
	e := newTestEngine(t)

	agg := e.Score(nil)

	assert.Zero(t, agg.OverallScore)
	require.Len(t, agg.CategoryResults, len(Categories()))
	for cat, r := range agg.CategoryResults {
		assert.Zero(t, r.Score, "category %s", cat)
		assert.Zero(t, r.SampleCount, "category %s", cat)
		assert.Empty(t, r.TopPoints, "category %s", cat)
	}
}

func TestScoreNearby_AllCategoriesSaturated(t *testing.T) {
	// Three points per category right at the center push every category to
	// the 10.0 cap, so the weighted overall is exactly 10.
	e := newTestEngine(t)
	cfg := DefaultConfig()

	var pts []places.Place
	for _, cat := range Categories() {
		tag := cfg.Categories[cat].Tags[0]
		for i := range 3 {
			pts = append(pts, placeAt(fmt.Sprintf("%s-%d", cat, i), testCenter, tag))
		}
	}

	agg := e.ScoreNearby(testCenter, pts)

	assert.InDelta(t, 10.0, agg.OverallScore, 1e-9)
	for cat, r := range agg.CategoryResults {
		assert.InDelta(t, 10.0, r.Score, 1e-9, "category %s", cat)
	}
}

func TestScoreCategory_AveragesAllPointsNotJustTop(t *testing.T) {
	// Five perfect points plus two poor ones: if only the reported top five
	// were averaged the score would cap at 10, but the base must cover all
	// seven samples.
	var pts []ClassifiedPoint
	for i := range 5 {
		pts = append(pts, ClassifiedPoint{
			Place:          places.Place{ID: fmt.Sprintf("close-%d", i)},
			Category:       CategoryHealthcare,
			DistanceMeters: float64(100 + i),
			ProximityScore: 10,
		})
	}
	for i := range 2 {
		pts = append(pts, ClassifiedPoint{
			Place:          places.Place{ID: fmt.Sprintf("far-%d", i)},
			Category:       CategoryHealthcare,
			DistanceMeters: float64(4000 + i),
			ProximityScore: 2,
		})
	}

	r := scoreCategory(CategoryHealthcare, pts)

	assert.InDelta(t, 54.0/7+0.5, r.Score, 0.01)
	assert.Equal(t, 7, r.SampleCount)
	require.Len(t, r.TopPoints, maxTopPoints)
	assert.Equal(t, "close-0", r.TopPoints[0].Place.ID)
}

func TestScoreCategory_TopPointsClosestFirst(t *testing.T) {
	pts := []ClassifiedPoint{
		{Place: places.Place{ID: "c"}, DistanceMeters: 300, ProximityScore: 10},
		{Place: places.Place{ID: "a"}, DistanceMeters: 100, ProximityScore: 10},
		{Place: places.Place{ID: "b"}, DistanceMeters: 200, ProximityScore: 10},
	}

	r := scoreCategory(CategoryDining, pts)

	require.Len(t, r.TopPoints, 3)
	assert.Equal(t, "a", r.TopPoints[0].Place.ID)
	assert.Equal(t, "b", r.TopPoints[1].Place.ID)
	assert.Equal(t, "c", r.TopPoints[2].Place.ID)
}

func TestAvailabilityBonus(t *testing.T) {
	tests := []struct {
		n    int
		want float64
	}{
		{0, 0},
		{1, 0.5 / 3},
		{2, 1.0 / 3},
		{3, 0.5},
		{10, 0.5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			assert.InDelta(t, tt.want, availabilityBonus(tt.n), 1e-9)
		})
	}
}

func TestClassifyPoints_DropsUnclassifiable(t *testing.T) {
	e := newTestEngine(t)
	pts := []places.Place{
		placeAt("hospital", northOf(testCenter, 500), "hospital"),
		placeAt("club", northOf(testCenter, 500), "night_club"),
		placeAt("untyped", northOf(testCenter, 500)),
	}

	classified := e.ClassifyPoints(testCenter, pts)

	require.Len(t, classified, 1)
	assert.Equal(t, CategoryHealthcare, classified[0].Category)
}

func TestClassifyPoints_DistanceAndProximity(t *testing.T) {
	e := newTestEngine(t)
	pts := []places.Place{
		placeAt("within-ideal", northOf(testCenter, 900), "hospital"),
		placeAt("past-ideal", northOf(testCenter, 1800), "hospital"),
	}

	classified := e.ClassifyPoints(testCenter, pts)

	require.Len(t, classified, 2)
	assert.InDelta(t, 900, classified[0].DistanceMeters, 1.0)
	assert.InDelta(t, 10.0, classified[0].ProximityScore, 0.01)
	assert.InDelta(t, 1800, classified[1].DistanceMeters, 1.0)
	assert.InDelta(t, 6.0, classified[1].ProximityScore, 0.01)
}

func TestScore_SingleDistantPoint(t *testing.T) {
	// One recreation point at twice the ideal distance: proximity 5 plus a
	// third of the availability bonus.
	e := newTestEngine(t)
	pts := []places.Place{
		placeAt("park", northOf(testCenter, 3000), "park"),
	}

	agg := e.ScoreNearby(testCenter, pts)

	rec := agg.CategoryResults[CategoryRecreation]
	assert.Equal(t, 1, rec.SampleCount)
	assert.InDelta(t, 5.0+0.5/3, rec.Score, 0.01)
	assert.InDelta(t, rec.Score*0.10, agg.OverallScore, 0.01)
}
