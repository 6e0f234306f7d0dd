package scorer

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/locality/internal/geo"
	"github.com/sells-group/locality/pkg/places"
)

const (
	// maxTopPoints caps how many nearest points a category result reports.
	maxTopPoints = 5

	// availabilityTarget is the sample count at which the availability
	// bonus saturates.
	availabilityTarget = 3

	// availabilityBonusMax is the bonus granted at full saturation.
	availabilityBonusMax = 0.5

	// maxScore bounds every category and overall score.
	maxScore = 10.0
)

// ClassifiedPoint is a point of interest with its assigned category and
// distance-derived proximity score.
type ClassifiedPoint struct {
	Place          places.Place `json:"place"`
	Category       Category     `json:"category"`
	DistanceMeters float64      `json:"distance_meters"`
	ProximityScore float64      `json:"proximity_score"`
}

// CategoryResult is the scored outcome for a single category.
type CategoryResult struct {
	Category    Category `json:"category"`
	Score       float64  `json:"score"`
	SampleCount int      `json:"sample_count"`

	// TopPoints holds at most five points, closest first. The score itself
	// averages every classified point, not just these.
	TopPoints []ClassifiedPoint `json:"top_points,omitempty"`

	AverageDistanceMeters float64 `json:"average_distance_meters"`
}

// AggregateScore is the full scoring outcome for one location.
type AggregateScore struct {
	OverallScore    float64                     `json:"overall_score"`
	CategoryResults map[Category]CategoryResult `json:"category_results"`
	Insights        []string                    `json:"insights"`
}

// Engine scores locations against a validated category config.
type Engine struct {
	cfg        Config
	classifier *Classifier
}

// NewEngine validates cfg and builds a scoring engine. An invalid config is
// a startup failure, not something to limp past.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, classifier: NewClassifier(cfg)}, nil
}

// Config returns the engine's category table.
func (e *Engine) Config() Config {
	return e.cfg
}

// ClassifyPoints assigns each point a category and computes its distance
// from center and proximity score. Points matching no category are dropped.
func (e *Engine) ClassifyPoints(center geo.Point, pts []places.Place) []ClassifiedPoint {
	out := make([]ClassifiedPoint, 0, len(pts))
	for _, p := range pts {
		cat, ok := e.classifier.Classify(p.Types)
		if !ok {
			continue
		}
		d := geo.Distance(center, p.Location)
		out = append(out, ClassifiedPoint{
			Place:          p,
			Category:       cat,
			DistanceMeters: d,
			ProximityScore: geo.ProximityScore(d, e.cfg.Categories[cat].IdealDistanceMeters),
		})
	}
	if dropped := len(pts) - len(out); dropped > 0 {
		zap.L().Debug("scorer: dropped unclassifiable points",
			zap.Int("total", len(pts)),
			zap.Int("dropped", dropped))
	}
	return out
}

// Score aggregates classified points into per-category results and a
// weighted overall score. Every configured category appears in the result;
// categories with no points score 0 and still contribute their weight.
func (e *Engine) Score(points []ClassifiedPoint) AggregateScore {
	grouped := make(map[Category][]ClassifiedPoint, len(e.cfg.Categories))
	for _, p := range points {
		grouped[p.Category] = append(grouped[p.Category], p)
	}

	results := make(map[Category]CategoryResult, len(e.cfg.Categories))
	var overall float64
	for _, cat := range Categories() {
		cc, ok := e.cfg.Categories[cat]
		if !ok {
			continue
		}
		r := scoreCategory(cat, grouped[cat])
		results[cat] = r
		overall += r.Score * cc.Weight
	}

	agg := AggregateScore{OverallScore: overall, CategoryResults: results}
	agg.Insights = buildInsights(agg)
	return agg
}

// ScoreNearby classifies and scores raw points around center in one step.
func (e *Engine) ScoreNearby(center geo.Point, pts []places.Place) AggregateScore {
	return e.Score(e.ClassifyPoints(center, pts))
}

// scoreCategory computes one category's result from its classified points.
// The base score averages the proximity of every point; a small bonus
// rewards having several options at all.
func scoreCategory(cat Category, pts []ClassifiedPoint) CategoryResult {
	r := CategoryResult{Category: cat, SampleCount: len(pts)}
	if len(pts) == 0 {
		return r
	}

	sorted := append([]ClassifiedPoint(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].DistanceMeters < sorted[j].DistanceMeters
	})

	var proxSum, distSum float64
	for _, p := range sorted {
		proxSum += p.ProximityScore
		distSum += p.DistanceMeters
	}
	avg := proxSum / float64(len(sorted))

	r.Score = math.Min(maxScore, avg+availabilityBonus(len(sorted)))
	r.AverageDistanceMeters = distSum / float64(len(sorted))

	top := len(sorted)
	if top > maxTopPoints {
		top = maxTopPoints
	}
	r.TopPoints = sorted[:top]
	return r
}

// availabilityBonus scales linearly with sample count and saturates at
// availabilityTarget points.
func availabilityBonus(n int) float64 {
	frac := float64(n) / availabilityTarget
	if frac > 1 {
		frac = 1
	}
	return frac * availabilityBonusMax
}
