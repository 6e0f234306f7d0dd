package aggregate

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/locality/internal/geo"
	"github.com/sells-group/locality/internal/scorer"
	"github.com/sells-group/locality/pkg/source"
)

// ScoreCoordinates runs one full-radius nearby search around center and
// scores the classified results. An empty search still yields a complete
// AggregateScore with every category at 0; only a failed search is an error.
func (o *Orchestrator) ScoreCoordinates(ctx context.Context, center geo.Point, radiusMeters float64) (scorer.AggregateScore, error) {
	fctx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	defer cancel()

	pts, err := o.places.NearbySearch(fctx, center, "", radiusMeters)
	if err != nil {
		return scorer.AggregateScore{}, eris.Wrap(err, "aggregate: nearby search")
	}

	agg := o.engine.ScoreNearby(center, pts)
	zap.L().Info("aggregate: scored coordinates",
		zap.Float64("lat", center.Lat),
		zap.Float64("lng", center.Lng),
		zap.Float64("radius_m", radiusMeters),
		zap.Int("points", len(pts)),
		zap.Float64("overall", agg.OverallScore))
	return agg, nil
}

// AddressScore couples a geocoded address with its location score.
type AddressScore struct {
	Address  string                `json:"address"`
	Quality  string                `json:"quality"`
	Location geo.Point             `json:"location"`
	Score    scorer.AggregateScore `json:"score"`
}

// ScoreAddress geocodes a free-form address and scores the resolved
// coordinates. An address the geocoder cannot place is a not-found result.
func (o *Orchestrator) ScoreAddress(ctx context.Context, address string, radiusMeters float64) (*AddressScore, error) {
	fctx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	defer cancel()

	res, err := o.geocoder.Geocode(fctx, address)
	if err != nil {
		return nil, eris.Wrap(err, "aggregate: geocode address")
	}
	if !res.Matched {
		return nil, source.NotFound(o.geocoder.Name(), "geocode")
	}

	agg, err := o.ScoreCoordinates(ctx, res.Location, radiusMeters)
	if err != nil {
		return nil, err
	}
	return &AddressScore{
		Address:  res.FormattedAddress,
		Quality:  res.Quality,
		Location: res.Location,
		Score:    agg,
	}, nil
}
