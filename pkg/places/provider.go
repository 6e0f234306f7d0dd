// Package places provides point-of-interest search around a coordinate pair,
// with a Google Places adapter for live data and a static dataset provider
// for offline and deterministic use.
package places

import (
	"context"

	"github.com/sells-group/locality/internal/geo"
)

// MaxSearchRadiusMeters caps nearby searches. Requests beyond the cap are
// clamped, not rejected.
const MaxSearchRadiusMeters = 50_000.0

// Place is a point of interest returned by a provider.
type Place struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Types           []string  `json:"types,omitempty"`
	Location        geo.Point `json:"location"`
	Rating          float64   `json:"rating,omitempty"`
	UserRatingCount int       `json:"user_rating_count,omitempty"`
}

// Provider is a single point-of-interest backend.
type Provider interface {
	Name() string

	// Available reports whether the provider can serve requests at all,
	// e.g. whether credentials are configured.
	Available() bool

	// NearbySearch returns places matching keyword within radiusMeters of
	// center. An empty result is not an error.
	NearbySearch(ctx context.Context, center geo.Point, keyword string, radiusMeters float64) ([]Place, error)

	// TextSearch returns places matching a free-form query with no location
	// constraint.
	TextSearch(ctx context.Context, query string) ([]Place, error)
}

func clampRadius(radiusMeters float64) float64 {
	if radiusMeters <= 0 {
		return 1
	}
	if radiusMeters > MaxSearchRadiusMeters {
		return MaxSearchRadiusMeters
	}
	return radiusMeters
}
