// Package geocode resolves addresses to coordinates and back, with a Google
// Geocoding adapter and a static table for offline and deterministic use.
package geocode

import (
	"context"

	"github.com/sells-group/locality/internal/geo"
)

// Result holds the output of a forward or reverse geocode. An unmatched
// lookup is not an error; Matched is false and the rest is zero.
type Result struct {
	Location         geo.Point `json:"location"`
	FormattedAddress string    `json:"formatted_address"`
	Quality          string    `json:"quality"` // "rooftop", "range", "centroid", "approximate"
	Source           string    `json:"source"`
	Matched          bool      `json:"matched"`
}

// Geocoder resolves addresses and coordinates.
type Geocoder interface {
	Name() string

	// Available reports whether the geocoder can serve requests at all.
	Available() bool

	// Geocode resolves a free-form address to coordinates.
	Geocode(ctx context.Context, address string) (*Result, error)

	// ReverseGeocode resolves coordinates to the nearest known address.
	ReverseGeocode(ctx context.Context, p geo.Point) (*Result, error)
}
