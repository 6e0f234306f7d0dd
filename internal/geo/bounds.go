package geo

import "math"

// Bounds is a lat/lng bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// BoundsAround returns a bounding box that fully contains the circle of
// radiusMeters around center. The box is a coarse prefilter; callers that
// need an exact radius must recheck with Distance. Longitude spans are not
// wrapped across the antimeridian.
func BoundsAround(center Point, radiusMeters float64) Bounds {
	dLat := radiusMeters / EarthRadiusMeters * 180 / math.Pi

	// Longitude degrees shrink with latitude; clamp near the poles.
	cosLat := math.Cos(radians(center.Lat))
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLng := dLat / cosLat

	return Bounds{
		MinLat: math.Max(center.Lat-dLat, -90),
		MinLng: center.Lng - dLng,
		MaxLat: math.Min(center.Lat+dLat, 90),
		MaxLng: center.Lng + dLng,
	}
}

// Contains reports whether p falls inside the box.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
