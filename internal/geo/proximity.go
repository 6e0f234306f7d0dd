package geo

// Proximity curve breakpoints, expressed as multiples of the ideal distance.
const (
	nearBand  = 2.0 // score decays 10 -> 5 between ideal and 2x ideal
	farBand   = 4.0 // score decays 5 -> 2 between 2x and 4x ideal
	tailScale = 10.0
)

// ProximityScore maps a distance to a 0-10 score relative to a category's
// ideal distance. The curve is piecewise linear with a slow tail:
//
//	d <= ideal        -> 10
//	ideal < d <= 2i   -> linear 10 down to 5
//	2i < d <= 4i      -> linear 5 down to 2
//	d > 4i            -> max(0, 2 - (d-4i)/(10i))
//
// The result is non-increasing in d and always within [0, 10].
func ProximityScore(distanceMeters, idealMeters float64) float64 {
	if idealMeters <= 0 {
		return 0
	}
	d := distanceMeters
	if d <= idealMeters {
		return 10
	}
	if d <= nearBand*idealMeters {
		return 10 - 5*(d-idealMeters)/idealMeters
	}
	if d <= farBand*idealMeters {
		return 5 - 3*(d-nearBand*idealMeters)/(nearBand*idealMeters)
	}
	tail := 2 - (d-farBand*idealMeters)/(tailScale*idealMeters)
	if tail < 0 {
		return 0
	}
	return tail
}
