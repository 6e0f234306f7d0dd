package places

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/locality/internal/geo"
)

// StaticProvider serves nearby searches from an in-memory dataset. It backs
// offline runs and gives tests a deterministic source.
type StaticProvider struct {
	places []Place
}

// NewStatic creates a StaticProvider over the given dataset.
func NewStatic(places []Place) *StaticProvider {
	return &StaticProvider{places: places}
}

// DecodeDataset reads a JSON array of places, the on-disk dataset format for
// the static provider.
func DecodeDataset(r io.Reader) ([]Place, error) {
	var places []Place
	if err := json.NewDecoder(r).Decode(&places); err != nil {
		return nil, eris.Wrap(err, "places: decode dataset")
	}
	return places, nil
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return "static" }

// Available implements Provider.
func (p *StaticProvider) Available() bool { return true }

// NearbySearch implements Provider. Results are ordered by distance from
// center, then by name, so repeated calls are stable.
func (p *StaticProvider) NearbySearch(_ context.Context, center geo.Point, keyword string, radiusMeters float64) ([]Place, error) {
	radius := clampRadius(radiusMeters)

	// Cheap bounding-box prefilter before exact distance checks.
	bounds := geo.BoundsAround(center, radius)

	type scored struct {
		place    Place
		distance float64
	}
	var matched []scored
	for _, pl := range p.places {
		if !bounds.Contains(pl.Location) {
			continue
		}
		d := geo.Distance(center, pl.Location)
		if d > radius {
			continue
		}
		if !matchesKeyword(pl, keyword) {
			continue
		}
		matched = append(matched, scored{place: pl, distance: d})
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].distance != matched[j].distance {
			return matched[i].distance < matched[j].distance
		}
		return matched[i].place.Name < matched[j].place.Name
	})

	out := make([]Place, len(matched))
	for i, m := range matched {
		out[i] = m.place
	}
	return out, nil
}

// TextSearch implements Provider. Matches are ordered by name.
func (p *StaticProvider) TextSearch(_ context.Context, query string) ([]Place, error) {
	var out []Place
	for _, pl := range p.places {
		if matchesKeyword(pl, query) {
			out = append(out, pl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func matchesKeyword(pl Place, keyword string) bool {
	if keyword == "" {
		return true
	}
	needle := strings.ToLower(keyword)
	for _, t := range pl.Types {
		if strings.ToLower(t) == needle {
			return true
		}
	}
	return strings.Contains(strings.ToLower(pl.Name), needle)
}
