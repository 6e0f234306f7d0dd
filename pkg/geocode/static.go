package geocode

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/locality/internal/geo"
)

// StaticEntry is one known address in a static geocoding table.
type StaticEntry struct {
	Address  string    `json:"address"`
	Location geo.Point `json:"location"`
}

// StaticGeocoder resolves addresses from an in-memory table by substring
// match. It backs offline runs and gives tests a deterministic source.
type StaticGeocoder struct {
	entries []StaticEntry
}

// NewStatic creates a StaticGeocoder over the given table.
func NewStatic(entries []StaticEntry) *StaticGeocoder {
	return &StaticGeocoder{entries: entries}
}

// DecodeDataset reads a JSON array of entries, the on-disk table format for
// the static geocoder.
func DecodeDataset(r io.Reader) ([]StaticEntry, error) {
	var entries []StaticEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, eris.Wrap(err, "geocode: decode dataset")
	}
	return entries, nil
}

// Name implements Geocoder.
func (g *StaticGeocoder) Name() string { return "static" }

// Available implements Geocoder.
func (g *StaticGeocoder) Available() bool { return true }

// Geocode implements Geocoder. The first entry whose address contains the
// query (case-insensitive) wins.
func (g *StaticGeocoder) Geocode(_ context.Context, address string) (*Result, error) {
	needle := strings.ToLower(strings.TrimSpace(address))
	if needle == "" {
		return &Result{Matched: false, Source: "static"}, nil
	}

	for _, e := range g.entries {
		haystack := strings.ToLower(e.Address)
		if strings.Contains(haystack, needle) || strings.Contains(needle, haystack) {
			return &Result{
				Location:         e.Location,
				FormattedAddress: e.Address,
				Quality:          "approximate",
				Source:           "static",
				Matched:          true,
			}, nil
		}
	}
	return &Result{Matched: false, Source: "static"}, nil
}

// ReverseGeocode implements Geocoder. The closest entry within 50 km wins.
func (g *StaticGeocoder) ReverseGeocode(_ context.Context, p geo.Point) (*Result, error) {
	const maxMatchMeters = 50_000.0

	var best *StaticEntry
	bestDist := maxMatchMeters
	for i := range g.entries {
		d := geo.Distance(p, g.entries[i].Location)
		if d < bestDist {
			best = &g.entries[i]
			bestDist = d
		}
	}
	if best == nil {
		return &Result{Matched: false, Source: "static"}, nil
	}
	return &Result{
		Location:         best.Location,
		FormattedAddress: best.Address,
		Quality:          "approximate",
		Source:           "static",
		Matched:          true,
	}, nil
}
