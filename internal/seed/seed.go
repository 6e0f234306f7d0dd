// Package seed acquires municipality seed lists used to warm the cache and
// drive batch scoring. Lists come from local XLSX files, the IBGE territorial
// division (DTB) archive over FTP, or the IBGE municipal shapefile.
package seed

import (
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/locality/internal/geo"
)

// Entry is one municipality in a seed list. Location is present only when
// the source carries geometry (shapefile) or explicit coordinate columns.
type Entry struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	State    string     `json:"state,omitempty"`
	Location *geo.Point `json:"location,omitempty"`
}

// IDs returns the entity ids of a seed list in input order.
func IDs(entries []Entry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// WriteJSON persists a seed list as a JSON array.
func WriteJSON(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return eris.Wrap(err, "seed: encode list")
	}
	return nil
}

// ReadJSON loads a seed list written by WriteJSON.
func ReadJSON(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, eris.Wrap(err, "seed: decode list")
	}
	return entries, nil
}

// ReadJSONFile loads a seed list from disk.
func ReadJSONFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "seed: open list")
	}
	defer f.Close()
	return ReadJSON(f)
}

// Dedupe removes duplicate ids, keeping the first occurrence, and sorts the
// result by id so downstream warm-up batches are deterministic.
func Dedupe(entries []Entry) []Entry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
