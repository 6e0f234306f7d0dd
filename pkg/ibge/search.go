package ibge

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const defaultSearchLimit = 10

// Search finds municipalities whose name contains the query, ignoring case
// and accents, so "sao paulo" finds "São Paulo". Exact matches rank first,
// then prefix matches, then substring matches; ties break by name.
func Search(ctx context.Context, c Client, query string, limit int) ([]Municipality, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	needle := normalizeName(query)
	if needle == "" {
		return nil, nil
	}

	all, err := c.Municipalities(ctx)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		m    Municipality
		rank int
	}
	var matches []ranked
	for _, m := range all {
		name := normalizeName(m.Name)
		switch {
		case name == needle:
			matches = append(matches, ranked{m, 0})
		case strings.HasPrefix(name, needle):
			matches = append(matches, ranked{m, 1})
		case strings.Contains(name, needle):
			matches = append(matches, ranked{m, 2})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		return matches[i].m.Name < matches[j].m.Name
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]Municipality, len(matches))
	for i, r := range matches {
		out[i] = r.m
	}
	return out, nil
}

// normalizeName lowercases and strips diacritics for accent-insensitive
// comparison.
func normalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
