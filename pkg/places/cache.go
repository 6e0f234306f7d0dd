package places

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/locality/internal/cache"
	"github.com/sells-group/locality/internal/geo"
)

// CachingProvider wraps a Provider with read-through caching of search
// results. Empty result sets are cached too so a municipality without
// hospitals does not trigger a fresh search on every request. Errors are
// never cached.
type CachingProvider struct {
	inner Provider
	store cache.Store
}

// NewCaching wraps inner with the given cache store.
func NewCaching(inner Provider, store cache.Store) *CachingProvider {
	return &CachingProvider{inner: inner, store: store}
}

// Name implements Provider.
func (p *CachingProvider) Name() string { return p.inner.Name() }

// Available implements Provider.
func (p *CachingProvider) Available() bool { return p.inner.Available() }

// NearbySearch implements Provider. Search results are keyed by the search
// center rounded to four decimal places (roughly 11 m) plus keyword and
// radius, under the search-results namespace.
func (p *CachingProvider) NearbySearch(ctx context.Context, center geo.Point, keyword string, radiusMeters float64) ([]Place, error) {
	radius := clampRadius(radiusMeters)
	entityID := coordKey(center)
	variant := fmt.Sprintf("%s:%.0f", keyword, radius)

	if payload, ok := p.store.Get(ctx, cache.NamespaceSearchResults, entityID, variant); ok {
		var cached []Place
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		zap.L().Warn("places: corrupt cached search results, refetching",
			zap.String("entity_id", entityID), zap.String("variant", variant))
	}

	results, err := p.inner.NearbySearch(ctx, center, keyword, radius)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(results); err == nil {
		p.store.Set(ctx, cache.NamespaceSearchResults, entityID, variant, payload, 0)
	}
	return results, nil
}

// TextSearch implements Provider. Results are keyed by a digest of the
// normalized query under the search-results namespace.
func (p *CachingProvider) TextSearch(ctx context.Context, query string) ([]Place, error) {
	entityID := queryKey(query)

	if payload, ok := p.store.Get(ctx, cache.NamespaceSearchResults, entityID, "text"); ok {
		var cached []Place
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		zap.L().Warn("places: corrupt cached search results, refetching",
			zap.String("entity_id", entityID))
	}

	results, err := p.inner.TextSearch(ctx, query)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(results); err == nil {
		p.store.Set(ctx, cache.NamespaceSearchResults, entityID, "text", payload, 0)
	}
	return results, nil
}

func coordKey(p geo.Point) string {
	return fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lng)
}

// queryKey returns SHA-256 hex of the normalized query for cache lookup.
func queryKey(query string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("%x", h)
}
