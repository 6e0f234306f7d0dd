package geocode

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

// namespaceGeocode holds forward and reverse geocode results. It falls under
// the cache's fallback TTL.
const namespaceGeocode = "geocode"

// CachingGeocoder wraps a Geocoder with read-through caching. Non-matches
// are cached too so repeated lookups of a bad address stay cheap. Errors are
// never cached.
type CachingGeocoder struct {
	inner Geocoder
	store cache.Store
}

// NewCaching wraps inner with the given cache store.
func NewCaching(inner Geocoder, store cache.Store) *CachingGeocoder {
	return &CachingGeocoder{inner: inner, store: store}
}

// Name implements Geocoder.
func (g *CachingGeocoder) Name() string { return g.inner.Name() }

// Available implements Geocoder.
func (g *CachingGeocoder) Available() bool { return g.inner.Available() }

// Geocode implements Geocoder.
func (g *CachingGeocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	return g.cached(ctx, addressKey(address), "forward", func() (*Result, error) {
		return g.inner.Geocode(ctx, address)
	})
}

// ReverseGeocode implements Geocoder.
func (g *CachingGeocoder) ReverseGeocode(ctx context.Context, p geo.Point) (*Result, error) {
	entityID := fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lng)
	return g.cached(ctx, entityID, "reverse", func() (*Result, error) {
		return g.inner.ReverseGeocode(ctx, p)
	})
}

func (g *CachingGeocoder) cached(ctx context.Context, entityID, variant string, fetch func() (*Result, error)) (*Result, error) {
	if payload, ok := g.store.Get(ctx, namespaceGeocode, entityID, variant); ok {
		var cached Result
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
		zap.L().Warn("geocode: corrupt cached result, refetching", zap.String("entity_id", entityID))
	}

	result, err := fetch()
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(result); err == nil {
		g.store.Set(ctx, namespaceGeocode, entityID, variant, payload, 0)
	}
	return result, nil
}

// addressKey returns SHA-256 hex of the normalized address for cache lookup.
func addressKey(address string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(address))))
	return fmt.Sprintf("%x", h)
}
