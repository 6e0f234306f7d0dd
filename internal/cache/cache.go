// Package cache implements the namespaced TTL cache that backs every source
// gateway. Keys follow namespace:entityId[:variant]; each namespace carries
// its own default TTL so census-derived facts can live for years while
// volatile search results expire within days. The cache is strictly
// best-effort: a backend that cannot be reached degrades to a no-op store
// and the rest of the system proceeds uncached.
package cache

import (
	"context"
	"strings"
	"time"
)

// Cache namespaces. Entries in different namespaces never collide even for
// the same entity id.
const (
	NamespaceBasicInfo     = "basic-info"
	NamespacePopulation    = "population"
	NamespaceArea          = "area"
	NamespaceDensity       = "density"
	NamespaceSearchResults = "search-results"
	NamespaceComposite     = "composite-record"
)

// Default TTL per namespace. Area and density only change between censuses.
var defaultTTLs = map[string]time.Duration{
	NamespaceBasicInfo:     24 * time.Hour,
	NamespacePopulation:    30 * 24 * time.Hour,
	NamespaceArea:          365 * 24 * time.Hour,
	NamespaceDensity:       365 * 24 * time.Hour,
	NamespaceSearchResults: 7 * 24 * time.Hour,
	NamespaceComposite:     24 * time.Hour,
}

// fallbackTTL applies to namespaces without a configured default.
const fallbackTTL = 24 * time.Hour

// Store is the cache contract shared by all backends. Get returns a copy of
// the payload; a read after expiry is a miss. Set with ttl 0 uses the
// namespace default. InvalidateEntity removes every entry for the entity id
// across all namespaces and variants and returns the number deleted.
// Implementations must tolerate concurrent get/set for the same key;
// last-writer-wins is acceptable.
type Store interface {
	Get(ctx context.Context, namespace, entityID, variant string) ([]byte, bool)
	Set(ctx context.Context, namespace, entityID, variant string, payload []byte, ttl time.Duration) bool
	Delete(ctx context.Context, namespace, entityID, variant string) bool
	InvalidateEntity(ctx context.Context, entityID string) int
	Stats(ctx context.Context) Stats
	Enabled() bool
	Close() error
}

// Stats is an introspectable snapshot of cache state.
type Stats struct {
	Backend          string         `json:"backend"`
	Enabled          bool           `json:"enabled"`
	TotalKeys        int            `json:"total_keys"`
	KeysPerNamespace map[string]int `json:"keys_per_namespace"`
	MemoryUsageBytes int64          `json:"memory_usage_bytes"`
	Hits             int64          `json:"hits"`
	Misses           int64          `json:"misses"`
	HitRate          float64        `json:"hit_rate"`
}

// Recorder receives cache outcomes for metrics. Implementations must be
// safe for concurrent use; a nil Recorder disables recording.
type Recorder interface {
	CacheOp(namespace, result string)
}

// Recorder results.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
	ResultSet  = "set"
)

// Key renders the canonical cache key.
func Key(namespace, entityID, variant string) string {
	if variant == "" {
		return namespace + ":" + entityID
	}
	return namespace + ":" + entityID + ":" + variant
}

// ttlPolicy resolves effective TTLs from namespace defaults plus per-process
// overrides.
type ttlPolicy struct {
	overrides map[string]time.Duration
}

func (p ttlPolicy) ttlFor(namespace string, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if p.overrides != nil {
		if ttl, ok := p.overrides[namespace]; ok && ttl > 0 {
			return ttl
		}
	}
	if ttl, ok := defaultTTLs[namespace]; ok {
		return ttl
	}
	return fallbackTTL
}

// DefaultTTL returns the built-in default for a namespace.
func DefaultTTL(namespace string) time.Duration {
	if ttl, ok := defaultTTLs[namespace]; ok {
		return ttl
	}
	return fallbackTTL
}

// Namespaces lists the known namespaces in stable order.
func Namespaces() []string {
	return []string{
		NamespaceBasicInfo,
		NamespacePopulation,
		NamespaceArea,
		NamespaceDensity,
		NamespaceSearchResults,
		NamespaceComposite,
	}
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func record(r Recorder, namespace, result string) {
	if r != nil {
		r.CacheOp(namespace, result)
	}
}

// normalizeVariant keeps variants single-segment so keys stay parseable.
func normalizeVariant(variant string) string {
	return strings.ReplaceAll(variant, ":", "_")
}
