// Package aggregate orchestrates concurrent fetches across the configured
// providers and joins them into composite records and location scores.
// Sub-fetch failures degrade to absent fields; a request fails outright only
// when nothing essential resolved.
package aggregate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/locality/internal/cache"
	"github.com/sells-group/locality/internal/scorer"
	"github.com/sells-group/locality/pkg/geocode"
	"github.com/sells-group/locality/pkg/ibge"
	"github.com/sells-group/locality/pkg/places"
)

const (
	// defaultFetchTimeout bounds each outbound sub-fetch.
	defaultFetchTimeout = 30 * time.Second

	// maxWarmUpEntities caps how many entity ids one warm-up call processes.
	maxWarmUpEntities = 50

	// defaultWarmUpConcurrency bounds warm-up fan-out width.
	defaultWarmUpConcurrency = 10
)

// Orchestrator fans requests out to the providers and merges the results.
// All collaborators are injected; none are global.
type Orchestrator struct {
	places   places.Provider
	geocoder geocode.Geocoder
	stats    ibge.Client
	store    cache.Store
	engine   *scorer.Engine

	fetchTimeout      time.Duration
	warmUpConcurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFetchTimeout overrides the per-sub-fetch budget.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.fetchTimeout = d
		}
	}
}

// WithWarmUpConcurrency overrides the warm-up fan-out width.
func WithWarmUpConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.warmUpConcurrency = n
		}
	}
}

// NewOrchestrator wires the orchestrator to its providers, cache and
// scoring engine.
func NewOrchestrator(
	pp places.Provider,
	gc geocode.Geocoder,
	st ibge.Client,
	store cache.Store,
	engine *scorer.Engine,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		places:            pp,
		geocoder:          gc,
		stats:             st,
		store:             store,
		engine:            engine,
		fetchTimeout:      defaultFetchTimeout,
		warmUpConcurrency: defaultWarmUpConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CacheStats reports the backing cache's current state.
func (o *Orchestrator) CacheStats(ctx context.Context) cache.Stats {
	return o.store.Stats(ctx)
}

// ClearEntity removes every cache entry for entityID across all namespaces
// and variants, returning how many were deleted.
func (o *Orchestrator) ClearEntity(ctx context.Context, entityID string) int {
	n := o.store.InvalidateEntity(ctx, entityID)
	zap.L().Info("aggregate: cleared entity cache",
		zap.String("entity_id", entityID),
		zap.Int("deleted", n))
	return n
}
