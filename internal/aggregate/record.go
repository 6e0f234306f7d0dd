package aggregate

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/locality/internal/cache"
	"github.com/sells-group/locality/pkg/ibge"
)

// Field names used in SourceErrors.
const (
	fieldBasicInfo  = "basic_info"
	fieldPopulation = "population"
	fieldArea       = "area"
	fieldDensity    = "density"
)

// StatisticalRecord is the composite result of the four independent
// municipal sub-fetches. Secondary fields are nullable; a failed sub-fetch
// leaves its field nil and records the cause in SourceErrors.
type StatisticalRecord struct {
	EntityID     string             `json:"entity_id"`
	Info         *ibge.Municipality `json:"info,omitempty"`
	Population   *ibge.Fact         `json:"population,omitempty"`
	Area         *ibge.Fact         `json:"area,omitempty"`
	Density      *ibge.Fact         `json:"density,omitempty"`
	SourceErrors map[string]string  `json:"source_errors,omitempty"`
	RetrievedAt  time.Time          `json:"retrieved_at"`
}

// Complete reports whether every field resolved. Only complete records are
// worth caching whole.
func (r *StatisticalRecord) Complete() bool {
	return r.Info != nil && r.Population != nil && r.Area != nil &&
		r.Density != nil && len(r.SourceErrors) == 0
}

// StatisticalRecord fetches identification plus the three statistics for one
// municipality concurrently. Each sub-fetch carries its own timeout and may
// fail independently without cancelling its siblings. The request succeeds
// as long as basic identification resolves; everything else is reported
// through SourceErrors.
func (o *Orchestrator) StatisticalRecord(ctx context.Context, entityID string) (*StatisticalRecord, error) {
	rec := &StatisticalRecord{
		EntityID:    entityID,
		RetrievedAt: time.Now().UTC(),
	}

	var (
		mu      sync.Mutex
		infoErr error
	)
	fail := func(field string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if rec.SourceErrors == nil {
			rec.SourceErrors = make(map[string]string)
		}
		rec.SourceErrors[field] = err.Error()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fctx, cancel := context.WithTimeout(gctx, o.fetchTimeout)
		defer cancel()
		info, err := o.stats.Municipality(fctx, entityID)
		if err != nil {
			mu.Lock()
			infoErr = err
			mu.Unlock()
			fail(fieldBasicInfo, err)
			return nil
		}
		mu.Lock()
		rec.Info = info
		mu.Unlock()
		return nil
	})

	statFetches := []struct {
		field string
		kind  ibge.StatisticKind
		dst   **ibge.Fact
	}{
		{fieldPopulation, ibge.StatPopulation, &rec.Population},
		{fieldArea, ibge.StatArea, &rec.Area},
		{fieldDensity, ibge.StatDensity, &rec.Density},
	}
	for _, f := range statFetches {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, o.fetchTimeout)
			defer cancel()
			fact, err := o.stats.Statistic(fctx, entityID, f.kind)
			if err != nil {
				fail(f.field, err)
				return nil
			}
			mu.Lock()
			*f.dst = fact
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	if rec.Info == nil {
		return nil, eris.Wrapf(infoErr, "aggregate: statistical record for %s", entityID)
	}

	zap.L().Debug("aggregate: statistical record assembled",
		zap.String("entity_id", entityID),
		zap.Int("field_errors", len(rec.SourceErrors)))
	return rec, nil
}

// CompositeRecord is StatisticalRecord behind a whole-record cache. Only
// fully resolved records are written back, so a later call can retry the
// fields that failed this time.
func (o *Orchestrator) CompositeRecord(ctx context.Context, entityID string) (*StatisticalRecord, error) {
	if payload, ok := o.store.Get(ctx, cache.NamespaceComposite, entityID, ""); ok {
		var rec StatisticalRecord
		if err := json.Unmarshal(payload, &rec); err == nil {
			return &rec, nil
		}
		zap.L().Warn("aggregate: dropping corrupt composite cache entry",
			zap.String("entity_id", entityID))
		o.store.Delete(ctx, cache.NamespaceComposite, entityID, "")
	}

	rec, err := o.StatisticalRecord(ctx, entityID)
	if err != nil {
		return nil, err
	}

	if rec.Complete() {
		if payload, err := json.Marshal(rec); err == nil {
			o.store.Set(ctx, cache.NamespaceComposite, entityID, "", payload, 0)
		}
	}
	return rec, nil
}
