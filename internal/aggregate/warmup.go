package aggregate

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WarmUpReport summarizes one warm-up batch. Ids beyond the per-call cap
// are skipped, never errored; per-entity failures land in Errors.
type WarmUpReport struct {
	JobID     string            `json:"job_id"`
	Requested int               `json:"requested"`
	Processed int               `json:"processed"`
	Cached    int               `json:"cached"`
	Failed    int               `json:"failed"`
	Skipped   []string          `json:"skipped,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// WarmUp pre-populates composite records for up to maxWarmUpEntities ids
// with bounded fan-out. The report accounts for every requested id: each is
// processed, failed, or skipped.
func (o *Orchestrator) WarmUp(ctx context.Context, entityIDs []string) WarmUpReport {
	report := WarmUpReport{
		JobID:     uuid.NewString(),
		Requested: len(entityIDs),
	}

	ids := entityIDs
	if len(ids) > maxWarmUpEntities {
		report.Skipped = append([]string(nil), ids[maxWarmUpEntities:]...)
		ids = ids[:maxWarmUpEntities]
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.warmUpConcurrency)

	for _, id := range ids {
		g.Go(func() error {
			rec, err := o.CompositeRecord(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			report.Processed++
			if err != nil {
				report.Failed++
				if report.Errors == nil {
					report.Errors = make(map[string]string)
				}
				report.Errors[id] = err.Error()
				return nil
			}
			if rec.Complete() {
				report.Cached++
			}
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("aggregate: warm-up complete",
		zap.String("job_id", report.JobID),
		zap.Int("requested", report.Requested),
		zap.Int("processed", report.Processed),
		zap.Int("cached", report.Cached),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", len(report.Skipped)))
	return report
}
