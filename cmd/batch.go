package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/locality/internal/geo"
	"github.com/sells-group/locality/internal/scorer"
	"github.com/sells-group/locality/internal/seed"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Score a seed list of municipalities and write CSV results",
	Long: `Scores every entry of a seed list (JSON, DTB XLSX or shapefile).
Entries carrying coordinates are scored directly; the rest are geocoded by
name first. Results are written as one CSV row per municipality with the
overall score and each category score.

Example:
  locality batch --input municipios.json --output scores.csv --limit 100`,
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.String("input", "", "seed list to score (.json, .xlsx or .shp)")
	f.String("output", "", "output CSV path (default: stdout)")
	f.Int("limit", 0, "score at most this many entries (0 = all)")
	f.Float64("radius", 0, "search radius in meters (default from config)")

	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

type batchResult struct {
	entry    seed.Entry
	location geo.Point
	score    scorer.AggregateScore
	err      error
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	limit, _ := cmd.Flags().GetInt("limit")
	radius, _ := cmd.Flags().GetFloat64("radius")
	if radius <= 0 {
		radius = cfg.Score.RadiusMeters
	}

	entries, err := loadSeedList(input)
	if err != nil {
		return err
	}
	entries = seed.Dedupe(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if len(entries) == 0 {
		return eris.New("batch: seed list is empty")
	}

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	concurrency := cfg.Batch.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	results := make([]batchResult, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, e := range entries {
		g.Go(func() error {
			results[i] = scoreEntry(gctx, env, e, radius)
			return nil
		})
	}
	_ = g.Wait()

	var failed int
	for _, r := range results {
		if r.err != nil {
			failed++
		} else {
			env.Metrics.ObserveScore(r.score.OverallScore)
		}
	}
	zap.L().Info("batch: scoring complete",
		zap.Int("entries", len(entries)),
		zap.Int("failed", failed))

	return writeBatchCSV(output, results)
}

// scoreEntry scores one seed entry, geocoding by name when the entry has no
// coordinates. Failures are captured per entry, never fatal for the batch.
func scoreEntry(ctx context.Context, env *appEnv, e seed.Entry, radius float64) batchResult {
	res := batchResult{entry: e}

	if e.Location != nil {
		res.location = *e.Location
	} else {
		query := e.Name
		if e.State != "" {
			query += ", " + e.State
		}
		geocoded, err := env.Geocode.Geocode(ctx, query+", Brasil")
		if err != nil {
			res.err = err
			return res
		}
		if !geocoded.Matched {
			res.err = eris.Errorf("batch: could not geocode %q", query)
			return res
		}
		res.location = geocoded.Location
	}

	agg, err := env.Orch.ScoreCoordinates(ctx, res.location, radius)
	if err != nil {
		res.err = err
		return res
	}
	res.score = agg
	return res
}

func writeBatchCSV(path string, results []batchResult) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrap(err, "batch: create output")
		}
		defer f.Close()
		out = f
	}

	categories := scorer.Categories()

	w := csv.NewWriter(out)
	header := []string{"id", "name", "state", "lat", "lng", "overall_score"}
	for _, c := range categories {
		header = append(header, string(c))
	}
	header = append(header, "error")
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "batch: write header")
	}

	for _, r := range results {
		row := []string{r.entry.ID, r.entry.Name, r.entry.State}
		if r.err != nil {
			row = append(row, "", "", "")
			for range categories {
				row = append(row, "")
			}
			row = append(row, r.err.Error())
		} else {
			row = append(row,
				formatFloat(r.location.Lat),
				formatFloat(r.location.Lng),
				formatFloat(r.score.OverallScore))
			for _, c := range categories {
				row = append(row, formatFloat(r.score.CategoryResults[c].Score))
			}
			row = append(row, "")
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "batch: write row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "batch: flush output")
	}
	if path != "" {
		fmt.Printf("wrote %d rows to %s\n", len(results), path)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
