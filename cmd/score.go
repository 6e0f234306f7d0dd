package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/locality/internal/geo"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a location by infrastructure proximity",
	Long: `Score a coordinate pair or a free-form address 0-10 by the proximity of
healthcare, education, transportation, shopping, services, recreation and
dining points of interest.

Examples:
  # Score coordinates with the default radius
  locality score --lat -23.5505 --lng -46.6333

  # Score an address with a wider radius
  locality score --address "Avenida Paulista, São Paulo" --radius 2000`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.Float64("lat", 0, "latitude of the location to score")
	f.Float64("lng", 0, "longitude of the location to score")
	f.String("address", "", "free-form address (alternative to --lat/--lng)")
	f.Float64("radius", 0, "search radius in meters (default from config)")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	address, _ := cmd.Flags().GetString("address")
	lat, _ := cmd.Flags().GetFloat64("lat")
	lng, _ := cmd.Flags().GetFloat64("lng")
	radius, _ := cmd.Flags().GetFloat64("radius")

	hasCoords := cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng")
	if address == "" && !hasCoords {
		return eris.New("score: provide --address or both --lat and --lng")
	}
	if radius <= 0 {
		radius = cfg.Score.RadiusMeters
	}

	env, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	var result any
	if hasCoords {
		agg, err := env.Orch.ScoreCoordinates(ctx, geo.Point{Lat: lat, Lng: lng}, radius)
		if err != nil {
			return err
		}
		env.Metrics.ObserveScore(agg.OverallScore)
		result = agg
	} else {
		scored, err := env.Orch.ScoreAddress(ctx, address, radius)
		if err != nil {
			return err
		}
		env.Metrics.ObserveScore(scored.Score.OverallScore)
		result = scored
	}

	zap.L().Debug("score complete")
	return printJSON(os.Stdout, result)
}

func printJSON(w *os.File, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode output")
	}
	return nil
}
