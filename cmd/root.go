package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/locality/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "locality",
	Short: "Location data aggregation and scoring engine",
	Long: "Fetches geospatial and municipal statistics from external providers, " +
		"caches them with per-source freshness policies, and scores locations " +
		"0-10 by infrastructure proximity.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
