package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/locality/internal/seed"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the data cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache backend state and key counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return printJSON(os.Stdout, env.Orch.CacheStats(ctx))
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear <entity-id>",
	Short: "Remove every cache entry for an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		deleted := env.Orch.ClearEntity(ctx, args[0])
		fmt.Printf("deleted %d entries for %s\n", deleted, args[0])
		return nil
	},
}

var cacheWarmupCmd = &cobra.Command{
	Use:   "warmup [entity-id...]",
	Short: "Pre-populate composite records for a batch of municipalities",
	Long: `Fetches and caches the full statistical record for each entity id.
Ids come from the command line or from a seed list (--seed-file, JSON or
XLSX). At most 50 ids are processed per call; the rest are reported as
skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		seedFile, _ := cmd.Flags().GetString("seed-file")

		ids := args
		if seedFile != "" {
			entries, err := loadSeedList(seedFile)
			if err != nil {
				return err
			}
			ids = append(ids, seed.IDs(entries)...)
		}
		if len(ids) == 0 {
			return eris.New("cache warmup: no entity ids given")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report := env.Orch.WarmUp(ctx, ids)
		env.Metrics.ObserveWarmUp(report.Cached, report.Failed, len(report.Skipped))
		return printJSON(os.Stdout, report)
	},
}

func init() {
	cacheWarmupCmd.Flags().String("seed-file", "", "seed list to read entity ids from (.json or .xlsx)")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheWarmupCmd)
	rootCmd.AddCommand(cacheCmd)
}
