package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/locality/pkg/ibge"
)

var municipalityCmd = &cobra.Command{
	Use:     "municipality",
	Aliases: []string{"mun"},
	Short:   "Look up municipality identification and statistics",
}

var municipalityGetCmd = &cobra.Command{
	Use:   "get <ibge-code>",
	Short: "Fetch basic identification for a municipality",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		m, err := env.Stats.Municipality(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, m)
	},
}

var municipalityRecordCmd = &cobra.Command{
	Use:   "record <ibge-code>",
	Short: "Assemble the full statistical record for a municipality",
	Long: `Fetches identification, population, area and density concurrently and
merges them into one record. Fields that fail to resolve are reported in
source_errors without failing the request.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := env.Orch.CompositeRecord(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, rec)
	},
}

var municipalitySearchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Search municipalities by name, ignoring case and accents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		limit, _ := cmd.Flags().GetInt("limit")

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		query := args[0]
		for _, a := range args[1:] {
			query += " " + a
		}

		matches, err := ibge.Search(ctx, env.Stats, query, limit)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, matches)
	},
}

func init() {
	municipalitySearchCmd.Flags().Int("limit", 10, "maximum number of matches")

	municipalityCmd.AddCommand(municipalityGetCmd)
	municipalityCmd.AddCommand(municipalityRecordCmd)
	municipalityCmd.AddCommand(municipalitySearchCmd)
	rootCmd.AddCommand(municipalityCmd)
}
