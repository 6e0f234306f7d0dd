package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/locality/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Acquire municipality seed lists for warm-up and batch scoring",
}

var seedFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the IBGE territorial division archive and build a seed list",
	Long: `Downloads the DTB archive from the IBGE FTP server, extracts the
municipality spreadsheet, and writes a JSON seed list.

Example:
  locality seed fetch --archive DTB_2024.zip --output municipios.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		archive, _ := cmd.Flags().GetString("archive")
		output, _ := cmd.Flags().GetString("output")

		fetcher := seed.NewFTPFetcher(seed.FTPOptions{})
		xlsxPath, err := fetcher.FetchDTB(ctx, cfg.Seed.FTPHost, cfg.Seed.FTPPath, archive, cfg.Seed.TempDir)
		if err != nil {
			return err
		}
		zap.L().Info("seed: extracted spreadsheet", zap.String("path", xlsxPath))

		entries, err := seed.ReadXLSX(xlsxPath, seed.DTBOptions())
		if err != nil {
			return err
		}
		return writeSeedList(output, seed.Dedupe(entries))
	},
}

var seedConvertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert an XLSX sheet or municipal shapefile to a JSON seed list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		entries, err := loadSeedList(args[0])
		if err != nil {
			return err
		}
		return writeSeedList(output, seed.Dedupe(entries))
	},
}

func init() {
	seedFetchCmd.Flags().String("archive", "DTB_2024.zip", "archive file name on the FTP server")
	seedFetchCmd.Flags().String("output", "municipios.json", "output seed list path")
	seedConvertCmd.Flags().String("output", "municipios.json", "output seed list path")

	seedCmd.AddCommand(seedFetchCmd)
	seedCmd.AddCommand(seedConvertCmd)
	rootCmd.AddCommand(seedCmd)
}

// loadSeedList reads a seed list in any supported format: JSON lists written
// by this tool, DTB-layout XLSX sheets, or the IBGE municipal shapefile.
func loadSeedList(path string) ([]seed.Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return seed.ReadJSONFile(path)
	case ".xlsx", ".xls":
		return seed.ReadXLSX(path, seed.DTBOptions())
	case ".shp":
		return seed.ReadShapefile(path)
	default:
		return nil, eris.Errorf("seed: unsupported list format %q", filepath.Ext(path))
	}
}

func writeSeedList(path string, entries []seed.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "seed: create output")
	}
	defer f.Close()

	if err := seed.WriteJSON(f, entries); err != nil {
		return err
	}
	fmt.Printf("wrote %d municipalities to %s\n", len(entries), path)
	return nil
}
