package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oregrid/facility-cli/internal/ingest"
	"github.com/oregrid/facility-cli/internal/resilience"
)

var (
	importInput   string
	importCountry string
	importDryRun  bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import facility records from a CSV or XLSX export",
	RunE: func(cmd *cobra.Command, args []string) error {
		if importInput == "" {
			return eris.Wrap(resilience.ErrInput, "--input is required")
		}

		var (
			result *ingest.Result
			err    error
		)
		switch strings.ToLower(filepath.Ext(importInput)) {
		case ".csv":
			result, err = ingest.ParseCSV(importInput, importCountry)
		case ".xlsx":
			result, err = ingest.ParseXLSX(importInput, importCountry)
		default:
			return eris.Wrapf(resilience.ErrInput, "unsupported input format %q", filepath.Ext(importInput))
		}
		if err != nil {
			return err
		}

		if importDryRun {
			fmt.Printf("dry run: %d records parsed, %d rows skipped\n",
				len(result.Records), len(result.Skipped))
			return nil
		}

		facilities, err := openFacilityStore(cfg)
		if err != nil {
			return err
		}

		written := 0
		for _, rec := range result.Records {
			// New-source enrichment: an existing record keeps its identity
			// and gains the new source; it is never overwritten wholesale.
			existing, err := facilities.Get(cmd.Context(), rec.FacilityID)
			if err != nil {
				return err
			}
			if existing != nil {
				existing.Sources = append(existing.Sources, rec.Sources...)
				rec = existing
			}
			if err := facilities.Put(cmd.Context(), rec); err != nil {
				return err
			}
			written++
		}

		zap.L().Info("import complete",
			zap.String("input", importInput),
			zap.Int("written", written),
			zap.Int("skipped", len(result.Skipped)))
		fmt.Printf("imported %d records (%d rows skipped)\n", written, len(result.Skipped))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importInput, "input", "", "CSV or XLSX file to import")
	importCmd.Flags().StringVar(&importCountry, "country", "", "default country code for rows without one")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and report without writing")
	rootCmd.AddCommand(importCmd)
}
