package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oregrid/facility-cli/internal/dedup"
)

var (
	dedupCountry string
	dedupDryRun  bool
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Merge duplicate facility records describing the same physical site",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		facilities, err := openFacilityStore(cfg)
		if err != nil {
			return err
		}

		engine := dedup.NewEngine(facilities)
		report, err := engine.Run(ctx, dedup.Options{
			Country: dedupCountry,
			DryRun:  dedupDryRun,
			Workers: cfg.Dedup.Workers,
		})
		if err != nil {
			return err
		}

		for _, g := range report.Groups {
			verb := "merged"
			if report.DryRun {
				verb = "would merge"
			}
			fmt.Printf("%s %v into %s (%v)\n", verb, g.MergedIDs, g.SurvivorID, g.Methods)
		}
		fmt.Printf("scanned %d, skipped %d, groups %d, merged %d\n",
			report.Scanned, report.Skipped, len(report.Groups), report.Merged)
		return nil
	},
}

func init() {
	dedupCmd.Flags().StringVar(&dedupCountry, "country", "", "restrict the run to one country code")
	dedupCmd.Flags().BoolVar(&dedupDryRun, "dry-run", false, "plan merges without writing")
	rootCmd.AddCommand(dedupCmd)
}
