package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oregrid/facility-cli/internal/resolve"
)

var (
	resolveCountry string
	resolveProfile string
	resolveDryRun  bool
	resolveMinConf float64
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve facility company mentions against the canonical registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		profileName := resolveProfile
		if profileName == "" {
			profileName = cfg.Resolve.Profile
		}
		profile, err := resolve.ProfileByName(profileName)
		if err != nil {
			return err
		}

		facilities, err := openFacilityStore(cfg)
		if err != nil {
			return err
		}
		records, skipped, err := facilities.List(ctx, resolveCountry)
		if err != nil {
			return err
		}

		reg, err := openRegistry(cfg)
		if err != nil {
			return err
		}

		resolver := resolve.NewResolver(reg, nil, profile, resolve.NewSessionCache())
		if !resolveDryRun {
			rels, err := openRelationshipStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer rels.Close()
			resolver = resolve.NewResolver(reg, rels, profile, resolve.NewSessionCache())
		}

		report, err := resolver.Run(ctx, records, resolve.Options{
			Country:       resolveCountry,
			DryRun:        resolveDryRun,
			Workers:       cfg.Resolve.Workers,
			MinConfidence: resolveMinConf,
		})
		if err != nil {
			return err
		}

		fmt.Printf("facilities %d, mentions %d: auto_accept %d, review %d, pending %d (lookup failures %d, skipped records %d)\n",
			report.Facilities, report.Mentions, report.AutoAccepted, report.Review,
			report.Pending, report.LookupFailures, len(skipped))
		if !report.DryRun {
			fmt.Printf("persisted %d relationships\n", report.Persisted)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveCountry, "country", "", "restrict the run to one country code")
	resolveCmd.Flags().StringVar(&resolveProfile, "profile", "", "resolution profile: strict, moderate, permissive")
	resolveCmd.Flags().BoolVar(&resolveDryRun, "dry-run", false, "score and gate without writing relationships")
	resolveCmd.Flags().Float64Var(&resolveMinConf, "min-confidence", 0, "suppress persisting relationships below this confidence")
	rootCmd.AddCommand(resolveCmd)
}
