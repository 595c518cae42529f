package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/oregrid/facility-cli/internal/model"
	"github.com/oregrid/facility-cli/internal/resilience"
	"github.com/oregrid/facility-cli/internal/store"
)

var (
	relGate     string
	relFacility string
	relMinConf  float64
	relJSON     bool
)

var relationshipsCmd = &cobra.Command{
	Use:   "relationships",
	Short: "List resolved facility-company relationships",
	RunE: func(cmd *cobra.Command, args []string) error {
		gate := model.Gate(relGate)
		if relGate != "" && !gate.Valid() {
			return eris.Wrapf(resilience.ErrInput, "invalid gate %q", relGate)
		}

		rels, err := openRelationshipStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer rels.Close()

		rows, err := rels.List(cmd.Context(), store.RelationshipFilter{
			FacilityID:    relFacility,
			Gate:          gate,
			MinConfidence: relMinConf,
		})
		if err != nil {
			return err
		}

		if relJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}

		for _, r := range rows {
			fmt.Printf("%-40s %-24s %-10s %.2f %-12s %s\n",
				r.FacilityID, r.CompanyID, r.Role, r.Confidence, r.Gate, r.MatchMethod)
		}
		fmt.Printf("%d relationships\n", len(rows))
		return nil
	},
}

func init() {
	relationshipsCmd.Flags().StringVar(&relGate, "gate", "", "filter by gate: auto_accept, review, pending")
	relationshipsCmd.Flags().StringVar(&relFacility, "facility", "", "filter by facility ID")
	relationshipsCmd.Flags().Float64Var(&relMinConf, "min-confidence", 0, "filter by minimum confidence")
	relationshipsCmd.Flags().BoolVar(&relJSON, "json", false, "emit JSON instead of a table")
	rootCmd.AddCommand(relationshipsCmd)
}
