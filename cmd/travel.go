package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/policyengine/grantkit/internal/budget"
	"github.com/policyengine/grantkit/pkg/gsa"
)

var travelCmd = &cobra.Command{
	Use:   "estimate-travel",
	Short: "Estimate travel costs from GSA per-diem rates",
	Long: `Prices the planned trips declared under travel.trips in budget.yaml
using GSA lodging and M&IE per-diem rates for each destination and
fiscal year. Unlisted destinations (and runs without a GSA API key)
fall back to conservative default rates.

Prints a per-trip breakdown plus ready-made travel lines to copy into
travel.domestic once the estimates look right.`,
	RunE: runTravel,
}

func init() {
	f := travelCmd.Flags()
	f.String("budget", "budget.yaml", "path to budget specification")

	rootCmd.AddCommand(travelCmd)
}

func runTravel(cmd *cobra.Command, _ []string) error {
	budgetPath, _ := cmd.Flags().GetString("budget")

	spec, err := budget.LoadSpec(budgetPath)
	if err != nil {
		return err
	}
	if len(spec.Travel.Trips) == 0 {
		fmt.Printf("No trips declared under travel.trips in %s\n", budgetPath)
		return nil
	}

	client := gsa.NewClient(
		gsa.WithAPIKey(cfg.GSA.Key),
		gsa.WithBaseURL(cfg.GSA.BaseURL),
		gsa.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	estimator := budget.NewTravelEstimator(client)
	costs, items := estimator.EstimateTravel(cmd.Context(), spec.Travel.Trips)

	grand := 0
	for _, cost := range costs {
		fmt.Printf("%s (%d traveler(s), %d night(s), rates: %s)\n",
			cost.Description, cost.Travelers, cost.Nights, cost.RateSource)
		if cost.Lodging > 0 {
			dollars.Printf("  Lodging  $%d  (at $%.2f/night)\n", cost.Lodging, cost.LodgingRate)
		}
		dollars.Printf("  M&IE     $%d  (at $%.2f/day)\n", cost.MIE, cost.MIERate)
		if cost.Airfare > 0 {
			dollars.Printf("  Airfare  $%d\n", cost.Airfare)
		}
		dollars.Printf("  Total    $%d\n", cost.Total)
	}

	fmt.Println("\nSuggested travel.domestic lines:")
	for i, item := range items {
		fmt.Printf("  - description: %q\n", item.Description)
		for year, amount := range item.Years {
			fmt.Printf("    year_%d: %d\n", year, amount)
		}
		grand += costs[i].Total
	}
	dollars.Printf("\nEstimated travel total: $%d\n", grand)
	return nil
}
