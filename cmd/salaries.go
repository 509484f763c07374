package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/policyengine/grantkit/internal/budget"
	"github.com/policyengine/grantkit/internal/salary"
	"github.com/policyengine/grantkit/pkg/bls"
)

var salariesCmd = &cobra.Command{
	Use:   "check-salaries",
	Short: "Validate budget salaries against OEWS market wage data",
	Long: `Reads the personnel lines from budget.yaml, classifies each role,
fetches BLS OEWS wage percentiles for the matching occupation and metro
area, and flags salaries that sit unusually high or low in the market
distribution.

Examples:
  # Validate every classifiable personnel line
  grantkit check-salaries --budget budget.yaml

  # Use a specific metro area
  grantkit check-salaries --area san_francisco

  # Check a single salary directly
  grantkit check-salaries --salary 185000 --occupation software_developer`,
	RunE: runCheckSalaries,
}

func init() {
	f := salariesCmd.Flags()
	f.String("budget", "budget.yaml", "path to budget specification")
	f.String("area", "", "metro area name or BLS area code (default from config)")
	f.Float64("salary", 0, "validate a single salary instead of the budget")
	f.String("occupation", "", "occupation name or SOC code for --salary")
	f.Float64("months", 12, "months the salary covers, for annualization")

	rootCmd.AddCommand(salariesCmd)
}

func runCheckSalaries(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	budgetPath, _ := cmd.Flags().GetString("budget")
	area, _ := cmd.Flags().GetString("area")
	singleSalary, _ := cmd.Flags().GetFloat64("salary")
	occupation, _ := cmd.Flags().GetString("occupation")
	months, _ := cmd.Flags().GetFloat64("months")

	if area == "" {
		area = cfg.Salary.DefaultArea
	}

	opts := []bls.Option{
		bls.WithAPIKey(cfg.BLS.Key),
		bls.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	}
	if cfg.BLS.BaseURL != "" {
		opts = append(opts, bls.WithBaseURL(cfg.BLS.BaseURL))
	}
	if st, err := initStore(ctx); err == nil {
		defer st.Close()
		opts = append(opts, bls.WithCache(st))
	} else {
		zap.S().Warnw("running without persistent wage cache", "error", err)
	}

	validator := salary.NewValidator(bls.NewClient(opts...), area, cfg.BLS.DataYear)

	if singleSalary > 0 {
		if occupation == "" {
			return fmt.Errorf("--occupation is required with --salary")
		}
		result := validator.ValidateSalary(ctx, salary.Request{
			Salary:     singleSalary,
			Occupation: occupation,
			Months:     months,
			Area:       area,
		})
		printSalaryResult(result)
		if !result.IsValid {
			return fmt.Errorf("salary validation failed")
		}
		return nil
	}

	spec, err := budget.LoadSpec(budgetPath)
	if err != nil {
		return err
	}

	var requests []salary.Request
	for _, person := range append(spec.Personnel.Senior, spec.Personnel.Other...) {
		total := 0
		for _, amount := range person.Years {
			total += amount
		}
		if total == 0 {
			continue
		}
		// Use the largest single-year amount as the annual salary proxy.
		annual := 0
		for _, amount := range person.Years {
			if amount > annual {
				annual = amount
			}
		}
		personArea := person.Area
		if personArea == "" {
			personArea = area
		}
		// The role rides along so unclassified lines can be inferred
		// from it ("PI", "Postdoc", "Graduate Student").
		description := person.Name
		if person.Role != "" {
			description = fmt.Sprintf("%s (%s)", person.Name, person.Role)
		}
		requests = append(requests, salary.Request{
			Salary:      float64(annual),
			Months:      person.Months,
			Description: description,
			Occupation:  person.Occupation,
			Area:        personArea,
		})
	}

	results, err := validator.ValidatePersonnel(ctx, requests)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No classifiable personnel lines found.")
		return nil
	}

	failed := 0
	for _, result := range results {
		printSalaryResult(result)
		if !result.IsValid {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d salary validation(s) failed", failed)
	}
	return nil
}

func printSalaryResult(result *salary.Result) {
	dollars.Printf("\nSalary: $%.0f/year\n", result.Salary)
	fmt.Printf("Occupation: %s  Area: %s\n", result.OccupationCode, result.AreaCode)
	if result.Percentile != nil {
		fmt.Printf("Percentile: %.0fth\n", *result.Percentile)
	}
	for _, issue := range result.Issues {
		fmt.Printf("  ERROR: %s\n", issue)
	}
	for _, warning := range result.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
	for _, suggestion := range result.Suggestions {
		fmt.Printf("  %s\n", suggestion)
	}
}
