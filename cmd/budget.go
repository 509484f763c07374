package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/policyengine/grantkit/internal/budget"
	"github.com/policyengine/grantkit/internal/model"
	"github.com/policyengine/grantkit/internal/report"
)

var dollars = message.NewPrinter(language.AmericanEnglish)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Compute budget totals and generate budget reports",
	Long: `Loads a declarative budget.yaml, computes category rollups, MTDC-based
indirect costs, and the grand total, then checks the result against the
caps declared in grant.yaml.

Examples:
  # Print the computed summary
  grantkit budget --budget budget.yaml

  # Check against caps and fail on violation
  grantkit budget --budget budget.yaml --grant grant.yaml --check-caps

  # Write narrative, JSON, and spreadsheet reports
  grantkit budget --output-dir out --format all`,
	RunE: runBudget,
}

func init() {
	f := budgetCmd.Flags()
	f.String("budget", "budget.yaml", "path to budget specification")
	f.String("grant", "grant.yaml", "path to grant metadata (for caps)")
	f.String("output-dir", "", "directory for generated report files")
	f.String("format", "markdown", "report format: markdown, json, xlsx, or all")
	f.Bool("check-caps", false, "exit non-zero when the budget exceeds declared caps")
	f.Bool("sync", false, "write the grand total back into grant.yaml")

	rootCmd.AddCommand(budgetCmd)
}

func runBudget(cmd *cobra.Command, _ []string) error {
	budgetPath, _ := cmd.Flags().GetString("budget")
	grantPath, _ := cmd.Flags().GetString("grant")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	format, _ := cmd.Flags().GetString("format")
	checkCaps, _ := cmd.Flags().GetBool("check-caps")
	syncTotal, _ := cmd.Flags().GetBool("sync")

	calc, err := budget.Load(budgetPath)
	if err != nil {
		return err
	}
	summary := calc.Summary()

	printSummary(summary)

	for _, warning := range calc.Validate() {
		fmt.Printf("warning: %s\n", warning)
	}

	var grant *model.Grant
	if _, err := os.Stat(grantPath); err == nil {
		grant, err = budget.LoadGrant(grantPath)
		if err != nil {
			return err
		}
		for _, violation := range calc.ValidateAgainstCaps(grant) {
			fmt.Printf("cap violation: %s\n", violation)
		}
	}

	if outputDir != "" {
		if err := writeReports(summary, grant, outputDir, format); err != nil {
			return err
		}
	}

	if syncTotal {
		total, err := budget.SyncToGrant(budgetPath, grantPath)
		if err != nil {
			return err
		}
		dollars.Printf("Synced grand total $%d to %s\n", total, grantPath)
	}

	if checkCaps && grant != nil {
		if err := calc.CheckCaps(grant); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(summary *model.BudgetSummary) {
	rows := []struct {
		name string
		data model.CategoryTotals
	}{
		{"A. Senior Personnel", summary.SeniorPersonnel},
		{"B. Other Personnel", summary.OtherPersonnel},
		{"C. Fringe Benefits", summary.FringeBenefits},
		{"D. Equipment", summary.Equipment},
		{"E. Travel", summary.Travel},
		{"F. Participant Support", summary.ParticipantSupport},
		{"G. Other Direct Costs", summary.OtherDirectCosts},
		{"Total Direct Costs", summary.TotalDirectCosts},
		{"I. Indirect Costs", summary.IndirectCosts},
	}

	for _, row := range rows {
		if row.data.Total == 0 {
			continue
		}
		dollars.Printf("%-24s $%d\n", row.name, row.data.Total)
	}
	dollars.Printf("%-24s $%d\n", "Grand Total", summary.GrandTotal)
}

func writeReports(summary *model.BudgetSummary, grant *model.Grant, outputDir, format string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return eris.Wrapf(err, "budget: creating %s", outputDir)
	}

	var budgetCap float64
	if grant != nil {
		budgetCap = grant.BudgetCap
	}

	writeMarkdown := format == "markdown" || format == "all"
	writeJSON := format == "json" || format == "all"
	writeXLSX := format == "xlsx" || format == "all"
	if !writeMarkdown && !writeJSON && !writeXLSX {
		return eris.Errorf("budget: unknown format %q", format)
	}

	if writeMarkdown {
		narrative := report.Narrative(summary, budgetCap, time.Now())
		path := filepath.Join(outputDir, "budget_narrative.md")
		if err := os.WriteFile(path, []byte(narrative), 0o644); err != nil {
			return eris.Wrapf(err, "budget: writing %s", path)
		}
		zap.S().Infow("wrote narrative", "path", path)
	}
	if writeJSON {
		path := filepath.Join(outputDir, "budget.json")
		if err := report.WriteJSON(summary, path); err != nil {
			return err
		}
		zap.S().Infow("wrote json", "path", path)
	}
	if writeXLSX {
		path := filepath.Join(outputDir, "budget.xlsx")
		if err := report.WriteWorkbook(summary, path); err != nil {
			return err
		}
		zap.S().Infow("wrote workbook", "path", path)
	}
	return nil
}
