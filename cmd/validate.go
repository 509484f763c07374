package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/policyengine/grantkit/internal/compliance"
	"github.com/policyengine/grantkit/internal/model"
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Check documents against NSF compliance rules",
	Long: `Scans markdown documents for content and structure violations:
embedded email addresses, prohibited file-sharing links, non-ASCII
characters, and missing required sections.

The document type selects the rule set: proposal (default), biosketch,
or narrative.

Examples:
  grantkit validate proposal.md
  grantkit validate --type biosketch biosketch.md
  grantkit validate --type narrative --strict budget_narrative.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.String("type", "proposal", "document type: proposal, biosketch, or narrative")
	f.Bool("strict", false, "treat warnings as failures")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	docType, _ := cmd.Flags().GetString("type")
	strict, _ := cmd.Flags().GetBool("strict")

	validator := compliance.NewValidator()

	var results []*model.ValidationResult
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrapf(err, "validate: reading %s", path)
		}
		content := string(raw)

		var result *model.ValidationResult
		switch docType {
		case "proposal":
			result = validator.ValidateProposal(content)
		case "biosketch":
			result = validator.ValidateBiographicalSketch(content)
		case "narrative":
			result = validator.ValidateBudgetNarrative(content)
		default:
			return eris.Errorf("validate: unknown document type %q", docType)
		}
		results = append(results, result)
	}

	fmt.Print(validator.Report(results))

	errors, warnings := 0, 0
	for _, result := range results {
		errors += result.ErrorCount()
		warnings += result.WarningCount()
	}
	if errors > 0 {
		return eris.Errorf("validation failed with %d error(s)", errors)
	}
	if strict && warnings > 0 {
		return eris.Errorf("validation failed with %d warning(s) (strict)", warnings)
	}
	return nil
}
