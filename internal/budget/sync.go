package budget

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SyncToGrant recomputes the grand total from the budget file and writes
// it into the grant file's amount_requested and research_gov.total_requested
// fields. Every other key in the grant file survives the round trip
// untouched. Returns the new grand total.
func SyncToGrant(budgetPath, grantPath string) (int, error) {
	calc, err := Load(budgetPath)
	if err != nil {
		return 0, err
	}
	total := calc.GrandTotal()

	grant, err := LoadGrant(grantPath)
	if err != nil {
		return 0, err
	}

	grant.AmountRequested = total
	// Only touch the nested display field when the sub-record exists.
	if grant.ResearchGov != nil {
		grant.ResearchGov["total_requested"] = total
	}

	out, err := yaml.Marshal(grant)
	if err != nil {
		return 0, eris.Wrapf(err, "budget: encoding %s", grantPath)
	}
	if err := os.WriteFile(grantPath, out, 0o644); err != nil {
		return 0, eris.Wrapf(err, "budget: writing %s", grantPath)
	}

	zap.S().Infow("synced budget total to grant",
		"budget", budgetPath,
		"grant", grantPath,
		"total", total)
	return total, nil
}
