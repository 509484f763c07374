// Package report renders computed budgets as narrative markdown, JSON,
// and spreadsheet workbooks.
package report

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/policyengine/grantkit/internal/model"
)

var dollars = message.NewPrinter(language.AmericanEnglish)

// category pairs an NSF budget-form line code with its rollup.
type category struct {
	code string
	name string
	data model.CategoryTotals
}

func formCategories(summary *model.BudgetSummary) []category {
	return []category{
		{"A", "Senior Personnel", summary.SeniorPersonnel},
		{"B", "Other Personnel", summary.OtherPersonnel},
		{"C", "Fringe Benefits", summary.FringeBenefits},
		{"D", "Equipment", summary.Equipment},
		{"E", "Travel", summary.Travel},
		{"F", "Participant Support", summary.ParticipantSupport},
		{"G", "Other Direct Costs", summary.OtherDirectCosts},
	}
}

// Narrative renders a budget narrative markdown document. Categories
// with a zero total are omitted; a positive budgetCap adds a headroom
// line to the summary block.
func Narrative(summary *model.BudgetSummary, budgetCap float64, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Budget Narrative\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	b.WriteString("## Summary\n")
	dollars.Fprintf(&b, "- **Total Budget:** $%d\n", summary.GrandTotal)
	if budgetCap > 0 {
		dollars.Fprintf(&b, "- **Budget Cap:** $%d\n", int(budgetCap))
		dollars.Fprintf(&b, "- **Headroom:** $%d\n", int(budgetCap)-summary.GrandTotal)
	}
	b.WriteString("\n")

	for _, cat := range formCategories(summary) {
		if cat.data.Total == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s. %s\n\n", cat.code, cat.name)
		for i, amount := range cat.data.Years {
			dollars.Fprintf(&b, "- Year %d: $%d\n", i+1, amount)
		}
		dollars.Fprintf(&b, "- **Total:** $%d\n\n", cat.data.Total)
	}

	if summary.IndirectCosts.Total > 0 {
		b.WriteString("## I. Indirect Costs (F&A)\n\n")
		if summary.IndirectCosts.Rate > 0 {
			fmt.Fprintf(&b, "Rate: %.1f%% on MTDC\n", summary.IndirectCosts.Rate*100)
		}
		for i, amount := range summary.IndirectCosts.Years {
			dollars.Fprintf(&b, "- Year %d: $%d\n", i+1, amount)
		}
		dollars.Fprintf(&b, "- **Total:** $%d\n\n", summary.IndirectCosts.Total)
	}

	b.WriteString("---\n")
	dollars.Fprintf(&b, "**Total Direct Costs:** $%d\n", summary.TotalDirectCosts.Total)
	dollars.Fprintf(&b, "**Total Indirect Costs:** $%d\n", summary.IndirectCosts.Total)
	dollars.Fprintf(&b, "**Grand Total:** $%d\n", summary.GrandTotal)
	return b.String()
}
