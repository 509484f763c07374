package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/policyengine/grantkit/internal/model"
)

// WriteJSON writes the summary as indented JSON, with per-category
// year_N keys matching the narrative layout.
func WriteJSON(summary *model.BudgetSummary, path string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return eris.Wrap(err, "report: encoding summary")
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "report: writing %s", path)
	}
	return nil
}

// WriteWorkbook writes the summary as a one-sheet spreadsheet: one row
// per budget-form category, one column per year, a total column, and
// direct/indirect/grand total footer rows.
func WriteWorkbook(summary *model.BudgetSummary, path string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Budget")
	if err != nil {
		return eris.Wrap(err, "report: adding sheet")
	}

	years := len(summary.TotalDirectCosts.Years)

	header := sheet.AddRow()
	header.AddCell().SetString("Category")
	for year := 1; year <= years; year++ {
		header.AddCell().SetString(fmt.Sprintf("Year %d", year))
	}
	header.AddCell().SetString("Total")

	writeRow := func(name string, totals model.CategoryTotals) {
		row := sheet.AddRow()
		row.AddCell().SetString(name)
		for year := 1; year <= years; year++ {
			row.AddCell().SetInt(totals.Year(year))
		}
		row.AddCell().SetInt(totals.Total)
	}

	for _, cat := range formCategories(summary) {
		writeRow(fmt.Sprintf("%s. %s", cat.code, cat.name), cat.data)
	}
	writeRow("Total Direct Costs", summary.TotalDirectCosts)
	writeRow("I. Indirect Costs", summary.IndirectCosts)

	grand := sheet.AddRow()
	grand.AddCell().SetString("Grand Total")
	for year := 1; year <= years; year++ {
		grand.AddCell().SetInt(
			summary.TotalDirectCosts.Year(year) + summary.IndirectCosts.Year(year))
	}
	grand.AddCell().SetInt(summary.GrandTotal)

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "report: writing %s", path)
	}
	return nil
}
