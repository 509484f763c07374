// Package budget computes category rollups, MTDC-based indirect costs,
// and cap compliance from a declarative budget specification.
package budget

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/policyengine/grantkit/internal/model"
)

// dollars formats whole-dollar amounts with digit grouping in messages.
var dollars = message.NewPrinter(language.AmericanEnglish)

// Calculator derives totals from a BudgetSpec. All rollups are recomputed
// on every call; the spec is the only durable store. Fractional dollars
// are truncated at each rollup stage for compatibility with hand-checked
// budgets, so cross-category sums can differ from a round-once total by
// at most a few dollars.
type Calculator struct {
	spec  *model.BudgetSpec
	years int
}

// NewCalculator validates the spec's year count and returns a Calculator.
func NewCalculator(spec *model.BudgetSpec) (*Calculator, error) {
	if spec == nil {
		return nil, eris.New("budget: nil spec")
	}
	if spec.YearsInBudget < 1 {
		return nil, eris.Errorf("budget: years_in_budget must be >= 1 (got %d)", spec.YearsInBudget)
	}
	return &Calculator{spec: spec, years: spec.YearsInBudget}, nil
}

// Years returns the number of budget years.
func (c *Calculator) Years() int { return c.years }

// Spec returns the underlying specification.
func (c *Calculator) Spec() *model.BudgetSpec { return c.spec }

// SeniorPersonnel rolls up senior personnel salaries per year.
func (c *Calculator) SeniorPersonnel() model.CategoryTotals {
	return c.personnelTotals(c.spec.Personnel.Senior)
}

// OtherPersonnel rolls up other personnel salaries per year.
func (c *Calculator) OtherPersonnel() model.CategoryTotals {
	return c.personnelTotals(c.spec.Personnel.Other)
}

func (c *Calculator) personnelTotals(items []model.PersonnelItem) model.CategoryTotals {
	totals := model.CategoryTotals{Years: make([]int, c.years)}
	for year := 1; year <= c.years; year++ {
		sum := 0
		for _, person := range items {
			sum += person.Year(year)
		}
		totals.Years[year-1] = sum
		totals.Total += sum
	}
	return totals
}

// FringeBenefits computes fringe per year. An explicit year_N value in
// the spec wins; otherwise the configured rate is applied to that year's
// combined senior and other salaries; otherwise the year is zero. The
// precedence holds per year, so explicit and calculated years can mix.
func (c *Calculator) FringeBenefits() model.CategoryTotals {
	fringe := c.spec.FringeBenefits
	senior := c.SeniorPersonnel()
	other := c.OtherPersonnel()

	totals := model.CategoryTotals{Years: make([]int, c.years), Rate: fringe.Rate}
	for year := 1; year <= c.years; year++ {
		amount, explicit := fringe.Explicit(year)
		if !explicit {
			if fringe.Rate > 0 {
				amount = int(fringe.Rate * float64(senior.Year(year)+other.Year(year)))
			} else {
				amount = 0
			}
		}
		totals.Years[year-1] = amount
		totals.Total += amount
	}
	return totals
}

// Equipment rolls up equipment line items per year.
func (c *Calculator) Equipment() model.CategoryTotals {
	return c.lineItemTotals(c.spec.Equipment)
}

// Travel rolls up domestic and foreign travel together.
func (c *Calculator) Travel() model.CategoryTotals {
	totals := model.CategoryTotals{Years: make([]int, c.years)}
	for year := 1; year <= c.years; year++ {
		sum := 0
		for _, item := range c.spec.Travel.Domestic {
			sum += item.Year(year)
		}
		for _, item := range c.spec.Travel.Foreign {
			sum += item.Year(year)
		}
		totals.Years[year-1] = sum
		totals.Total += sum
	}
	return totals
}

// ParticipantSupport rolls up participant support line items per year.
func (c *Calculator) ParticipantSupport() model.CategoryTotals {
	return c.lineItemTotals(c.spec.ParticipantSupport)
}

// OtherDirectCosts rolls up other direct cost line items per year.
func (c *Calculator) OtherDirectCosts() model.CategoryTotals {
	return c.lineItemTotals(c.spec.OtherDirectCosts)
}

func (c *Calculator) lineItemTotals(items []model.LineItem) model.CategoryTotals {
	totals := model.CategoryTotals{Years: make([]int, c.years)}
	for year := 1; year <= c.years; year++ {
		sum := 0
		for _, item := range items {
			sum += item.Year(year)
		}
		totals.Years[year-1] = sum
		totals.Total += sum
	}
	return totals
}

// TotalDirectCosts sums every direct category per year.
func (c *Calculator) TotalDirectCosts() model.CategoryTotals {
	categories := []model.CategoryTotals{
		c.SeniorPersonnel(),
		c.OtherPersonnel(),
		c.FringeBenefits(),
		c.Equipment(),
		c.Travel(),
		c.ParticipantSupport(),
		c.OtherDirectCosts(),
	}

	totals := model.CategoryTotals{Years: make([]int, c.years)}
	for year := 1; year <= c.years; year++ {
		sum := 0
		for _, cat := range categories {
			sum += cat.Year(year)
		}
		totals.Years[year-1] = sum
		totals.Total += sum
	}
	return totals
}

// IndirectCosts applies the indirect rate to the Modified Total Direct
// Cost base. MTDC excludes equipment and participant support; this is
// fixed NSF policy, not configuration.
func (c *Calculator) IndirectCosts() model.CategoryTotals {
	rate := c.spec.IndirectCosts.Rate
	direct := c.TotalDirectCosts()
	equipment := c.Equipment()
	participant := c.ParticipantSupport()

	totals := model.CategoryTotals{Years: make([]int, c.years), Rate: rate}
	for year := 1; year <= c.years; year++ {
		mtdc := direct.Year(year) - equipment.Year(year) - participant.Year(year)
		indirect := int(float64(mtdc) * rate)
		totals.Years[year-1] = indirect
		totals.Total += indirect
	}
	return totals
}

// GrandTotal returns total direct plus total indirect costs.
func (c *Calculator) GrandTotal() int {
	return c.TotalDirectCosts().Total + c.IndirectCosts().Total
}

// Summary returns the complete derived budget.
func (c *Calculator) Summary() *model.BudgetSummary {
	direct := c.TotalDirectCosts()
	indirect := c.IndirectCosts()
	return &model.BudgetSummary{
		SeniorPersonnel:    c.SeniorPersonnel(),
		OtherPersonnel:     c.OtherPersonnel(),
		FringeBenefits:     c.FringeBenefits(),
		Equipment:          c.Equipment(),
		Travel:             c.Travel(),
		ParticipantSupport: c.ParticipantSupport(),
		OtherDirectCosts:   c.OtherDirectCosts(),
		TotalDirectCosts:   direct,
		IndirectCosts:      indirect,
		GrandTotal:         direct.Total + indirect.Total,
	}
}

// roundingTolerance is the allowed drift, in dollars, between explicit
// and recomputed values before Validate flags them.
const roundingTolerance = 1

// Validate flags internal inconsistencies: explicit fringe amounts that
// no longer match rate*salaries, and summary-block indirect figures that
// drifted from the recomputed MTDC value. These are warnings, never
// errors; they typically mean a rate or salary changed after the numbers
// were hand-entered.
func (c *Calculator) Validate() []string {
	var warnings []string

	fringe := c.spec.FringeBenefits
	if fringe.Rate > 0 {
		senior := c.SeniorPersonnel()
		other := c.OtherPersonnel()
		for year := 1; year <= c.years; year++ {
			actual, explicit := fringe.Explicit(year)
			if !explicit {
				continue
			}
			salary := senior.Year(year) + other.Year(year)
			expected := int(float64(salary) * fringe.Rate)
			if abs(expected-actual) > roundingTolerance {
				warnings = append(warnings, dollars.Sprintf(
					"fringe mismatch year_%d: expected $%d (rate %g * $%d), got $%d",
					year, expected, fringe.Rate, salary, actual))
			}
		}
	}

	if c.spec.IndirectCosts.Rate > 0 && len(c.spec.Summary) > 0 {
		indirect := c.IndirectCosts()
		for year := 1; year <= c.years; year++ {
			recorded, ok := c.spec.Summary[year]
			if !ok || recorded.Indirect == nil {
				continue
			}
			expected := indirect.Year(year)
			if abs(expected-*recorded.Indirect) > roundingTolerance {
				warnings = append(warnings, dollars.Sprintf(
					"indirect mismatch year_%d: expected $%d, got $%d",
					year, expected, *recorded.Indirect))
			}
		}
	}

	return warnings
}

// ValidateAgainstCaps checks the computed budget against the caps in the
// grant metadata and returns one message per violation. All violations
// are collected so a single pass surfaces the complete picture; absent
// caps are simply not checked.
func (c *Calculator) ValidateAgainstCaps(grant *model.Grant) []string {
	if grant == nil {
		return nil
	}

	var violations []string

	if grant.BudgetCap > 0 {
		total := c.GrandTotal()
		if float64(total) > grant.BudgetCap {
			violations = append(violations, dollars.Sprintf(
				"total budget $%d exceeds total cap $%d", total, int(grant.BudgetCap)))
		}
	}

	if grant.AnnualBudgetCap > 0 {
		direct := c.TotalDirectCosts()
		indirect := c.IndirectCosts()
		for year := 1; year <= c.years; year++ {
			annual := direct.Year(year) + indirect.Year(year)
			if float64(annual) > grant.AnnualBudgetCap {
				violations = append(violations, dollars.Sprintf(
					"year %d total $%d exceeds annual cap $%d",
					year, annual, int(grant.AnnualBudgetCap)))
			}
		}
	}

	return violations
}

// CapError aggregates every cap violation found in one validation pass.
type CapError struct {
	Violations []string
}

func (e *CapError) Error() string {
	return "budget exceeds caps: " + strings.Join(e.Violations, "; ")
}

// CheckCaps is the raising variant of ValidateAgainstCaps: it returns a
// *CapError carrying all violations when any cap is exceeded, nil
// otherwise.
func (c *Calculator) CheckCaps(grant *model.Grant) error {
	violations := c.ValidateAgainstCaps(grant)
	if len(violations) == 0 {
		return nil
	}
	return &CapError{Violations: violations}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
