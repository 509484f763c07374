package model

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// BudgetSpec is the declarative source of truth for a project budget.
// Amounts are whole dollars keyed by budget year (1-based); totals are
// always recomputed from line items, never stored here.
type BudgetSpec struct {
	YearsInBudget      int          `yaml:"years_in_budget"`
	Personnel          Personnel    `yaml:"personnel"`
	FringeBenefits     FringeSpec   `yaml:"fringe_benefits"`
	Equipment          []LineItem   `yaml:"equipment"`
	Travel             TravelSpec   `yaml:"travel"`
	ParticipantSupport []LineItem   `yaml:"participant_support"`
	OtherDirectCosts   []LineItem   `yaml:"other_direct_costs"`
	IndirectCosts      IndirectSpec `yaml:"indirect_costs"`
	Summary            SummarySpec  `yaml:"summary"`
}

// Personnel groups the two NSF personnel categories.
type Personnel struct {
	Senior []PersonnelItem `yaml:"senior_key"`
	Other  []PersonnelItem `yaml:"other"`
}

// PersonnelItem is one person (or position) with per-year salary amounts.
// Personnel have no funds_per_year fallback: a missing year means zero.
type PersonnelItem struct {
	Name       string
	Role       string
	Title      string
	Category   string
	Occupation string
	Area       string
	Months     float64
	BaseSalary int
	Years      map[int]int
}

// UnmarshalYAML captures the named fields plus the sparse year_N keys.
func (p *PersonnelItem) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	p.Name, _ = raw["name"].(string)
	p.Role, _ = raw["role"].(string)
	p.Title, _ = raw["title"].(string)
	p.Category, _ = raw["category"].(string)
	p.Occupation, _ = raw["occupation"].(string)
	p.Area, _ = raw["area"].(string)
	if v, ok := asFloat(raw["months"]); ok {
		p.Months = v
	}
	if v, ok := asInt(raw["base_salary"]); ok {
		p.BaseSalary = v
	}
	p.Years = yearAmounts(raw)
	return nil
}

// Year returns the amount budgeted for the given 1-based year, or zero.
func (p PersonnelItem) Year(n int) int {
	return p.Years[n]
}

// LineItem is a non-personnel budget line. Each year resolves to the
// explicit year_N value if present, else funds_per_year, else zero.
type LineItem struct {
	Description  string
	Category     string
	FundsPerYear *int
	Years        map[int]int
}

// UnmarshalYAML captures description, funds_per_year, and sparse year_N keys.
func (li *LineItem) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	li.Description, _ = raw["description"].(string)
	li.Category, _ = raw["category"].(string)
	if v, ok := asInt(raw["funds_per_year"]); ok {
		li.FundsPerYear = &v
	}
	li.Years = yearAmounts(raw)
	return nil
}

// Year resolves the amount for the given 1-based year.
func (li LineItem) Year(n int) int {
	if v, ok := li.Years[n]; ok {
		return v
	}
	if li.FundsPerYear != nil {
		return *li.FundsPerYear
	}
	return 0
}

// TravelSpec splits travel into the two NSF sub-categories. Trips are
// planned destinations whose cost is estimated from per-diem rates
// instead of entered by hand; they do not enter the budget rollup
// until their estimates are copied into domestic or foreign lines.
type TravelSpec struct {
	Domestic []LineItem `yaml:"domestic"`
	Foreign  []LineItem `yaml:"foreign"`
	Trips    []TripSpec `yaml:"trips"`
}

// TripSpec describes one planned trip for per-diem estimation. Explicit
// lodging or M&IE rates override the looked-up ones.
type TripSpec struct {
	Description      string  `yaml:"description"`
	Travelers        int     `yaml:"travelers"`
	Days             int     `yaml:"days"`
	City             string  `yaml:"city"`
	State            string  `yaml:"state"`
	FiscalYear       int     `yaml:"fiscal_year"`
	BudgetYear       int     `yaml:"budget_year"`
	AirfarePerPerson float64 `yaml:"airfare_per_person"`
	LodgingRate      float64 `yaml:"lodging_rate"`
	MIERate          float64 `yaml:"mie_rate"`
}

// FringeSpec holds the fringe benefit rate and optional explicit per-year
// overrides. An explicit year value always wins over the rate calculation.
type FringeSpec struct {
	Rate  float64
	Years map[int]int
}

// UnmarshalYAML captures the rate plus sparse year_N overrides.
func (f *FringeSpec) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if v, ok := asFloat(raw["rate"]); ok {
		f.Rate = v
	}
	f.Years = yearAmounts(raw)
	return nil
}

// Explicit reports whether the given year has a hand-set fringe amount.
func (f FringeSpec) Explicit(n int) (int, bool) {
	v, ok := f.Years[n]
	return v, ok
}

// IndirectSpec configures the indirect cost calculation. Base is always
// MTDC for NSF budgets; the field is retained for round-trip fidelity.
type IndirectSpec struct {
	Rate float64 `yaml:"rate"`
	Base string  `yaml:"base"`
}

// SummarySpec is an optional hand-maintained summary block embedded in a
// budget file. It is never authoritative; the calculator only reads it to
// flag values that drifted from the recomputed ones.
type SummarySpec map[int]YearSummary

// YearSummary carries the hand-recorded figures for one year.
type YearSummary struct {
	Direct   *int `yaml:"direct"`
	Indirect *int `yaml:"indirect"`
	Total    *int `yaml:"total"`
}

// UnmarshalYAML accepts the year_N-keyed mapping form.
func (s *SummarySpec) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]YearSummary
	if err := value.Decode(&raw); err != nil {
		return err
	}
	out := make(SummarySpec, len(raw))
	for k, v := range raw {
		if n, ok := yearIndex(k); ok {
			out[n] = v
		}
	}
	*s = out
	return nil
}

// yearAmounts extracts year_N keys from a decoded mapping, truncating any
// fractional dollars the same way every rollup stage does.
func yearAmounts(raw map[string]any) map[int]int {
	years := make(map[int]int)
	for k, v := range raw {
		n, ok := yearIndex(k)
		if !ok {
			continue
		}
		if amount, ok := asInt(v); ok {
			years[n] = amount
		}
	}
	if len(years) == 0 {
		return nil
	}
	return years
}

func yearIndex(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, "year_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// CategoryTotals is a derived per-year rollup for one budget category.
// Years holds whole-dollar amounts indexed by year-1; Rate is only set
// for the fringe and indirect categories.
type CategoryTotals struct {
	Years []int   `json:"-"`
	Total int     `json:"total"`
	Rate  float64 `json:"rate,omitempty"`
}

// Year returns the rollup for the given 1-based year, or zero.
func (c CategoryTotals) Year(n int) int {
	if n < 1 || n > len(c.Years) {
		return 0
	}
	return c.Years[n-1]
}

// MarshalJSON emits the year_1..year_N keyed form used by report exports.
func (c CategoryTotals) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	if c.Rate != 0 {
		fmt.Fprintf(&b, `"rate":%g,`, c.Rate)
	}
	for i, v := range c.Years {
		fmt.Fprintf(&b, `"year_%d":%d,`, i+1, v)
	}
	fmt.Fprintf(&b, `"total":%d}`, c.Total)
	return []byte(b.String()), nil
}

// BudgetSummary aggregates every category rollup plus the grand total.
// Invariant: GrandTotal == TotalDirectCosts.Total + IndirectCosts.Total.
type BudgetSummary struct {
	SeniorPersonnel    CategoryTotals `json:"senior_personnel"`
	OtherPersonnel     CategoryTotals `json:"other_personnel"`
	FringeBenefits     CategoryTotals `json:"fringe_benefits"`
	Equipment          CategoryTotals `json:"equipment"`
	Travel             CategoryTotals `json:"travel"`
	ParticipantSupport CategoryTotals `json:"participant_support"`
	OtherDirectCosts   CategoryTotals `json:"other_direct_costs"`
	TotalDirectCosts   CategoryTotals `json:"total_direct_costs"`
	IndirectCosts      CategoryTotals `json:"indirect_costs"`
	GrandTotal         int            `json:"grand_total"`
}
