// Package salary scores proposed personnel salaries against published
// market wage distributions.
//
// NSF requires salaries to be "reasonable and consistent with that paid
// for similar work"; reviewers flag salaries well above local market
// rates even though no hard percentile cap exists. The validator turns
// that reviewer heuristic into explicit thresholds.
package salary

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/policyengine/grantkit/pkg/bls"
)

var dollars = message.NewPrinter(language.AmericanEnglish)

// Classification thresholds, in percentile points of the market wage
// distribution.
const (
	ErrorPercentile      = 95
	WarningPercentile    = 75
	LowWarningPercentile = 10
)

// OccupationCodes maps common academic and research role names to SOC
// occupation codes. Values not present are assumed to be codes already.
var OccupationCodes = map[string]string{
	"computer_scientist":      "15-1221",
	"software_developer":      "15-1252",
	"data_scientist":          "15-2051",
	"statistician":            "15-2041",
	"mathematician":           "15-2021",
	"economist":               "19-3011",
	"political_scientist":     "19-3094",
	"sociologist":             "19-3041",
	"environmental_scientist": "19-2041",
	"chemist":                 "19-2031",
	"physicist":               "19-2012",
	"biologist":               "19-1029",
	"engineer":                "17-2199",
	"electrical_engineer":     "17-2071",
	"mechanical_engineer":     "17-2141",
	"civil_engineer":          "17-2051",
	"postsecondary_teacher":   "25-1000",
	"cs_professor":            "25-1021",
	"engineering_professor":   "25-1032",
	"math_professor":          "25-1022",
	"economics_professor":     "25-1063",
	"research_assistant":      "19-4099",
	"postdoc":                 "19-1099",
}

// MetroAreaCodes maps metro area names to BLS area codes.
var MetroAreaCodes = map[string]string{
	"san_francisco": "41860",
	"los_angeles":   "31080",
	"san_diego":     "41740",
	"san_jose":      "41940",
	"new_york":      "35620",
	"boston":        "14460",
	"philadelphia":  "37980",
	"washington_dc": "47900",
	"chicago":       "16980",
	"detroit":       "19820",
	"minneapolis":   "33460",
	"atlanta":       "12060",
	"dallas":        "19100",
	"houston":       "26420",
	"austin":        "12420",
	"miami":         "33100",
	"seattle":       "42660",
	"denver":        "19740",
	"phoenix":       "38060",
	"portland":      "38900",
	"national":      "0000000",
}

// WageSource provides wage distributions. *bls.Client satisfies it; the
// tests inject stubs.
type WageSource interface {
	OccupationWages(ctx context.Context, occupationCode, areaCode string, year int) (*bls.WageData, error)
}

// Result is one salary's market judgement. Issues fail validation;
// warnings and suggestions are advisory.
type Result struct {
	IsValid        bool
	Salary         float64
	OccupationCode string
	AreaCode       string
	WageData       *bls.WageData
	Percentile     *float64
	Issues         []string
	Warnings       []string
	Suggestions    []string
}

// Request is one salary to validate. Months defaults to 12; Area falls
// back to the validator default.
type Request struct {
	Salary      float64
	Occupation  string
	Months      float64
	Area        string
	Description string
}

// Validator scores salaries against a wage source.
type Validator struct {
	source      WageSource
	defaultArea string
	dataYear    int
}

// NewValidator returns a Validator reading from source. defaultArea may
// be a metro name or a BLS area code; dataYear selects the survey year.
func NewValidator(source WageSource, defaultArea string, dataYear int) *Validator {
	if defaultArea == "" {
		defaultArea = "national"
	}
	return &Validator{source: source, defaultArea: defaultArea, dataYear: dataYear}
}

func resolveArea(area string) string {
	if code, ok := MetroAreaCodes[area]; ok {
		area = code
	}
	// BLS area codes are 7 digits.
	for len(area) < 7 {
		area = "0" + area
	}
	return area
}

func resolveOccupation(occupation string) string {
	if code, ok := OccupationCodes[occupation]; ok {
		return code
	}
	return occupation
}

// ValidateSalary scores one salary. Salaries covering fewer than 12
// months are annualized first. Wage data being unavailable is a
// warning, not a failure: the salary stays valid but unreviewed.
func (v *Validator) ValidateSalary(ctx context.Context, req Request) *Result {
	months := req.Months
	if months <= 0 {
		months = 12
	}
	annual := req.Salary
	if months != 12 {
		annual = req.Salary * (12 / months)
	}

	occupationCode := resolveOccupation(req.Occupation)
	area := req.Area
	if area == "" {
		area = v.defaultArea
	}
	areaCode := resolveArea(area)

	result := &Result{
		IsValid:        true,
		Salary:         annual,
		OccupationCode: occupationCode,
		AreaCode:       areaCode,
	}

	wages, err := v.source.OccupationWages(ctx, occupationCode, areaCode, v.dataYear)
	if err != nil {
		zap.S().Warnw("wage lookup failed",
			"occupation", occupationCode, "area", areaCode, "error", err)
		wages = nil
	}
	if wages == nil {
		result.Warnings = append(result.Warnings, dollars.Sprintf(
			"Could not fetch OEWS data for %s in area %s. Unable to validate salary against market rates.",
			occupationCode, areaCode))
		return result
	}
	result.WageData = wages

	role := req.Description
	if role == "" {
		role = req.Occupation
	}

	if pct, ok := bls.EstimatePercentile(annual, wages); ok {
		result.Percentile = &pct
		switch {
		case pct >= ErrorPercentile:
			result.IsValid = false
			result.Issues = append(result.Issues, dollars.Sprintf(
				"Salary for %s ($%.0f/year) is at the %.0fth percentile - significantly above market rate. NSF reviewers may question this salary level.",
				role, annual, pct))
			if wages.Pct75 != nil {
				result.Suggestions = append(result.Suggestions, dollars.Sprintf(
					"Consider reducing to $%.0f (75th percentile) or provide strong justification for the higher rate.",
					*wages.Pct75))
			}
		case pct >= WarningPercentile:
			result.Warnings = append(result.Warnings, dollars.Sprintf(
				"Salary for %s ($%.0f/year) is at the %.0fth percentile - above market median. Ensure strong justification is provided.",
				role, annual, pct))
		case pct <= LowWarningPercentile:
			result.Warnings = append(result.Warnings, dollars.Sprintf(
				"Salary for %s ($%.0f/year) is at the %.0fth percentile - unusually low. This may indicate a data entry error or difficulty recruiting.",
				role, annual, pct))
		}
	}

	if wages.Median != nil {
		result.Suggestions = append(result.Suggestions, dollars.Sprintf(
			"Market reference: Median salary for %s is $%.0f/year",
			occupationCode, *wages.Median))
	}
	if wages.Pct25 != nil && wages.Pct75 != nil {
		result.Suggestions = append(result.Suggestions, dollars.Sprintf(
			"Typical range (25th-75th percentile): $%.0f - $%.0f",
			*wages.Pct25, *wages.Pct75))
	}

	return result
}

// InferOccupation guesses an occupation alias from a free-text role
// description. The empty string means the role is unclassifiable and
// should be skipped.
func InferOccupation(description string) string {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "pi") || strings.Contains(desc, "principal investigator"):
		return "postsecondary_teacher"
	case strings.Contains(desc, "postdoc"):
		return "postdoc"
	case strings.Contains(desc, "graduate") || strings.Contains(desc, "student"):
		return "research_assistant"
	case strings.Contains(desc, "software") || strings.Contains(desc, "developer"):
		return "software_developer"
	case strings.Contains(desc, "data scientist"):
		return "data_scientist"
	}
	return ""
}

// bulkConcurrency bounds parallel wage lookups; the source is
// rate-limited anyway so higher values buy nothing.
const bulkConcurrency = 4

// ValidatePersonnel scores every classifiable personnel line. Lines
// without an explicit occupation are classified from their description;
// unclassifiable lines are skipped. Results come back in input order.
func (v *Validator) ValidatePersonnel(ctx context.Context, items []Request) ([]*Result, error) {
	type slot struct {
		index int
		req   Request
	}

	var work []slot
	for _, item := range items {
		if item.Occupation == "" {
			item.Occupation = InferOccupation(item.Description)
			if item.Occupation == "" {
				continue
			}
		}
		work = append(work, slot{index: len(work), req: item})
	}

	results := make([]*Result, len(work))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for _, w := range work {
		w := w
		g.Go(func() error {
			results[w.index] = v.ValidateSalary(gctx, w.req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
