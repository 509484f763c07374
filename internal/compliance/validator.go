// Package compliance checks proposal documents against NSF formatting
// and content rules before submission.
package compliance

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/policyengine/grantkit/internal/model"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	urlPattern   = regexp.MustCompile(`https?://[^\s)\]>"']+`)
	dollarToken  = regexp.MustCompile(`\$\s?[0-9][0-9,]*`)
)

// prohibitedDomains are personal file-sharing hosts NSF does not accept
// as supplementary material locations.
var prohibitedDomains = []string{
	"dropbox.com",
	"drive.google.com",
	"onedrive.live.com",
	"box.com",
	"wetransfer.com",
}

// allowedDomains are hosts the link rule never flags: code hosting, DOI
// resolvers, archival repositories, and anything under .gov.
var allowedDomains = []string{
	"github.com",
	"gitlab.com",
	"doi.org",
	"zenodo.org",
	"osf.io",
}

// proposalSections are review-criteria headings a full proposal is
// expected to address. Their absence is a warning, not an error: NSF
// scores missing merit/impact narratively rather than rejecting.
var proposalSections = []string{
	"Intellectual Merit",
	"Broader Impacts",
}

// biosketchSections are the headings NSF requires in a biographical
// sketch. A missing one is a hard compliance failure.
var biosketchSections = []string{
	"Professional Preparation",
	"Appointments",
	"Publications",
	"Synergistic Activities",
	"Collaborators",
}

// narrativeCategories are the cost categories a budget narrative should
// justify.
var narrativeCategories = []string{
	"Senior Personnel",
	"Other Personnel",
	"Fringe Benefits",
	"Equipment",
	"Travel",
	"Participant Support",
	"Other Direct Costs",
}

// Validator applies the NSF rule set. It holds no state; one instance
// can check any number of documents.
type Validator struct{}

// NewValidator returns a Validator.
func NewValidator() *Validator { return &Validator{} }

// ValidateProposal checks assembled proposal text: content rules
// (emails, prohibited links, non-ASCII characters) plus structural
// expectations (headings, merit/impact sections).
func (v *Validator) ValidateProposal(content string) *model.ValidationResult {
	var issues []model.ValidationIssue
	issues = append(issues, checkEmails(content)...)
	issues = append(issues, checkLinks(content)...)
	issues = append(issues, checkASCII(content)...)
	issues = append(issues, checkHeadings(content)...)

	for _, section := range proposalSections {
		if !containsFold(content, section) {
			issues = append(issues, model.ValidationIssue{
				Severity: model.SeverityWarning,
				Category: "content",
				Message:  fmt.Sprintf("Section %q not found in proposal", section),
				Suggestion: fmt.Sprintf(
					"Add a %s section; reviewers score it explicitly", section),
				Rule: "PAPPG II.D.2",
			})
		}
	}

	return newResult(issues)
}

// ValidateBiographicalSketch checks a biosketch for the required
// headings. Missing sections are errors.
func (v *Validator) ValidateBiographicalSketch(content string) *model.ValidationResult {
	var issues []model.ValidationIssue
	issues = append(issues, checkASCII(content)...)

	for _, section := range biosketchSections {
		if !containsFold(content, section) {
			issues = append(issues, model.ValidationIssue{
				Severity:   model.SeverityError,
				Category:   "compliance",
				Message:    fmt.Sprintf("Required biosketch section %q is missing", section),
				Suggestion: fmt.Sprintf("Add a %s heading", section),
				Rule:       "PAPPG II.D.2.h",
			})
		}
	}

	return newResult(issues)
}

// ValidateBudgetNarrative checks a budget narrative for the expected
// cost categories and for dollar figures.
func (v *Validator) ValidateBudgetNarrative(content string) *model.ValidationResult {
	var issues []model.ValidationIssue

	for _, category := range narrativeCategories {
		if !containsFold(content, category) {
			issues = append(issues, model.ValidationIssue{
				Severity: model.SeverityWarning,
				Category: "content",
				Message:  fmt.Sprintf("Budget category %q not mentioned in narrative", category),
			})
		}
	}

	if !dollarToken.MatchString(content) {
		issues = append(issues, model.ValidationIssue{
			Severity:   model.SeverityWarning,
			Category:   "content",
			Message:    "No dollar amounts found in budget narrative",
			Suggestion: "Justify each category with specific dollar figures",
		})
	}

	return newResult(issues)
}

func checkEmails(content string) []model.ValidationIssue {
	var issues []model.ValidationIssue
	for _, match := range emailPattern.FindAllString(content, -1) {
		issues = append(issues, model.ValidationIssue{
			Severity:   model.SeverityError,
			Category:   "content",
			Message:    fmt.Sprintf("Email address %q found in proposal text", match),
			Suggestion: "Remove email addresses from the project description",
			Rule:       "PAPPG II.D.2.b",
		})
	}
	return issues
}

func checkLinks(content string) []model.ValidationIssue {
	var issues []model.ValidationIssue
	for _, rawURL := range urlPattern.FindAllString(content, -1) {
		lower := strings.ToLower(rawURL)
		if allowedLink(lower) {
			continue
		}
		for _, domain := range prohibitedDomains {
			if strings.Contains(lower, domain) {
				issues = append(issues, model.ValidationIssue{
					Severity:   model.SeverityError,
					Category:   "compliance",
					Message:    fmt.Sprintf("Link to prohibited file-sharing domain %s: %s", domain, rawURL),
					Suggestion: "Host supplementary material on an archival repository or code-hosting site",
					Rule:       "PAPPG II.D.2.d",
				})
				break
			}
		}
	}
	return issues
}

func allowedLink(url string) bool {
	for _, domain := range allowedDomains {
		if strings.Contains(url, domain) {
			return true
		}
	}
	return strings.Contains(url, ".gov/") || strings.HasSuffix(url, ".gov")
}

// checkASCII flags characters outside the printable ASCII range; smart
// quotes and similar pasted characters corrupt downstream PDF renders.
func checkASCII(content string) []model.ValidationIssue {
	var issues []model.ValidationIssue
	for lineNo, line := range strings.Split(content, "\n") {
		var offenders []rune
		for _, r := range line {
			if r > 126 {
				offenders = append(offenders, r)
			}
		}
		if len(offenders) > 0 {
			issues = append(issues, model.ValidationIssue{
				Severity:   model.SeverityError,
				Category:   "formatting",
				Message:    fmt.Sprintf("Non-ASCII characters found: %q", string(offenders)),
				Location:   fmt.Sprintf("Line %d", lineNo+1),
				Suggestion: "Replace with plain ASCII equivalents (straight quotes, hyphens)",
			})
		}
	}
	return issues
}

func checkHeadings(content string) []model.ValidationIssue {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			return nil
		}
	}
	return []model.ValidationIssue{{
		Severity:   model.SeverityWarning,
		Category:   "formatting",
		Message:    "No markdown headings found in document",
		Suggestion: "Structure the document with # and ## section headings",
	}}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func newResult(issues []model.ValidationIssue) *model.ValidationResult {
	result := &model.ValidationResult{Issues: issues}
	result.Passed = result.ErrorCount() == 0
	return result
}

// Report renders one or more validation results as a human-readable
// summary.
func (v *Validator) Report(results []*model.ValidationResult) string {
	var b strings.Builder
	b.WriteString("Validation Report\n")
	b.WriteString("=================\n\n")

	total := 0
	for _, result := range results {
		total += len(result.Issues)
		for _, issue := range result.Issues {
			fmt.Fprintf(&b, "[%s] %s: %s\n", strings.ToUpper(string(issue.Severity)), issue.Category, issue.Message)
			if issue.Location != "" {
				fmt.Fprintf(&b, "  Location: %s\n", issue.Location)
			}
			if issue.Suggestion != "" {
				fmt.Fprintf(&b, "  Suggestion: %s\n", issue.Suggestion)
			}
			if issue.Rule != "" {
				fmt.Fprintf(&b, "  Rule: %s\n", issue.Rule)
			}
		}
	}

	if total == 0 {
		b.WriteString("All validations passed.\n")
	} else {
		errors, warnings := 0, 0
		for _, result := range results {
			errors += result.ErrorCount()
			warnings += result.WarningCount()
		}
		fmt.Fprintf(&b, "\n%d error(s), %d warning(s)\n", errors, warnings)
		if errors == 0 {
			b.WriteString("Validation passed with warnings.\n")
		}
	}
	return b.String()
}
