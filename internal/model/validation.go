package model

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationIssue is a single compliance finding.
type ValidationIssue struct {
	Severity   Severity `json:"severity"`
	Category   string   `json:"category"`
	Message    string   `json:"message"`
	Location   string   `json:"location,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	Rule       string   `json:"rule,omitempty"`
}

// ValidationResult aggregates the issues found in one document.
// Passed is true iff no error-severity issues exist; strict handling of
// warnings is the caller's choice.
type ValidationResult struct {
	Passed bool              `json:"passed"`
	Issues []ValidationIssue `json:"issues"`
}

// ErrorCount returns the number of error-severity issues.
func (r ValidationResult) ErrorCount() int {
	return r.count(SeverityError)
}

// WarningCount returns the number of warning-severity issues.
func (r ValidationResult) WarningCount() int {
	return r.count(SeverityWarning)
}

func (r ValidationResult) count(sev Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			n++
		}
	}
	return n
}
