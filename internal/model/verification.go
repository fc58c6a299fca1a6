package model

// VerificationStatus summarizes the outcome of a secondary review.
type VerificationStatus string

const (
	VerificationPassed     VerificationStatus = "passed"
	VerificationPassedWarn VerificationStatus = "passed_with_warnings"
	VerificationFailed     VerificationStatus = "failed"
	VerificationSkipped    VerificationStatus = "skipped"
)

// IssueSeverity classifies a reviewer finding.
type IssueSeverity string

const (
	SeverityError      IssueSeverity = "error"
	SeverityWarning    IssueSeverity = "warning"
	SeveritySuggestion IssueSeverity = "suggestion"
)

// Issue is a single finding from the reviewer.
type Issue struct {
	Severity    IssueSeverity `json:"severity"`
	Description string        `json:"description"`
	Line        int           `json:"line,omitempty"`
	Fix         string        `json:"fix,omitempty"`
}

// Verification is the reviewer's structured assessment of a solution.
// It is transient: produced, consulted by the escalation controller, then
// discarded — only its warnings and derived status survive into the response.
type Verification struct {
	IsCorrect               bool     `json:"is_correct"`
	Issues                  []Issue  `json:"issues"`
	EdgeCasesMissing        []string `json:"edge_cases_missing"`
	OptimizationSuggestions []string `json:"optimization_suggestions"`
	Score                   int      `json:"overall_score"`
}

// Status derives the verification status from the overall score.
func (v *Verification) Status() VerificationStatus {
	switch {
	case v.Score >= 90:
		return VerificationPassed
	case v.Score >= 70:
		return VerificationPassedWarn
	default:
		return VerificationFailed
	}
}

// HasIssues reports whether the reviewer found anything actionable.
func (v *Verification) HasIssues() bool {
	return len(v.Issues) > 0
}
