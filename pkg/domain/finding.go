package domain

import "strings"

// Severity classifies a static-check finding.
type Severity string

const (
	// SeverityBlocking findings (undefined names, syntax errors) fail the
	// verification context.
	SeverityBlocking Severity = "blocking"
	// SeverityAdvisory findings (style, complexity) are recorded but never
	// fail a context, regardless of count.
	SeverityAdvisory Severity = "advisory"
)

// Finding is one static-check result, tagged by severity.
type Finding struct {
	Code     string   `json:"code"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// CheckPolicy is the rule-severity split handed to the static-check
// collaborator: which finding codes block and which are advisory.
type CheckPolicy struct {
	BlockingCodes []string `json:"blocking_codes" yaml:"blocking_codes"`
	AdvisoryCodes []string `json:"advisory_codes" yaml:"advisory_codes"`
}

// Classify maps a finding code to its severity under this policy. Codes
// match on prefix (e.g. "E9" covers "E901"), the way check tools group
// their rule families. Unlisted codes default to advisory so a new style
// rule can never break the build by accident.
func (p CheckPolicy) Classify(code string) Severity {
	for _, b := range p.BlockingCodes {
		if strings.HasPrefix(code, b) {
			return SeverityBlocking
		}
	}
	return SeverityAdvisory
}
