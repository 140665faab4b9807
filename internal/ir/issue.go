package ir

import "strings"

// Severity grades an integrity issue.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// ParseSeverity maps free-form severity labels onto high, medium or low.
// Anything unrecognized is medium.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical", "error", "severe", "major":
		return SeverityHigh
	case "low", "minor", "info", "informational", "trivial":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Issue is one finding of an integrity audit.
type Issue struct {
	ProblemType string   `json:"problem_type"`
	Description string   `json:"description"`
	Elements    []string `json:"elements"`
	Severity    Severity `json:"severity"`
}
