package models

import "strings"

// Severity captures impact levels.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rank orders severities so that critical is the largest value.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ParseSeverity maps free-form input onto a known level, defaulting to info.
func ParseSeverity(v string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(v))) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	case SeverityLow:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// DefaultSeverity returns the severity an error type carries when no generator overrides it.
func DefaultSeverity(t ErrorType) Severity {
	switch t {
	case ErrorTooManyConnections, ErrorDiskFull:
		return SeverityCritical
	case ErrorConnection, ErrorDeadlock, ErrorAccessDenied:
		return SeverityHigh
	case ErrorTableNotFound, ErrorLockTimeout, ErrorTimeout, ErrorSlowQuery, ErrorColumnNotFound, ErrorSyntax:
		return SeverityMedium
	case ErrorDuplicateKey, ErrorFunction:
		return SeverityLow
	default:
		return SeverityMedium
	}
}
