package domain

import "fmt"

// Severity is the common three-level scale every tool's native scale
// collapses into. The ordering is significant: Info < Warning < Error.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the lowercase name used in configuration and rendering.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a configuration string onto the common scale.
func ParseSeverity(value string) (Severity, error) {
	switch value {
	case "info":
		return SeverityInfo, nil
	case "warning":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", value)
	}
}

// AtLeast reports whether s meets the given threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s >= threshold
}
