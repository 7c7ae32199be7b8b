package domain

import (
	"errors"
	"fmt"
)

// ConfigurationError is the only fatal error class: unknown tool name,
// missing credential, unparsable configuration. It aborts the run before any
// analysis starts.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration: %s", e.Message)
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Message)
}

// NewConfigurationError builds a ConfigurationError for the given field.
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// ToolExecutionError records one analyzer failing to run or timing out.
// The tool is excluded from findings and surfaced in the partial notice.
type ToolExecutionError struct {
	Tool Tool
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// ParseError records tool output that did not match the expected format.
// Treated as zero findings from that tool, never raised to the caller.
type ParseError struct {
	Tool Tool
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s output: %v", e.Tool, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AIBackendError records a backend failure after retry exhaustion: network
// failure, timeout, non-2xx response, or malformed body. The AI section
// degrades to empty; static findings still render.
type AIBackendError struct {
	Provider string
	Err      error
}

func (e *AIBackendError) Error() string {
	return fmt.Sprintf("ai backend %s: %v", e.Provider, e.Err)
}

func (e *AIBackendError) Unwrap() error { return e.Err }
