package errors

import (
	"fmt"
	"strings"
)

// ErrorType categorizes engine failures per the triage error taxonomy:
// configuration errors are fatal at load time, storage failures propagate to
// the caller, internal errors are invariant violations that fail loudly.
type ErrorType int

const (
	// Config errors - missing or malformed configuration, fatal at load time
	ErrorTypeConfig ErrorType = iota
	// Validation errors - invalid input data
	ErrorTypeValidation
	// Storage errors - index or signature store unavailable
	ErrorTypeStorage
	// External errors - hosting API or other collaborator failures
	ErrorTypeExternal
	// Internal errors - unexpected internal state (programming invariant violation)
	ErrorTypeInternal
)

// Severity represents how critical an error is
type Severity int

const (
	// SeverityLow - can continue with degraded confidence
	SeverityLow Severity = iota
	// SeverityMedium - should be addressed but not fatal
	SeverityMedium
	// SeverityHigh - fails the analysis run
	SeverityHigh
	// SeverityCritical - must be addressed, stops execution
	SeverityCritical
)

// Error is a structured error with type, severity, and context.
type Error struct {
	Type     ErrorType
	Severity Severity
	Message  string
	Cause    error
	Context  map[string]any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Is matches errors by type so callers can branch on the taxonomy.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal returns true if this error should stop execution
func (e *Error) IsFatal() bool {
	return e.Severity == SeverityCritical
}

// DetailedString returns the error with type, severity, and context lines.
func (e *Error) DetailedString() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] [%s] %s\n",
		severityString(e.Severity),
		typeString(e.Type),
		e.Message))

	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("Caused by: %v\n", e.Cause))
	}

	if len(e.Context) > 0 {
		sb.WriteString("Context:\n")
		for k, v := range e.Context {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, v))
		}
	}

	return sb.String()
}

func typeString(t ErrorType) string {
	switch t {
	case ErrorTypeConfig:
		return "CONFIG"
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeStorage:
		return "STORAGE"
	case ErrorTypeExternal:
		return "EXTERNAL"
	case ErrorTypeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

func severityString(s Severity) string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// New creates a new error with the given type, severity, and message
func New(errType ErrorType, severity Severity, message string) *Error {
	return &Error{
		Type:     errType,
		Severity: severity,
		Message:  message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Type:     errType,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// Configf builds a fatal configuration error. The engine must never run
// with partial or default-guessed configuration.
func Configf(format string, args ...any) *Error {
	return New(ErrorTypeConfig, SeverityCritical, fmt.Sprintf(format, args...))
}

// Internalf builds an invariant-violation error.
func Internalf(format string, args ...any) *Error {
	return New(ErrorTypeInternal, SeverityCritical, fmt.Sprintf(format, args...))
}

// Storagef wraps a store failure that fails the analysis run.
func Storagef(err error, format string, args ...any) *Error {
	return Wrap(err, ErrorTypeStorage, SeverityHigh, fmt.Sprintf(format, args...))
}
