package errors

import (
	stderrors "errors"
	"fmt"
)

// MemoryError is the structured error type for agentmemory.
// It carries enough context for logging, CLI output and HTTP/MCP mapping.
type MemoryError struct {
	// Code is the unique error code (e.g., "ERR_103_INVALID_CHUNKING").
	Code string

	// Message is the human-readable error message.
	Message string

	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *MemoryError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *MemoryError) Unwrap() error {
	return e.Cause
}

// Is matches another MemoryError by code, so errors.Is works against
// sentinel values built with New.
func (e *MemoryError) Is(target error) bool {
	if t, ok := target.(*MemoryError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *MemoryError) WithDetail(key, value string) *MemoryError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *MemoryError) WithSuggestion(suggestion string) *MemoryError {
	e.Suggestion = suggestion
	return e
}

// New creates a new MemoryError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *MemoryError {
	return &MemoryError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a MemoryError from an existing error.
func Wrap(code string, err error) *MemoryError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration error. Config errors are fatal.
func ConfigError(message string, cause error) *MemoryError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ParseError creates an error for a source document that could not be parsed.
func ParseError(message string, cause error) *MemoryError {
	return New(ErrCodeFileUnreadable, message, cause)
}

// ProviderError creates a non-retryable embedding provider error.
func ProviderError(message string, cause error) *MemoryError {
	return New(ErrCodeProviderRejected, message, cause)
}

// StoreError creates a store error.
func StoreError(message string, cause error) *MemoryError {
	return New(ErrCodeStoreUnavailable, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *MemoryError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first MemoryError in err's chain.
func As(err error) (*MemoryError, bool) {
	var me *MemoryError
	if stderrors.As(err, &me) {
		return me, true
	}
	return nil, false
}

// IsRetryable reports whether err (or an error it wraps) is retryable.
func IsRetryable(err error) bool {
	me, ok := As(err)
	return ok && me.Retryable
}

// IsFatal reports whether err has fatal severity.
func IsFatal(err error) bool {
	me, ok := As(err)
	return ok && me.Severity == SeverityFatal
}

// IsConfig reports whether err is a configuration error.
func IsConfig(err error) bool { return GetCategory(err) == CategoryConfig }

// IsParse reports whether err is a parse error.
func IsParse(err error) bool { return GetCategory(err) == CategoryParse }

// IsProvider reports whether err is an embedding provider error.
func IsProvider(err error) bool { return GetCategory(err) == CategoryProvider }

// IsStore reports whether err is a store error.
func IsStore(err error) bool { return GetCategory(err) == CategoryStore }

// GetCode extracts the error code from a MemoryError.
// Returns empty string if err carries none.
func GetCode(err error) string {
	if me, ok := As(err); ok {
		return me.Code
	}
	return ""
}

// GetCategory extracts the category from a MemoryError.
// Returns empty string if err carries none.
func GetCategory(err error) Category {
	if me, ok := As(err); ok {
		return me.Category
	}
	return ""
}
