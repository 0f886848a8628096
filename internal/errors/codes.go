// Package errors provides structured error handling for agentmemory.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Parse errors (source documents)
//   - 3XX: Embedding provider errors
//   - 4XX: Store errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates invalid configuration or arguments.
	CategoryConfig Category = "CONFIG"
	// CategoryParse indicates a source document that could not be read or parsed.
	CategoryParse Category = "PARSE"
	// CategoryProvider indicates an embedding provider failure.
	CategoryProvider Category = "PROVIDER"
	// CategoryStore indicates a persistence failure.
	CategoryStore Category = "STORE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound    = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "ERR_102_CONFIG_INVALID"
	ErrCodeInvalidChunking   = "ERR_103_INVALID_CHUNKING"
	ErrCodeDimensionMismatch = "ERR_104_DIMENSION_MISMATCH"
	ErrCodeSourceNotFound    = "ERR_105_SOURCE_NOT_FOUND"
	ErrCodeInvalidTopK       = "ERR_106_INVALID_TOP_K"
	ErrCodeUnknownSourceType = "ERR_107_UNKNOWN_SOURCE_TYPE"
	ErrCodeInvalidInput      = "ERR_108_INVALID_INPUT"

	// Parse errors (200-299)
	ErrCodeMalformedLine  = "ERR_201_MALFORMED_LINE"
	ErrCodeFileUnreadable = "ERR_202_FILE_UNREADABLE"

	// Provider errors (300-399)
	ErrCodeProviderTimeout     = "ERR_301_PROVIDER_TIMEOUT"
	ErrCodeProviderUnavailable = "ERR_302_PROVIDER_UNAVAILABLE"
	ErrCodeProviderRateLimited = "ERR_303_PROVIDER_RATE_LIMITED"
	ErrCodeProviderRejected    = "ERR_304_PROVIDER_REJECTED"
	ErrCodeInvalidEmbedding    = "ERR_305_INVALID_EMBEDDING"
	ErrCodeProviderCircuitOpen = "ERR_306_PROVIDER_CIRCUIT_OPEN"

	// Store errors (400-499)
	ErrCodeStoreUnavailable  = "ERR_401_STORE_UNAVAILABLE"
	ErrCodeStoreTransaction  = "ERR_402_STORE_TRANSACTION"
	ErrCodeChunkNotFound     = "ERR_403_CHUNK_NOT_FOUND"
	ErrCodeStoreModelChanged = "ERR_404_STORE_MODEL_CHANGED"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryParse
	case '3':
		return CategoryProvider
	case '4':
		return CategoryStore
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	if categoryFromCode(code) == CategoryConfig {
		return SeverityFatal
	}
	switch code {
	case ErrCodeProviderCircuitOpen, ErrCodeStoreModelChanged:
		return SeverityFatal
	case ErrCodeMalformedLine:
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeProviderTimeout, ErrCodeProviderUnavailable, ErrCodeProviderRateLimited:
		return true
	default:
		return false
	}
}
