package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TS01: Error wrapping preserves original error
func TestMemoryError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("connection refused")

	// When: wrapping with MemoryError
	memErr := New(ErrCodeStoreUnavailable, "open store", originalErr)

	// Then: unwrapping returns original error
	require.NotNil(t, memErr)
	assert.Equal(t, originalErr, errors.Unwrap(memErr))
	assert.True(t, errors.Is(memErr, originalErr))
}

func TestMemoryError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeInvalidChunking,
			message:  "overlap must be smaller than chunk size",
			expected: "[ERR_103_INVALID_CHUNKING] overlap must be smaller than chunk size",
		},
		{
			name:     "parse error",
			code:     ErrCodeMalformedLine,
			message:  "line 3: invalid json",
			expected: "[ERR_201_MALFORMED_LINE] line 3: invalid json",
		},
		{
			name:     "provider error",
			code:     ErrCodeProviderTimeout,
			message:  "embedding request timed out",
			expected: "[ERR_301_PROVIDER_TIMEOUT] embedding request timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestMemoryError_Is_MatchesByCode(t *testing.T) {
	// Given: two errors with same code
	err1 := New(ErrCodeChunkNotFound, "chunk a not found", nil)
	err2 := New(ErrCodeChunkNotFound, "chunk b not found", nil)

	// Then: they match by code, but not across codes
	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, New(ErrCodeConfigInvalid, "x", nil)))
}

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeInvalidTopK, CategoryConfig, SeverityFatal},
		{ErrCodeDimensionMismatch, CategoryConfig, SeverityFatal},
		{ErrCodeMalformedLine, CategoryParse, SeverityWarning},
		{ErrCodeFileUnreadable, CategoryParse, SeverityError},
		{ErrCodeProviderUnavailable, CategoryProvider, SeverityWarning},
		{ErrCodeProviderRejected, CategoryProvider, SeverityError},
		{ErrCodeProviderCircuitOpen, CategoryProvider, SeverityFatal},
		{ErrCodeStoreTransaction, CategoryStore, SeverityError},
		{ErrCodeInternal, CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
		})
	}
}

func TestPredicates_SeeThroughWrapping(t *testing.T) {
	// Given: taxonomy errors wrapped with fmt.Errorf
	cfg := fmt.Errorf("load: %w", ConfigError("bad overlap", nil))
	prov := fmt.Errorf("embed: %w", New(ErrCodeProviderTimeout, "timeout", nil))
	st := fmt.Errorf("write: %w", StoreError("db closed", nil))
	parse := fmt.Errorf("read: %w", ParseError("unreadable", nil))

	// Then: predicates still classify them
	assert.True(t, IsConfig(cfg))
	assert.True(t, IsFatal(cfg))
	assert.True(t, IsProvider(prov))
	assert.True(t, IsRetryable(prov))
	assert.True(t, IsStore(st))
	assert.True(t, IsParse(parse))
	assert.False(t, IsRetryable(st))
	assert.Equal(t, ErrCodeProviderTimeout, GetCode(prov))
}

func TestPredicates_PlainErrors(t *testing.T) {
	err := errors.New("plain")

	assert.False(t, IsRetryable(err))
	assert.False(t, IsFatal(err))
	assert.False(t, IsConfig(err))
	assert.Empty(t, GetCode(err))
	assert.Empty(t, GetCategory(err))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestMemoryError_WithDetailAndSuggestion(t *testing.T) {
	err := ConfigError("source path missing", nil).
		WithDetail("path", "/tmp/notes").
		WithSuggestion("check sources[].path in config.yaml")

	assert.Equal(t, "/tmp/notes", err.Details["path"])
	assert.Equal(t, "check sources[].path in config.yaml", err.Suggestion)
}
