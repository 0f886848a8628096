package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
	"github.com/Aman-CERP/agentmemory/internal/store"
)

func TestMapError_NilError(t *testing.T) {
	// Given: nil error
	var err error

	// When: mapping the error
	result := MapError(err)

	// Then: returns nil
	assert.Nil(t, result)
}

func TestMapError_ContextErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"deadline", context.DeadlineExceeded, "timed out"},
		{"canceled", context.Canceled, "canceled"},
		{"wrapped deadline", fmt.Errorf("embed query: %w", context.DeadlineExceeded), "timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapError(tt.err)

			require.NotNil(t, result)
			assert.Equal(t, ErrCodeTimeout, result.Code)
			assert.Contains(t, result.Message, tt.message)
		})
	}
}

func TestMapError_MemoryErrorCategories(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"config", amerrors.New(amerrors.ErrCodeInvalidTopK, "top_k must be positive", nil), ErrCodeInvalidParams},
		{"parse", amerrors.ParseError("unreadable", nil), ErrCodeInvalidParams},
		{"source not found", amerrors.New(amerrors.ErrCodeSourceNotFound, "no such file", nil), ErrCodeNotFound},
		{"chunk not found", store.ErrNotFound, ErrCodeNotFound},
		{"provider", amerrors.ProviderError("bad request", nil), ErrCodeProviderFailed},
		{"provider timeout", amerrors.New(amerrors.ErrCodeProviderTimeout, "slow", nil), ErrCodeTimeout},
		{"store", amerrors.StoreError("disk full", nil), ErrCodeStoreUnavailable},
		{"internal", amerrors.InternalError("boom", nil), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapError(fmt.Errorf("wrapped: %w", tt.err))

			require.NotNil(t, result)
			assert.Equal(t, tt.code, result.Code)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	// Given: a memory error with a suggestion
	err := amerrors.New(amerrors.ErrCodeDimensionMismatch, "dimension mismatch", nil).
		WithSuggestion("Re-index with the original model.")

	// When: mapping the error
	result := MapError(err)

	// Then: the message carries both parts
	require.NotNil(t, result)
	assert.Equal(t, "dimension mismatch Re-index with the original model.", result.Message)
}

func TestMapError_PassesThroughMCPError(t *testing.T) {
	// Given: an error that is already an MCP error
	orig := NewInvalidParamsError("query is required")

	// When: mapping the error
	result := MapError(orig)

	// Then: it is returned unchanged
	assert.Same(t, orig, result)
}

func TestMapError_UnknownError(t *testing.T) {
	result := MapError(errors.New("something odd"))

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
	assert.Equal(t, "Internal server error.", result.Message)
}

func TestMapError_ToolNotFound(t *testing.T) {
	result := MapError(ErrToolNotFound)

	require.NotNil(t, result)
	assert.Equal(t, ErrCodeMethodNotFound, result.Code)
}

func TestMCPError_Error(t *testing.T) {
	err := &MCPError{Code: ErrCodeInvalidParams, Message: "bad"}
	assert.Equal(t, "MCP error -32602: bad", err.Error())

	nf := NewMethodNotFoundError("memory_forget")
	assert.Equal(t, ErrCodeMethodNotFound, nf.Code)
	assert.Contains(t, nf.Message, "memory_forget")
}
