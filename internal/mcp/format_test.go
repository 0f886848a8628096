package mcp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/agentmemory/internal/search"
)

func TestFormatSearchResults_Empty(t *testing.T) {
	out := FormatSearchResults("dentist", nil)

	assert.Equal(t, `No memories found for "dentist"`, out)
}

func TestFormatSearchResults_RendersMetadata(t *testing.T) {
	// Given: two results, one dated and tagged
	results := []search.Result{
		{
			ID:         "a1",
			Content:    "Dentist appointment on Friday",
			Source:     "notes",
			SourcePath: "/notes/2024-03-01.md",
			SourceDate: "2024-03-01",
			Importance: "high",
			Tags:       []string{"health", "todo"},
			Similarity: 0.91234,
		},
		{ID: "b2", Content: "Groceries", Source: "manual", Importance: "normal", Similarity: 0.5},
	}

	// When: formatting
	out := FormatSearchResults("dentist", results)

	// Then: heading, count and per-result metadata are present
	assert.Contains(t, out, `## Memories for "dentist"`)
	assert.Contains(t, out, "Found 2 results")
	assert.Contains(t, out, "### 1. notes (2024-03-01) - similarity 0.912")
	assert.Contains(t, out, "**Path:** `/notes/2024-03-01.md`")
	assert.Contains(t, out, "**Tags:** health, todo")
	assert.Contains(t, out, "**Importance:** high")
	assert.Contains(t, out, "### 2. manual - similarity 0.500")
	assert.NotContains(t, out, "**Importance:** normal")
	assert.Less(t, strings.Index(out, "a1"), strings.Index(out, "b2"))
}

func TestFormatSearchResults_Singular(t *testing.T) {
	out := FormatSearchResults("q", []search.Result{{ID: "x", Content: "c", Source: "s"}})

	assert.Contains(t, out, "Found 1 result\n")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	// Multi-byte runes are never split.
	assert.Equal(t, "héé...", truncate("hééllo", 3))
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{0, 5},
		{-3, 1},
		{7, 7},
		{500, 50},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampLimit(tt.limit, 5, 1, 50), "limit %d", tt.limit)
	}
}

func TestToResultOutput_NilTags(t *testing.T) {
	out := toResultOutput(search.Result{ID: "x"})

	assert.NotNil(t, out.Tags)
	assert.Empty(t, out.Tags)
}
