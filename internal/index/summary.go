package index

import (
	"time"

	"github.com/Aman-CERP/agentmemory/internal/ui"
)

// Mode selects how a run treats chunks already in the store.
type Mode string

const (
	// ModeFull reads, chunks and inserts everything. It is additive.
	ModeFull Mode = "full"
	// ModeIncremental reconciles each path against its stored fingerprint.
	ModeIncremental Mode = "incremental"
)

// SourceSummary counts the outcome of one source.
type SourceSummary struct {
	Source string `json:"source"`
	Type   string `json:"type"`
	Path   string `json:"path"`

	// Document outcomes.
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	// Empty documents had no text to chunk.
	Empty  int `json:"empty"`
	Failed int `json:"failed"`

	// Removed counts paths tombstoned because they disappeared.
	Removed       int `json:"removed"`
	Chunks        int `json:"chunks_written"`
	ChunksRemoved int `json:"chunks_removed"`
	Warnings      int `json:"warnings"`

	Errors []string `json:"errors,omitempty"`
}

// Summary is the result of one indexing run.
type Summary struct {
	AgentID  string          `json:"agent_id"`
	Mode     Mode            `json:"mode"`
	Sources  []SourceSummary `json:"sources"`
	Duration time.Duration   `json:"duration_ns"`
}

// Totals adds up every source.
func (s *Summary) Totals() SourceSummary {
	var t SourceSummary
	for _, src := range s.Sources {
		t.Added += src.Added
		t.Updated += src.Updated
		t.Unchanged += src.Unchanged
		t.Empty += src.Empty
		t.Failed += src.Failed
		t.Removed += src.Removed
		t.Chunks += src.Chunks
		t.ChunksRemoved += src.ChunksRemoved
		t.Warnings += src.Warnings
		t.Errors = append(t.Errors, src.Errors...)
	}
	return t
}

// Writes is the number of store mutations the run made.
func (s *Summary) Writes() int {
	t := s.Totals()
	return t.Added + t.Updated + t.Removed
}

// CompletionStats converts the summary for a progress renderer.
func (s *Summary) CompletionStats(model string, dims int) ui.CompletionStats {
	t := s.Totals()
	return ui.CompletionStats{
		Mode:      string(s.Mode),
		Sources:   len(s.Sources),
		Added:     t.Added,
		Updated:   t.Updated,
		Unchanged: t.Unchanged + t.Empty,
		Removed:   t.Removed,
		Failed:    t.Failed,
		Chunks:    t.Chunks,
		Warnings:  t.Warnings,
		Duration:  s.Duration,
		Embedder:  ui.EmbedderInfo{Model: model, Dimensions: dims},
	}
}
