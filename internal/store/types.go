// Package store persists chunks and their embeddings in SQLite and keeps
// an optional in-memory HNSW index over the vectors.
package store

import (
	"context"
	"time"

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
)

// DefaultImportance is stored when a chunk has no importance set.
const DefaultImportance = "normal"

// Meta keys recorded on first write.
const (
	MetaKeyModel      = "embedding_model"
	MetaKeyDimensions = "embedding_dimensions"
)

// ErrNotFound is returned when deleting an id that does not exist.
var ErrNotFound = amerrors.New(amerrors.ErrCodeChunkNotFound, "chunk not found", nil)

// Chunk is one stored, embedded unit of text.
type Chunk struct {
	ID         string
	AgentID    string
	Content    string
	Source     string
	SourcePath string    // empty when the chunk did not come from a file
	SourceDate time.Time // zero when unknown
	Importance string
	Tags       []string
	Embedding  []float32

	// ChunkIndex is the window position within its document.
	ChunkIndex int
	// Fingerprint of the source document at index time.
	SourceModTime time.Time
	SourceHash    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter restricts candidate chunks. Every set field must match.
type Filter struct {
	Source string
	// Tags must all be present on the chunk.
	Tags []string
	// From and To bound source_date inclusively; undated chunks never match a bound.
	From       time.Time
	To         time.Time
	Importance string
	// IDs restricts the result to these ids when non-nil.
	IDs []string
}

// PathState is the fingerprint recorded for one source path.
type PathState struct {
	Path     string
	ModTime  time.Time
	Hash     string
	ChunkIDs []string
}

// Stats aggregates the store contents.
type Stats struct {
	Total      int            `json:"total_chunks"`
	ByAgent    map[string]int `json:"by_agent"`
	BySource   map[string]int `json:"by_source"`
	Earliest   string         `json:"earliest_date,omitempty"`
	Latest     string         `json:"latest_date,omitempty"`
	Model      string         `json:"embedding_model,omitempty"`
	Dimensions int            `json:"embedding_dimensions,omitempty"`
}

// Store is the persistence boundary used by indexing and search.
type Store interface {
	// EnsureModel records model and dimension on first use and rejects
	// a different pair afterwards.
	EnsureModel(ctx context.Context, model string, dims int) error
	// Model returns the recorded model and dimension, zero values when unset.
	Model(ctx context.Context) (string, int, error)

	// Insert writes chunks in one transaction.
	Insert(ctx context.Context, chunks []*Chunk) error
	// ReplacePath deletes the chunks of (agent, source, path) and inserts
	// chunks in one transaction. It returns the removed ids.
	ReplacePath(ctx context.Context, agentID, source, path string, chunks []*Chunk) ([]string, error)
	// DeletePath removes every chunk of (agent, source, path).
	DeletePath(ctx context.Context, agentID, source, path string) (int, error)
	// DeleteBySource removes every chunk of (agent, source).
	DeleteBySource(ctx context.Context, agentID, source string) (int, error)
	// Delete removes one chunk; unknown ids return ErrNotFound.
	Delete(ctx context.Context, id string) error

	// PathStates derives the per-path fingerprints of (agent, source).
	PathStates(ctx context.Context, agentID, source string) (map[string]PathState, error)

	// Candidates returns the agent's chunks matching f, embeddings included.
	Candidates(ctx context.Context, agentID string, f Filter) ([]*Chunk, error)
	// CountCandidates counts what Candidates would return.
	CountCandidates(ctx context.Context, agentID string, f Filter) (int, error)
	// NearestIDs asks the ANN index for up to k ids near query. ok is
	// false when no ANN index is kept.
	NearestIDs(query []float32, k int) (ids []string, ok bool)

	Stats(ctx context.Context) (*Stats, error)
	Agents(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)

	Close() error
}
