// Package search answers natural-language queries against the store by
// cosine similarity over the agent's filtered chunks.
package search

import (
	"time"

	"github.com/Aman-CERP/agentmemory/internal/store"
)

// Filters narrow the candidate set. Every set field must match.
type Filters struct {
	Source string
	// Tags must all be present on a chunk.
	Tags []string
	// From and To bound source_date inclusively. Undated chunks never
	// match a bound.
	From time.Time
	To   time.Time
	// Importance matches exactly.
	Importance string
	// MinSimilarity drops results scoring below it. Zero keeps all.
	MinSimilarity float64
}

func (f Filters) storeFilter() store.Filter {
	return store.Filter{
		Source:     f.Source,
		Tags:       f.Tags,
		From:       f.From,
		To:         f.To,
		Importance: f.Importance,
	}
}

// Result is one ranked chunk.
type Result struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	SourcePath string    `json:"source_path,omitempty"`
	SourceDate string    `json:"source_date,omitempty"` // YYYY-MM-DD
	Importance string    `json:"importance"`
	Tags       []string  `json:"tags"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}

func newResult(c *store.Chunk, similarity float64) Result {
	r := Result{
		ID:         c.ID,
		AgentID:    c.AgentID,
		Content:    c.Content,
		Source:     c.Source,
		SourcePath: c.SourcePath,
		Importance: c.Importance,
		Tags:       c.Tags,
		Similarity: similarity,
		CreatedAt:  c.CreatedAt,
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if !c.SourceDate.IsZero() {
		r.SourceDate = c.SourceDate.Format(time.DateOnly)
	}
	return r
}
