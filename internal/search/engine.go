package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/Aman-CERP/agentmemory/internal/config"
	"github.com/Aman-CERP/agentmemory/internal/embed"
	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
	"github.com/Aman-CERP/agentmemory/internal/store"
	"github.com/Aman-CERP/agentmemory/internal/telemetry"
)

// DefaultOverfetch multiplies topK when asking the ANN index for
// neighbours, since other agents' chunks and filtered-out chunks share it.
const DefaultOverfetch = 8

// EngineConfig configures the search engine.
type EngineConfig struct {
	// MaxTopK caps topK. Zero means no cap.
	MaxTopK int
	// ANNThreshold is the candidate count above which the HNSW index is
	// consulted. Zero disables ANN.
	ANNThreshold int
	// Overfetch multiplies topK for the ANN query.
	Overfetch int
}

// EngineConfigFrom maps the search section of the configuration.
func EngineConfigFrom(cfg config.SearchConfig) EngineConfig {
	return EngineConfig{
		MaxTopK:      cfg.MaxTopK,
		ANNThreshold: cfg.ANNThreshold,
		Overfetch:    DefaultOverfetch,
	}
}

// Engine runs similarity search for one store.
type Engine struct {
	store    store.Store
	embedder embed.Embedder
	config   EngineConfig
	metrics  *telemetry.QueryMetrics
}

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithMetrics records every completed search.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates a search engine. The embedder should be the one used
// for indexing, usually wrapped in an embed.CachedEmbedder.
func NewEngine(st store.Store, embedder embed.Embedder, cfg EngineConfig, opts ...EngineOption) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Overfetch <= 0 {
		cfg.Overfetch = DefaultOverfetch
	}
	e := &Engine{store: st, embedder: embedder, config: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Metrics returns the telemetry collector, nil when none was set.
func (e *Engine) Metrics() *telemetry.QueryMetrics {
	return e.metrics
}

// Search returns at most topK of the agent's chunks matching f, ordered
// by cosine similarity to query. Equal scores are ordered by source date
// (newest first, dated before undated), then creation time (newest
// first), then id, so repeated calls return identical order.
func (e *Engine) Search(ctx context.Context, query, agentID string, topK int, f Filters) ([]Result, error) {
	start := time.Now()

	if topK <= 0 {
		return nil, amerrors.New(amerrors.ErrCodeInvalidTopK,
			fmt.Sprintf("top_k must be positive, got %d", topK), nil)
	}
	if e.config.MaxTopK > 0 && topK > e.config.MaxTopK {
		topK = e.config.MaxTopK
	}
	if strings.TrimSpace(query) == "" {
		return nil, amerrors.New(amerrors.ErrCodeInvalidInput, "query is required", nil)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return nil, amerrors.New(amerrors.ErrCodeInvalidInput,
			fmt.Sprintf("date_from %s is after date_to %s", f.From.Format(time.DateOnly), f.To.Format(time.DateOnly)), nil)
	}
	if agentID = strings.TrimSpace(agentID); agentID == "" {
		agentID = config.DefaultAgentID
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	_, dims, err := e.store.Model(ctx)
	if err != nil {
		return nil, err
	}
	if dims == 0 {
		// Nothing was ever indexed.
		e.record(query, agentID, telemetry.StrategyEmpty, 0, 0, vec, start)
		return []Result{}, nil
	}
	if len(vec) != dims {
		return nil, amerrors.New(amerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("query embedding has %d dimensions, store has %d", len(vec), dims), nil).
			WithSuggestion("search with the embedding model the store was indexed with")
	}

	filter := f.storeFilter()
	candidates, strategy, err := e.candidates(ctx, agentID, filter, vec, topK)
	if err != nil {
		return nil, err
	}

	results := rank(candidates, vec, f.MinSimilarity, topK)

	e.record(query, agentID, strategy, len(candidates), len(results), vec, start)
	slog.Debug("search_complete",
		slog.String("agent_id", agentID),
		slog.String("strategy", string(strategy)),
		slog.Int("candidates", len(candidates)),
		slog.Int("results", len(results)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return results, nil
}

// candidates applies the scalar filters in the store. Above the ANN
// threshold it scores only the HNSW neighbours, falling back to the full
// filtered set when they yield fewer than topK chunks.
func (e *Engine) candidates(ctx context.Context, agentID string, filter store.Filter, vec []float32, topK int) ([]*store.Chunk, telemetry.Strategy, error) {
	if e.config.ANNThreshold > 0 {
		n, err := e.store.CountCandidates(ctx, agentID, filter)
		if err != nil {
			return nil, "", err
		}
		if n == 0 {
			return nil, telemetry.StrategyEmpty, nil
		}
		if n > e.config.ANNThreshold {
			if ids, ok := e.store.NearestIDs(vec, topK*e.config.Overfetch); ok {
				annFilter := filter
				annFilter.IDs = ids
				chunks, err := e.store.Candidates(ctx, agentID, annFilter)
				if err != nil {
					return nil, "", err
				}
				if len(chunks) >= topK {
					return chunks, telemetry.StrategyANN, nil
				}
				slog.Debug("ann_fallback", slog.Int("neighbours", len(ids)), slog.Int("matched", len(chunks)))
			}
		}
	}

	chunks, err := e.store.Candidates(ctx, agentID, filter)
	if err != nil {
		return nil, "", err
	}
	if len(chunks) == 0 {
		return nil, telemetry.StrategyEmpty, nil
	}
	return chunks, telemetry.StrategyExact, nil
}

type scored struct {
	chunk *store.Chunk
	score float64
}

// rank scores, filters, orders and truncates candidates.
func rank(candidates []*store.Chunk, query []float32, minSimilarity float64, topK int) []Result {
	hits := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) != len(query) {
			slog.Warn("chunk_dimension_mismatch", slog.String("id", c.ID), slog.Int("dimensions", len(c.Embedding)))
			continue
		}
		s := Cosine(query, c.Embedding)
		if minSimilarity > 0 && s < minSimilarity {
			continue
		}
		hits = append(hits, scored{chunk: c, score: s})
	}

	slices.SortFunc(hits, compareHits)
	if len(hits) > topK {
		hits = hits[:topK]
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = newResult(h.chunk, h.score)
	}
	return results
}

func compareHits(a, b scored) int {
	if c := cmp.Compare(b.score, a.score); c != 0 {
		return c
	}
	ad, bd := a.chunk.SourceDate, b.chunk.SourceDate
	switch {
	case !ad.IsZero() && bd.IsZero():
		return -1
	case ad.IsZero() && !bd.IsZero():
		return 1
	}
	if c := bd.Compare(ad); c != 0 {
		return c
	}
	if c := b.chunk.CreatedAt.Compare(a.chunk.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.chunk.ID, b.chunk.ID)
}

// Cosine returns the cosine similarity of a and b, 0 when either has no
// magnitude. The vectors must have equal length.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (e *Engine) record(query, agentID string, strategy telemetry.Strategy, candidates, results int, vec []float32, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		AgentID:     agentID,
		Strategy:    strategy,
		Candidates:  candidates,
		ResultCount: results,
		Latency:     time.Since(start),
		Embedding:   vec,
	})
}
