package search

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/agentmemory/internal/embed"
	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
	"github.com/Aman-CERP/agentmemory/internal/store"
	"github.com/Aman-CERP/agentmemory/internal/telemetry"
)

// fixedEmbedder returns preset vectors for known queries.
type fixedEmbedder struct {
	vectors map[string][]float32
	dims    int
	calls   int
}

var _ embed.Embedder = (*fixedEmbedder)(nil)

func newFixedEmbedder() *fixedEmbedder {
	return &fixedEmbedder{
		dims: 3,
		vectors: map[string][]float32{
			"x axis": {1, 0, 0},
			"y axis": {0, 1, 0},
			"wide":   {1, 0, 0, 0},
		},
	}
}

func (e *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return nil, amerrors.ProviderError("unknown query "+text, nil)
}

func (e *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *fixedEmbedder) Dimensions() int                { return e.dims }
func (e *fixedEmbedder) ModelName() string              { return "fixed" }
func (e *fixedEmbedder) Available(context.Context) bool { return true }
func (e *fixedEmbedder) Close() error                   { return nil }

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func day(s string) time.Time {
	d, _ := time.Parse(time.DateOnly, s)
	return d
}

type chunkSpec struct {
	id         string
	agent      string
	source     string
	date       string
	importance string
	tags       []string
	vec        []float32
	created    time.Duration
}

func openStore(t *testing.T, ann bool) *store.SQLiteStore {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "memory.db"), store.Options{ANN: ann})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.EnsureModel(context.Background(), "fixed", 3))
	return st
}

func seed(t *testing.T, st store.Store, specs ...chunkSpec) {
	t.Helper()
	chunks := make([]*store.Chunk, len(specs))
	for i, s := range specs {
		c := &store.Chunk{
			ID:         s.id,
			AgentID:    s.agent,
			Content:    "content of " + s.id,
			Source:     s.source,
			Importance: s.importance,
			Tags:       s.tags,
			Embedding:  s.vec,
			CreatedAt:  baseTime.Add(s.created),
			UpdatedAt:  baseTime.Add(s.created),
		}
		if c.AgentID == "" {
			c.AgentID = "a"
		}
		if c.Source == "" {
			c.Source = "notes"
		}
		if s.date != "" {
			c.SourceDate = day(s.date)
		}
		chunks[i] = c
	}
	require.NoError(t, st.Insert(context.Background(), chunks))
}

func newEngine(t *testing.T, st store.Store, cfg EngineConfig, opts ...EngineOption) *Engine {
	t.Helper()
	e, err := NewEngine(st, newFixedEmbedder(), cfg, opts...)
	require.NoError(t, err)
	return e
}

func resultIDs(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

// unit returns a unit vector at angle deg from the x axis.
func unit(deg float64) []float32 {
	r := deg * math.Pi / 180
	return []float32{float32(math.Cos(r)), float32(math.Sin(r)), 0}
}

// =============================================================================
// Construction and validation
// =============================================================================

func TestNewEngine_RequiresDependencies(t *testing.T) {
	_, err := NewEngine(nil, newFixedEmbedder(), EngineConfig{})
	assert.Error(t, err)
	_, err = NewEngine(openStore(t, false), nil, EngineConfig{})
	assert.Error(t, err)
}

func TestSearch_InvalidTopK(t *testing.T) {
	e := newEngine(t, openStore(t, false), EngineConfig{})

	for _, k := range []int{0, -1} {
		_, err := e.Search(context.Background(), "x axis", "a", k, Filters{})
		require.Error(t, err)
		assert.Equal(t, amerrors.ErrCodeInvalidTopK, amerrors.GetCode(err))
		assert.True(t, amerrors.IsConfig(err))
	}
}

func TestSearch_RejectsBadInput(t *testing.T) {
	e := newEngine(t, openStore(t, false), EngineConfig{})

	_, err := e.Search(context.Background(), "  ", "a", 5, Filters{})
	assert.Equal(t, amerrors.ErrCodeInvalidInput, amerrors.GetCode(err))

	_, err = e.Search(context.Background(), "x axis", "a", 5, Filters{From: day("2026-02-01"), To: day("2026-01-01")})
	assert.Equal(t, amerrors.ErrCodeInvalidInput, amerrors.GetCode(err))
}

func TestSearch_DimensionMismatch(t *testing.T) {
	st := openStore(t, false)
	seed(t, st, chunkSpec{id: "c1", vec: unit(0)})
	e := newEngine(t, st, EngineConfig{})

	// When: the query vector has 4 dimensions against a 3-dimension store
	_, err := e.Search(context.Background(), "wide", "a", 5, Filters{})

	require.Error(t, err)
	assert.Equal(t, amerrors.ErrCodeDimensionMismatch, amerrors.GetCode(err))
	assert.True(t, amerrors.IsConfig(err))
}

func TestSearch_ProviderErrorIsReturned(t *testing.T) {
	e := newEngine(t, openStore(t, false), EngineConfig{})

	_, err := e.Search(context.Background(), "unknown", "a", 5, Filters{})

	assert.True(t, amerrors.IsProvider(err))
}

func TestSearch_EmptyStore(t *testing.T) {
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "m.db"), store.Options{})
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	e := newEngine(t, st, EngineConfig{})

	results, err := e.Search(context.Background(), "x axis", "a", 5, Filters{})

	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

// =============================================================================
// Ranking
// =============================================================================

// TS01: results ordered by cosine similarity, truncated to topK
func TestSearch_OrdersBySimilarity(t *testing.T) {
	st := openStore(t, false)
	seed(t, st,
		chunkSpec{id: "far", vec: unit(80)},
		chunkSpec{id: "near", vec: unit(10)},
		chunkSpec{id: "exact", vec: []float32{2, 0, 0}},
		chunkSpec{id: "mid", vec: unit(45)},
	)
	e := newEngine(t, st, EngineConfig{})

	results, err := e.Search(context.Background(), "x axis", "a", 3, Filters{})

	require.NoError(t, err)
	assert.Equal(t, []string{"exact", "near", "mid"}, resultIDs(results))
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.InDelta(t, math.Cos(10*math.Pi/180), results[1].Similarity, 1e-6)
	assert.Equal(t, "a", results[0].AgentID)
	assert.Equal(t, "content of exact", results[0].Content)
}

// TS02: ties broken by date, creation time, then id
func TestSearch_TieBreaking(t *testing.T) {
	st := openStore(t, false)
	v := unit(0)
	seed(t, st,
		chunkSpec{id: "undated-new", vec: v, created: 3 * time.Hour},
		chunkSpec{id: "old-date", date: "2026-01-01", vec: v},
		chunkSpec{id: "new-date", date: "2026-03-01", vec: v},
		chunkSpec{id: "same-date-later", date: "2026-02-01", vec: v, created: time.Hour},
		chunkSpec{id: "same-date-b", date: "2026-02-01", vec: v},
		chunkSpec{id: "same-date-a", date: "2026-02-01", vec: v},
		chunkSpec{id: "undated-old", vec: v},
	)
	e := newEngine(t, st, EngineConfig{})

	results, err := e.Search(context.Background(), "x axis", "a", 10, Filters{})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"new-date",
		"same-date-later",
		"same-date-a",
		"same-date-b",
		"old-date",
		"undated-new",
		"undated-old",
	}, resultIDs(results))
	assert.Equal(t, "2026-03-01", results[0].SourceDate)
	assert.Empty(t, results[6].SourceDate)
}

func TestSearch_Deterministic(t *testing.T) {
	st := openStore(t, false)
	var specs []chunkSpec
	for i := range 30 {
		specs = append(specs, chunkSpec{id: fmt.Sprintf("c%02d", i), vec: unit(float64(i % 5 * 10)), date: fmt.Sprintf("2026-01-%02d", i%3+1)})
	}
	seed(t, st, specs...)
	e := newEngine(t, st, EngineConfig{})

	first, err := e.Search(context.Background(), "x axis", "a", 10, Filters{})
	require.NoError(t, err)
	for range 5 {
		again, err := e.Search(context.Background(), "x axis", "a", 10, Filters{})
		require.NoError(t, err)
		assert.Equal(t, resultIDs(first), resultIDs(again))
	}
}

// TS03: topK larger than the candidate set returns every candidate
func TestSearch_FewerCandidatesThanTopK(t *testing.T) {
	st := openStore(t, false)
	seed(t, st,
		chunkSpec{id: "c1", vec: unit(0)},
		chunkSpec{id: "c2", vec: unit(30)},
		chunkSpec{id: "c3", vec: unit(60)},
		chunkSpec{id: "other", agent: "b", vec: unit(0)},
	)
	e := newEngine(t, st, EngineConfig{})

	results, err := e.Search(context.Background(), "x axis", "a", 5, Filters{})

	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearch_MaxTopKCaps(t *testing.T) {
	st := openStore(t, false)
	seed(t, st,
		chunkSpec{id: "c1", vec: unit(0)},
		chunkSpec{id: "c2", vec: unit(30)},
		chunkSpec{id: "c3", vec: unit(60)},
	)
	e := newEngine(t, st, EngineConfig{MaxTopK: 2})

	results, err := e.Search(context.Background(), "x axis", "a", 50, Filters{})

	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_MinSimilarity(t *testing.T) {
	st := openStore(t, false)
	seed(t, st,
		chunkSpec{id: "close", vec: unit(10)},
		chunkSpec{id: "far", vec: unit(85)},
	)
	e := newEngine(t, st, EngineConfig{})

	results, err := e.Search(context.Background(), "x axis", "a", 5, Filters{MinSimilarity: 0.5})

	require.NoError(t, err)
	assert.Equal(t, []string{"close"}, resultIDs(results))
}

// =============================================================================
// Filters
// =============================================================================

// TS04: filters combine with AND and never leak a chunk missing a property
func TestSearch_FilterConjunction(t *testing.T) {
	st := openStore(t, false)
	seed(t, st,
		chunkSpec{id: "match", source: "notes", date: "2026-02-10", importance: "high", tags: []string{"work", "q1"}, vec: unit(40)},
		chunkSpec{id: "wrong-source", source: "chat", date: "2026-02-10", importance: "high", tags: []string{"work", "q1"}, vec: unit(0)},
		chunkSpec{id: "missing-tag", source: "notes", date: "2026-02-10", importance: "high", tags: []string{"work"}, vec: unit(0)},
		chunkSpec{id: "too-early", source: "notes", date: "2026-01-31", importance: "high", tags: []string{"work", "q1"}, vec: unit(0)},
		chunkSpec{id: "too-late", source: "notes", date: "2026-03-01", importance: "high", tags: []string{"work", "q1"}, vec: unit(0)},
		chunkSpec{id: "undated", source: "notes", importance: "high", tags: []string{"work", "q1"}, vec: unit(0)},
		chunkSpec{id: "low", source: "notes", date: "2026-02-10", importance: "low", tags: []string{"work", "q1"}, vec: unit(0)},
		chunkSpec{id: "other-agent", agent: "b", source: "notes", date: "2026-02-10", importance: "high", tags: []string{"work", "q1"}, vec: unit(0)},
	)
	e := newEngine(t, st, EngineConfig{})
	f := Filters{
		Source:     "notes",
		Tags:       []string{"q1", "work"},
		From:       day("2026-02-01"),
		To:         day("2026-02-28"),
		Importance: "high",
	}

	results, err := e.Search(context.Background(), "x axis", "a", 10, f)

	require.NoError(t, err)
	require.Equal(t, []string{"match"}, resultIDs(results))
	r := results[0]
	assert.Equal(t, "notes", r.Source)
	assert.ElementsMatch(t, []string{"work", "q1"}, r.Tags)
	assert.Equal(t, "2026-02-10", r.SourceDate)
	assert.Equal(t, "high", r.Importance)
}

func TestSearch_DateBoundsAreInclusive(t *testing.T) {
	st := openStore(t, false)
	seed(t, st,
		chunkSpec{id: "first", date: "2026-02-01", vec: unit(0)},
		chunkSpec{id: "last", date: "2026-02-28", vec: unit(0)},
		chunkSpec{id: "outside", date: "2026-03-01", vec: unit(0)},
	)
	e := newEngine(t, st, EngineConfig{})

	results, err := e.Search(context.Background(), "x axis", "a", 10, Filters{From: day("2026-02-01"), To: day("2026-02-28")})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first", "last"}, resultIDs(results))
}

func TestSearch_DefaultAgent(t *testing.T) {
	st := openStore(t, false)
	seed(t, st,
		chunkSpec{id: "mine", agent: "default", vec: unit(0)},
		chunkSpec{id: "theirs", agent: "a", vec: unit(0)},
	)
	e := newEngine(t, st, EngineConfig{})

	results, err := e.Search(context.Background(), "x axis", "", 10, Filters{})

	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, resultIDs(results))
	assert.Equal(t, []string{}, results[0].Tags)
}

// =============================================================================
// ANN path and telemetry
// =============================================================================

func TestSearch_ANNMatchesExact(t *testing.T) {
	st := openStore(t, true)
	var specs []chunkSpec
	for i := range 12 {
		specs = append(specs, chunkSpec{id: fmt.Sprintf("c%02d", i), vec: unit(float64(i * 7))})
	}
	seed(t, st, specs...)
	metrics := telemetry.NewQueryMetrics()
	ann := newEngine(t, st, EngineConfig{ANNThreshold: 1}, WithMetrics(metrics))
	exact := newEngine(t, st, EngineConfig{})

	got, err := ann.Search(context.Background(), "x axis", "a", 3, Filters{})
	require.NoError(t, err)
	want, err := exact.Search(context.Background(), "x axis", "a", 3, Filters{})
	require.NoError(t, err)

	assert.Equal(t, []string{"c00", "c01", "c02"}, resultIDs(want))
	assert.Equal(t, resultIDs(want), resultIDs(got))
	assert.Equal(t, int64(1), metrics.Snapshot().ByStrategy[telemetry.StrategyANN])
}

func TestSearch_ANNFallsBackWhenNeighboursAreFiltered(t *testing.T) {
	st := openStore(t, true)
	var specs []chunkSpec
	for i := range 20 {
		specs = append(specs, chunkSpec{id: fmt.Sprintf("b%02d", i), agent: "b", vec: []float32{1, 0.01 * float32(i), 0}})
	}
	specs = append(specs,
		chunkSpec{id: "a1", vec: unit(60)},
		chunkSpec{id: "a2", vec: unit(70)},
	)
	seed(t, st, specs...)
	metrics := telemetry.NewQueryMetrics()
	e := newEngine(t, st, EngineConfig{ANNThreshold: 1, Overfetch: 2}, WithMetrics(metrics))

	// When: the nearest neighbours all belong to agent b
	results, err := e.Search(context.Background(), "x axis", "a", 2, Filters{})

	// Then: the exact scan still finds agent a's chunks
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, resultIDs(results))
	s := metrics.Snapshot()
	assert.Equal(t, int64(1), s.ByStrategy[telemetry.StrategyExact])
	assert.Zero(t, s.ByStrategy[telemetry.StrategyANN])
}

func TestSearch_RecordsMetrics(t *testing.T) {
	st := openStore(t, false)
	seed(t, st, chunkSpec{id: "c1", vec: unit(0)})
	metrics := telemetry.NewQueryMetrics()
	e := newEngine(t, st, EngineConfig{}, WithMetrics(metrics))
	require.Same(t, metrics, e.Metrics())

	_, err := e.Search(context.Background(), "x axis", "a", 5, Filters{})
	require.NoError(t, err)
	_, err = e.Search(context.Background(), "x axis", "a", 5, Filters{Source: "none"})
	require.NoError(t, err)

	s := metrics.Snapshot()
	assert.Equal(t, int64(2), s.TotalQueries)
	assert.Equal(t, int64(1), s.ZeroResultCount)
	assert.Equal(t, int64(1), s.ByStrategy[telemetry.StrategyExact])
	assert.Equal(t, int64(1), s.ByStrategy[telemetry.StrategyEmpty])
	assert.Equal(t, int64(2), s.ByAgent["a"])
	assert.Equal(t, int64(1), s.ExactRepeatCount)
}

func TestSearch_CachedEmbedderSkipsRepeatCalls(t *testing.T) {
	st := openStore(t, false)
	seed(t, st, chunkSpec{id: "c1", vec: unit(0)})
	inner := newFixedEmbedder()
	e, err := NewEngine(st, embed.NewCachedEmbedder(inner, 10), EngineConfig{})
	require.NoError(t, err)

	for range 3 {
		_, err := e.Search(context.Background(), "x axis", "a", 5, Filters{})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, inner.calls)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
}
