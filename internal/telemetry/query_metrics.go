// Package telemetry keeps in-process search telemetry. Nothing is
// reported externally and nothing survives a restart.
package telemetry

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// Strategies
// =============================================================================

// Strategy names how a query's candidates were scored.
type Strategy string

const (
	// StrategyExact scored every filtered candidate.
	StrategyExact Strategy = "exact"
	// StrategyANN scored the HNSW neighbours only.
	StrategyANN Strategy = "ann"
	// StrategyEmpty found no candidates to score.
	StrategyEmpty Strategy = "empty"
)

// =============================================================================
// Latency Buckets
// =============================================================================

// LatencyBucket is a search latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

var latencyBounds = []struct {
	below  time.Duration
	bucket LatencyBucket
}{
	{10 * time.Millisecond, BucketP10},
	{50 * time.Millisecond, BucketP50},
	{100 * time.Millisecond, BucketP100},
	{500 * time.Millisecond, BucketP500},
}

// LatencyToBucket returns the first bucket whose upper bound exceeds d.
func LatencyToBucket(d time.Duration) LatencyBucket {
	for _, b := range latencyBounds {
		if d < b.below {
			return b.bucket
		}
	}
	return BucketP1000
}

// =============================================================================
// Query Event
// =============================================================================

// QueryEvent is one completed search.
type QueryEvent struct {
	Query       string
	AgentID     string
	Strategy    Strategy
	Candidates  int
	ResultCount int
	Latency     time.Duration
	// Embedding is the query vector; optional, used for similarity sampling.
	Embedding []float32
}

// IsZeroResult returns true if this query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// ring keeps the last cap(items) values. Callers hold the metrics lock.
type ring[T any] struct {
	items []T
	next  int
	full  bool
}

func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{items: make([]T, max(capacity, 1))}
}

func (r *ring[T]) push(v T) {
	r.items[r.next] = v
	r.next++
	if r.next == len(r.items) {
		r.next, r.full = 0, true
	}
}

// values returns the kept values, oldest first.
func (r *ring[T]) values() []T {
	if !r.full {
		return slices.Clone(r.items[:r.next])
	}
	return append(slices.Clone(r.items[r.next:]), r.items[:r.next]...)
}

// =============================================================================
// Terms
// =============================================================================

// ExtractTerms lowercases the query and keeps words of three or more bytes.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// =============================================================================
// Snapshot
// =============================================================================

// Snapshot is an immutable copy of the collected metrics.
type Snapshot struct {
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	ByStrategy          map[Strategy]int64      `json:"by_strategy"`
	ByAgent             map[string]int64        `json:"by_agent"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TopTerms            []TermCount             `json:"top_terms"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	SimilarQueryCount   int64                   `json:"similar_query_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the percentage of zero-result queries.
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// =============================================================================
// Query Metrics
// =============================================================================

// Config bounds the collector's memory.
type Config struct {
	TopTermsCapacity         int     // default 100
	ZeroResultsCapacity      int     // default 100
	RecentQueriesCapacity    int     // default 500
	RecentEmbeddingsCapacity int     // default 10
	SimilarityThreshold      float64 // default 0.95
}

// DefaultConfig returns the default bounds.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:         100,
		ZeroResultsCapacity:      100,
		RecentQueriesCapacity:    500,
		RecentEmbeddingsCapacity: 10,
		SimilarityThreshold:      0.95,
	}
}

// QueryMetrics collects search telemetry. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.RWMutex

	cfg             Config
	byStrategy      map[Strategy]int64
	byAgent         map[string]int64
	latencies       map[LatencyBucket]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *ring[string]
	totalQueries    int64
	zeroResultCount int64
	startTime       time.Time

	recentQueries     *lru.Cache[string, struct{}]
	exactRepeatCount  int64
	recentEmbeddings  *ring[[]float32]
	similarQueryCount int64
}

// NewQueryMetrics creates a collector with DefaultConfig.
func NewQueryMetrics() *QueryMetrics {
	return NewQueryMetricsWithConfig(DefaultConfig())
}

// NewQueryMetricsWithConfig creates a collector; non-positive fields take defaults.
func NewQueryMetricsWithConfig(cfg Config) *QueryMetrics {
	def := DefaultConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}
	if cfg.RecentEmbeddingsCapacity <= 0 {
		cfg.RecentEmbeddingsCapacity = def.RecentEmbeddingsCapacity
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recentQueries, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &QueryMetrics{
		cfg:              cfg,
		byStrategy:       make(map[Strategy]int64),
		byAgent:          make(map[string]int64),
		latencies:        make(map[LatencyBucket]int64),
		topTerms:         topTerms,
		zeroResults:      newRing[string](cfg.ZeroResultsCapacity),
		startTime:        time.Now(),
		recentQueries:    recentQueries,
		recentEmbeddings: newRing[[]float32](cfg.RecentEmbeddingsCapacity),
	}
}

// Record captures one search.
func (m *QueryMetrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++
	m.byStrategy[event.Strategy]++
	if event.AgentID != "" {
		m.byAgent[event.AgentID]++
	}
	m.latencies[LatencyToBucket(event.Latency)]++

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if event.IsZeroResult() {
		m.zeroResults.push(event.Query)
		m.zeroResultCount++
	}

	key := hashQuery(event.Query)
	if _, seen := m.recentQueries.Get(key); seen {
		m.exactRepeatCount++
	}
	m.recentQueries.Add(key, struct{}{})

	if len(event.Embedding) > 0 {
		for _, prev := range m.recentEmbeddings.values() {
			if cosineSimilarity(event.Embedding, prev) > m.cfg.SimilarityThreshold {
				m.similarQueryCount++
				break
			}
		}
		m.recentEmbeddings.push(slices.Clone(event.Embedding))
	}
}

// hashQuery normalizes case and surrounding space before hashing.
func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:16])
}

// cosineSimilarity returns 0 for empty or mismatched vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Snapshot returns the current metrics.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var terms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			terms = append(terms, TermCount{Term: key, Count: count})
		}
	}
	slices.SortFunc(terms, func(a, b TermCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Term, b.Term)
	})

	return &Snapshot{
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		ZeroResultQueries:   m.zeroResults.values(),
		ByStrategy:          maps.Clone(m.byStrategy),
		ByAgent:             maps.Clone(m.byAgent),
		LatencyDistribution: maps.Clone(m.latencies),
		TopTerms:            terms,
		ExactRepeatCount:    m.exactRepeatCount,
		SimilarQueryCount:   m.similarQueryCount,
		Since:               m.startTime,
	}
}
