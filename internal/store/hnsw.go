package store

import (
	"fmt"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWIndex is an in-memory approximate nearest-neighbor index over chunk
// vectors, built with coder/hnsw and cosine distance. It is derived from
// SQLite on open and never persisted on its own.
type HNSWIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dims  int

	// ID mapping (string <-> uint64)
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
}

// VectorResult is one ANN hit.
type VectorResult struct {
	ID       string
	Distance float32 // cosine distance, 0 for identical direction
}

// NewHNSWIndex creates an empty index for vectors of dims dimensions.
func NewHNSWIndex(dims int) *HNSWIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 64
	graph.Ml = 0.25

	return &HNSWIndex{
		graph:  graph,
		dims:   dims,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}
}

// Dimensions returns the vector size the index accepts.
func (s *HNSWIndex) Dimensions() int {
	return s.dims
}

// Add inserts vectors with their IDs.
func (s *HNSWIndex) Add(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != s.dims {
			return fmt.Errorf("dimension mismatch: expected %d, got %d", s.dims, len(v))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range ids {
		// Re-adding orphans the old node instead of deleting it; coder/hnsw
		// misbehaves when the last node of a layer is removed.
		if existing, ok := s.idMap[id]; ok {
			delete(s.keyMap, existing)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		s.graph.Add(hnsw.MakeNode(key, vec))

		s.idMap[id] = key
		s.keyMap[key] = id
	}
	return nil
}

// Remove drops ids from the mapping. Their graph nodes stay as orphans
// and are skipped by Search.
func (s *HNSWIndex) Remove(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if key, ok := s.idMap[id]; ok {
			delete(s.keyMap, key)
			delete(s.idMap, id)
		}
	}
}

// Search finds up to k live nearest neighbors of query.
func (s *HNSWIndex) Search(query []float32, k int) []VectorResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) != s.dims || len(s.idMap) == 0 || k <= 0 {
		return nil
	}

	// Orphans occupy result slots; widen the search to compensate.
	orphans := s.graph.Len() - len(s.idMap)
	nodes := s.graph.Search(query, k+orphans)

	results := make([]VectorResult, 0, min(k, len(nodes)))
	for _, node := range nodes {
		id, ok := s.keyMap[node.Key]
		if !ok {
			continue
		}
		results = append(results, VectorResult{
			ID:       id,
			Distance: s.graph.Distance(query, node.Value),
		})
		if len(results) == k {
			break
		}
	}
	return results
}

// Len returns the number of live vectors.
func (s *HNSWIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idMap)
}

// Orphans returns the number of lazily deleted graph nodes.
func (s *HNSWIndex) Orphans() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Len() - len(s.idMap)
}
