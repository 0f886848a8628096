// Package index orchestrates full and incremental indexing and ingestion.
//
// The write path is Source Adapters -> Chunker -> Embedder -> Store. Index
// state is never kept here: incremental runs derive it from the store's
// per-path fingerprints each time.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/agentmemory/internal/chunk"
	"github.com/Aman-CERP/agentmemory/internal/config"
	"github.com/Aman-CERP/agentmemory/internal/embed"
	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
	"github.com/Aman-CERP/agentmemory/internal/source"
	"github.com/Aman-CERP/agentmemory/internal/store"
	"github.com/Aman-CERP/agentmemory/internal/ui"
)

// Dependencies are injected into NewManager.
type Dependencies struct {
	// Store persists chunks (required).
	Store store.Store

	// Embedder turns chunk text into vectors (required).
	Embedder embed.Embedder

	// Chunker splits documents (required).
	Chunker *chunk.Chunker

	// Renderer receives progress events. Defaults to ui.Nop.
	Renderer ui.Renderer

	// Clock stamps created_at. Defaults to time.Now.
	Clock func() time.Time
}

// Manager runs indexing against one store.
type Manager struct {
	store    store.Store
	embedder embed.Embedder
	chunker  *chunk.Chunker
	renderer ui.Renderer
	now      func() time.Time

	mu          sync.Mutex
	ensuredDims int
}

// NewManager creates a Manager with injected dependencies.
func NewManager(deps Dependencies) (*Manager, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if deps.Chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	m := &Manager{
		store:    deps.Store,
		embedder: deps.Embedder,
		chunker:  deps.Chunker,
		renderer: deps.Renderer,
		now:      deps.Clock,
	}
	if m.renderer == nil {
		m.renderer = ui.Nop{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// SetRenderer swaps the progress renderer, e.g. per CLI invocation.
func (m *Manager) SetRenderer(r ui.Renderer) {
	if r == nil {
		r = ui.Nop{}
	}
	m.renderer = r
}

// FullIndex reads, chunks, embeds and inserts every document of every
// source. Existing chunks are kept, so running it twice duplicates them;
// call Clear first for a clean rebuild.
func (m *Manager) FullIndex(ctx context.Context, sources []source.Descriptor, agentID string) (*Summary, error) {
	return m.run(ctx, sources, agentID, ModeFull)
}

// IncrementalIndex reconciles each source path against the fingerprint
// stored with its chunks: unseen paths are inserted, unchanged paths are
// skipped without embedding, changed paths are replaced in one
// transaction and vanished paths are deleted.
func (m *Manager) IncrementalIndex(ctx context.Context, sources []source.Descriptor, agentID string) (*Summary, error) {
	return m.run(ctx, sources, agentID, ModeIncremental)
}

// Clear deletes the agent's chunks for the label of every source. It
// deletes nothing when any source is invalid.
func (m *Manager) Clear(ctx context.Context, sources []source.Descriptor, agentID string) (int, error) {
	agentID = normalizeAgent(agentID)
	if err := source.Validate(sources); err != nil {
		return 0, err
	}

	var labels []string
	for _, d := range sources {
		if l := d.SourceLabel(); !slices.Contains(labels, l) {
			labels = append(labels, l)
		}
	}

	total := 0
	for _, label := range labels {
		n, err := m.store.DeleteBySource(ctx, agentID, label)
		if err != nil {
			return total, err
		}
		slog.Info("source_cleared",
			slog.String("agent_id", agentID),
			slog.String("source", label),
			slog.Int("chunks", n))
		total += n
	}
	return total, nil
}

// run processes sources in order. The returned summary covers the work
// done even when a fatal error stops the run early.
func (m *Manager) run(ctx context.Context, sources []source.Descriptor, agentID string, mode Mode) (*Summary, error) {
	agentID = normalizeAgent(agentID)
	start := time.Now()
	summary := &Summary{AgentID: agentID, Mode: mode}

	if err := source.Validate(sources); err != nil {
		slog.Error("index_rejected",
			slog.String("agent_id", agentID),
			slog.String("mode", string(mode)),
			slog.String("error", err.Error()))
		return summary, err
	}

	slog.Info("index_started",
		slog.String("agent_id", agentID),
		slog.String("mode", string(mode)),
		slog.Int("sources", len(sources)))

	var runErr error
	for _, d := range sources {
		sum, err := m.indexSource(ctx, d, agentID, mode)
		summary.Sources = append(summary.Sources, sum)
		if err != nil {
			runErr = err
			break
		}
	}
	summary.Duration = time.Since(start)

	m.renderer.Complete(summary.CompletionStats(m.embedder.ModelName(), m.embedder.Dimensions()))

	t := summary.Totals()
	attrs := []any{
		slog.String("agent_id", agentID),
		slog.String("mode", string(mode)),
		slog.Int("added", t.Added),
		slog.Int("updated", t.Updated),
		slog.Int("unchanged", t.Unchanged),
		slog.Int("removed", t.Removed),
		slog.Int("failed", t.Failed),
		slog.Int("chunks", t.Chunks),
		slog.Int64("duration_ms", summary.Duration.Milliseconds()),
	}
	if runErr != nil {
		slog.Error("index_aborted", append(attrs, slog.String("error", runErr.Error()))...)
		return summary, runErr
	}
	slog.Info("index_complete", attrs...)
	return summary, nil
}

// indexSource handles one source. A returned error halts the run.
func (m *Manager) indexSource(ctx context.Context, d source.Descriptor, agentID string, mode Mode) (SourceSummary, error) {
	label := d.SourceLabel()
	sum := SourceSummary{Source: label, Type: d.Type, Path: d.Path}

	adapter, err := source.New(d)
	if err != nil {
		return sum, err
	}

	m.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageReading, Source: label, Message: d.Path})
	res, err := adapter.Read(ctx)
	if err != nil {
		return sum, err
	}

	for _, w := range res.Warnings {
		sum.Warnings++
		path := ""
		if me, ok := amerrors.As(w); ok {
			path = me.Details["path"]
		}
		slog.Warn("document_warning", slog.String("source", label), slog.String("path", path), slog.String("error", w.Error()))
		m.renderer.AddError(ui.ErrorEvent{File: path, Err: w, IsWarn: true})
	}

	// Paths that exist but failed to read still count as present, so their
	// stored chunks are not tombstoned.
	present := make(map[string]bool, len(res.Documents)+len(res.Failures))
	for _, f := range res.Failures {
		present[f.Path] = true
		m.recordFailure(&sum, f.Path, f.Err)
	}

	var states map[string]store.PathState
	if mode == ModeIncremental {
		states, err = m.store.PathStates(ctx, agentID, label)
		if err != nil {
			return sum, err
		}
	}

	total := len(res.Documents)
	for i, doc := range res.Documents {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		present[doc.Path] = true
		m.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:       ui.StageIndexing,
			Source:      label,
			Current:     i + 1,
			Total:       total,
			CurrentFile: doc.Path,
		})

		var prev *store.PathState
		if st, ok := states[doc.Path]; ok {
			prev = &st
		}
		out, n, err := m.indexDocument(ctx, agentID, doc, mode, prev)
		if err != nil {
			if halts(ctx, err) {
				return sum, err
			}
			m.recordFailure(&sum, doc.Path, err)
			continue
		}
		sum.Chunks += n
		switch out {
		case outcomeAdded:
			sum.Added++
		case outcomeUpdated:
			sum.Updated++
		case outcomeUnchanged:
			sum.Unchanged++
		case outcomeEmpty:
			sum.Empty++
		}
	}

	if mode == ModeIncremental {
		if err := m.tombstone(ctx, d, agentID, states, present, &sum); err != nil {
			return sum, err
		}
	}

	slog.Info("source_indexed",
		slog.String("agent_id", agentID),
		slog.String("source", label),
		slog.String("type", d.Type),
		slog.Int("added", sum.Added),
		slog.Int("updated", sum.Updated),
		slog.Int("unchanged", sum.Unchanged),
		slog.Int("removed", sum.Removed),
		slog.Int("failed", sum.Failed),
		slog.Int("chunks", sum.Chunks))
	return sum, nil
}

type outcome int

const (
	outcomeAdded outcome = iota
	outcomeUpdated
	outcomeUnchanged
	outcomeEmpty
)

// indexDocument writes one document. prev is its stored fingerprint in
// incremental mode, nil when the path is unseen or in full mode.
func (m *Manager) indexDocument(ctx context.Context, agentID string, doc source.Document, mode Mode, prev *store.PathState) (outcome, int, error) {
	if prev != nil && unchanged(*prev, doc) {
		slog.Debug("path_unchanged", slog.String("path", doc.Path))
		return outcomeUnchanged, 0, nil
	}

	chunks, err := m.buildChunks(ctx, agentID, doc, store.DefaultImportance, nil)
	if err != nil {
		return 0, 0, err
	}

	if prev == nil {
		if len(chunks) == 0 {
			return outcomeEmpty, 0, nil
		}
		if err := m.store.Insert(ctx, chunks); err != nil {
			return 0, 0, err
		}
		slog.Debug("path_added", slog.String("path", doc.Path), slog.Int("chunks", len(chunks)), slog.String("mode", string(mode)))
		return outcomeAdded, len(chunks), nil
	}

	removed, err := m.store.ReplacePath(ctx, agentID, doc.Label, doc.Path, chunks)
	if err != nil {
		return 0, 0, err
	}
	slog.Info("path_reconciled",
		slog.String("path", doc.Path),
		slog.Int("removed", len(removed)),
		slog.Int("inserted", len(chunks)))
	return outcomeUpdated, len(chunks), nil
}

// unchanged compares fingerprints. The content hash decides when both
// sides have one, so a touched but identical file is not re-embedded.
func unchanged(prev store.PathState, doc source.Document) bool {
	if prev.Hash != "" && doc.Hash != "" {
		return prev.Hash == doc.Hash
	}
	return prev.ModTime.Equal(doc.ModTime)
}

// tombstone deletes stored paths of this source that no longer exist.
func (m *Manager) tombstone(ctx context.Context, d source.Descriptor, agentID string, states map[string]store.PathState, present map[string]bool, sum *SourceSummary) error {
	var gone []string
	for path := range states {
		if !present[path] && owns(d, path) {
			gone = append(gone, path)
		}
	}
	slices.Sort(gone)

	for i, path := range gone {
		m.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:       ui.StageReconciling,
			Source:      sum.Source,
			Current:     i + 1,
			Total:       len(gone),
			CurrentFile: path,
		})
		n, err := m.store.DeletePath(ctx, agentID, sum.Source, path)
		if err != nil {
			if halts(ctx, err) {
				return err
			}
			m.recordFailure(sum, path, err)
			continue
		}
		sum.Removed++
		sum.ChunksRemoved += n
		slog.Info("path_removed", slog.String("path", path), slog.Int("chunks", n))
	}
	return nil
}

// owns reports whether path belongs to the descriptor's location, so two
// sources sharing a label never tombstone each other's files.
func owns(d source.Descriptor, path string) bool {
	root, err := filepath.Abs(d.Path)
	if err != nil {
		root = d.Path
	}
	if d.Type == config.SourceSingleFile {
		return path == root
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// buildChunks chunks doc, embeds the non-blank windows and returns
// ready-to-write chunks. Nothing is returned for a document without text.
func (m *Manager) buildChunks(ctx context.Context, agentID string, doc source.Document, importance string, tags []string) ([]*store.Chunk, error) {
	var texts []string
	var positions []int
	for w := range m.chunker.Windows(doc.Text) {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		texts = append(texts, w.Text)
		positions = append(positions, w.Index)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	vecs, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, amerrors.New(amerrors.ErrCodeInvalidEmbedding,
			fmt.Sprintf("embedder returned %d vectors for %d texts", len(vecs), len(texts)), nil)
	}
	dims := len(vecs[0])
	for i, v := range vecs {
		if len(v) == 0 || len(v) != dims {
			return nil, amerrors.New(amerrors.ErrCodeInvalidEmbedding,
				fmt.Sprintf("vector %d has %d dimensions, want %d", i, len(v), dims), nil)
		}
	}
	if err := m.ensureModel(ctx, dims); err != nil {
		return nil, err
	}

	now := m.now()
	chunks := make([]*store.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &store.Chunk{
			ID:            uuid.NewString(),
			AgentID:       agentID,
			Content:       text,
			Source:        doc.Label,
			SourcePath:    doc.Path,
			SourceDate:    doc.Date,
			Importance:    importance,
			Tags:          tags,
			Embedding:     vecs[i],
			ChunkIndex:    positions[i],
			SourceModTime: doc.ModTime,
			SourceHash:    doc.Hash,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}
	return chunks, nil
}

// ensureModel records the embedding model before the first write and
// rejects a provider whose vectors do not fit the store.
func (m *Manager) ensureModel(ctx context.Context, dims int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ensuredDims == dims {
		return nil
	}
	if err := m.store.EnsureModel(ctx, m.embedder.ModelName(), dims); err != nil {
		return err
	}
	m.ensuredDims = dims
	return nil
}

func (m *Manager) recordFailure(sum *SourceSummary, path string, err error) {
	sum.Failed++
	sum.Errors = append(sum.Errors, fmt.Sprintf("%s: %v", path, err))

	attrs := []any{slog.String("source", sum.Source), slog.String("path", path)}
	for k, v := range amerrors.FormatForLog(err) {
		attrs = append(attrs, slog.Any(k, v))
	}
	slog.Warn("document_failed", attrs...)
	m.renderer.AddError(ui.ErrorEvent{File: path, Err: err})
}

// halts reports whether err stops the whole run rather than one document:
// cancellation, configuration errors and an open provider circuit.
func halts(ctx context.Context, err error) bool {
	return ctx.Err() != nil || amerrors.IsFatal(err)
}

func normalizeAgent(agentID string) string {
	if agentID = strings.TrimSpace(agentID); agentID == "" {
		return config.DefaultAgentID
	}
	return agentID
}
