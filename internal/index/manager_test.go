package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/agentmemory/internal/chunk"
	"github.com/Aman-CERP/agentmemory/internal/config"
	"github.com/Aman-CERP/agentmemory/internal/embed"
	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
	"github.com/Aman-CERP/agentmemory/internal/source"
	"github.com/Aman-CERP/agentmemory/internal/store"
	"github.com/Aman-CERP/agentmemory/internal/ui"
)

// =============================================================================
// Test doubles
// =============================================================================

// countingEmbedder counts provider calls and can reject selected texts.
type countingEmbedder struct {
	*embed.StaticEmbedder
	calls atomic.Int32
	fail  func(texts []string) error
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.fail != nil {
		if err := e.fail(texts); err != nil {
			return nil, err
		}
	}
	return e.StaticEmbedder.EmbedBatch(ctx, texts)
}

// countingStore counts write calls and can fail writes for one path.
type countingStore struct {
	store.Store
	writes   atomic.Int32
	failPath string
}

func (s *countingStore) fails(path string) error {
	if s.failPath != "" && path == s.failPath {
		return amerrors.New(amerrors.ErrCodeStoreTransaction, "injected failure", nil)
	}
	return nil
}

func (s *countingStore) Insert(ctx context.Context, chunks []*store.Chunk) error {
	s.writes.Add(1)
	if len(chunks) > 0 {
		if err := s.fails(chunks[0].SourcePath); err != nil {
			return err
		}
	}
	return s.Store.Insert(ctx, chunks)
}

func (s *countingStore) ReplacePath(ctx context.Context, agentID, src, path string, chunks []*store.Chunk) ([]string, error) {
	s.writes.Add(1)
	if err := s.fails(path); err != nil {
		return nil, err
	}
	return s.Store.ReplacePath(ctx, agentID, src, path, chunks)
}

func (s *countingStore) DeletePath(ctx context.Context, agentID, src, path string) (int, error) {
	s.writes.Add(1)
	if err := s.fails(path); err != nil {
		return 0, err
	}
	return s.Store.DeletePath(ctx, agentID, src, path)
}

// recordingRenderer keeps every event.
type recordingRenderer struct {
	ui.Nop
	mu       sync.Mutex
	events   []ui.ProgressEvent
	errs     []ui.ErrorEvent
	complete []ui.CompletionStats
}

func (r *recordingRenderer) UpdateProgress(e ui.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingRenderer) AddError(e ui.ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, e)
}

func (r *recordingRenderer) Complete(s ui.CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = append(r.complete, s)
}

type fixture struct {
	dir      string
	store    *countingStore
	sqlite   *store.SQLiteStore
	embedder *countingEmbedder
	renderer *recordingRenderer
	manager  *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	sq, err := store.Open(context.Background(), filepath.Join(dir, "memory.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	ch, err := chunk.New(chunk.Options{Size: 200, Overlap: 20, Tolerance: 20})
	require.NoError(t, err)

	f := &fixture{
		dir:      dir,
		store:    &countingStore{Store: sq},
		sqlite:   sq,
		embedder: &countingEmbedder{StaticEmbedder: embed.NewStaticEmbedder()},
		renderer: &recordingRenderer{},
	}
	f.manager, err = NewManager(Dependencies{
		Store:    f.store,
		Embedder: f.embedder,
		Chunker:  ch,
		Renderer: f.renderer,
	})
	require.NoError(t, err)
	return f
}

// note returns about n characters of distinct prose.
func note(topic string, n int) string {
	var sb strings.Builder
	for i := 0; sb.Len() < n; i++ {
		fmt.Fprintf(&sb, "Entry %d about %s covers planning item %d and review %d. ", i, topic, i*7, i*3)
		if i%4 == 3 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) notesSource() source.Descriptor {
	return source.Descriptor{Path: filepath.Join(f.dir, "notes"), Type: config.SourceMarkdownDir, Label: "notes"}
}

func (f *fixture) chunksFor(t *testing.T, agentID string) []*store.Chunk {
	t.Helper()
	got, err := f.sqlite.Candidates(context.Background(), agentID, store.Filter{})
	require.NoError(t, err)
	return got
}

func idsOf(chunks []*store.Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

func pathIDs(chunks []*store.Chunk, path string) []string {
	var ids []string
	for _, c := range chunks {
		if c.SourcePath == path {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// =============================================================================
// Construction
// =============================================================================

func TestNewManager_RequiresDependencies(t *testing.T) {
	ch, err := chunk.New(chunk.DefaultOptions())
	require.NoError(t, err)
	emb := embed.NewStaticEmbedder()

	_, err = NewManager(Dependencies{Embedder: emb, Chunker: ch})
	assert.Error(t, err)
	_, err = NewManager(Dependencies{Store: &countingStore{}, Chunker: ch})
	assert.Error(t, err)
	_, err = NewManager(Dependencies{Store: &countingStore{}, Embedder: emb})
	assert.Error(t, err)
}

// =============================================================================
// Full indexing
// =============================================================================

// TS01: full index is additive
func TestFullIndex_TwiceDoublesChunks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.write(t, "notes/2026-01-05.md", note("garden", 900))
	f.write(t, "notes/ideas.md", note("robots", 500))
	sources := []source.Descriptor{f.notesSource()}

	// When: full index runs once
	sum, err := f.manager.FullIndex(ctx, sources, "agent-a")
	require.NoError(t, err)
	first := len(f.chunksFor(t, "agent-a"))

	// Then: both documents were added
	tot := sum.Totals()
	assert.Equal(t, 2, tot.Added)
	assert.Equal(t, first, tot.Chunks)
	assert.Greater(t, first, 2)

	// When: it runs again on unchanged files
	_, err = f.manager.FullIndex(ctx, sources, "agent-a")
	require.NoError(t, err)

	// Then: the chunk set doubled
	assert.Len(t, f.chunksFor(t, "agent-a"), 2*first)
}

func TestFullIndex_ChunkMetadata(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	path := f.write(t, "notes/2026-01-05.md", note("garden", 450))

	_, err := f.manager.FullIndex(ctx, []source.Descriptor{f.notesSource()}, "")
	require.NoError(t, err)

	// Then: chunks belong to the default agent and carry the document's metadata
	chunks := f.chunksFor(t, config.DefaultAgentID)
	require.NotEmpty(t, chunks)
	indexes := map[int]bool{}
	for _, c := range chunks {
		assert.Equal(t, "notes", c.Source)
		assert.Equal(t, path, c.SourcePath)
		assert.Equal(t, "2026-01-05", c.SourceDate.Format(time.DateOnly))
		assert.Equal(t, store.DefaultImportance, c.Importance)
		assert.Len(t, c.Embedding, embed.StaticDimensions)
		assert.NotEmpty(t, c.SourceHash)
		assert.Len(t, c.ID, 36)
		indexes[c.ChunkIndex] = true
	}
	assert.Len(t, indexes, len(chunks))

	// And: the model was recorded on first write
	model, dims, err := f.sqlite.Model(ctx)
	require.NoError(t, err)
	assert.Equal(t, embed.StaticModelName, model)
	assert.Equal(t, embed.StaticDimensions, dims)
}

func TestFullIndex_EmptyDocumentWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.write(t, "notes/blank.md", "  \n\n\t ")

	sum, err := f.manager.FullIndex(context.Background(), []source.Descriptor{f.notesSource()}, "a")
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Totals().Empty)
	assert.Zero(t, f.store.writes.Load())
	assert.Zero(t, f.embedder.calls.Load())
}

// =============================================================================
// Incremental indexing
// =============================================================================

// TS02: second incremental run performs zero writes and zero embeddings
func TestIncrementalIndex_SecondRunIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.write(t, "notes/a.md", note("alpha", 600))
	f.write(t, "notes/b.md", note("beta", 300))
	sources := []source.Descriptor{f.notesSource()}

	sum, err := f.manager.IncrementalIndex(ctx, sources, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Totals().Added)
	before := idsOf(f.chunksFor(t, "a"))

	// When: running again with nothing changed
	writes, calls := f.store.writes.Load(), f.embedder.calls.Load()
	sum, err = f.manager.IncrementalIndex(ctx, sources, "a")
	require.NoError(t, err)

	// Then: nothing was written or embedded
	assert.Equal(t, 2, sum.Totals().Unchanged)
	assert.Zero(t, sum.Writes())
	assert.Equal(t, writes, f.store.writes.Load())
	assert.Equal(t, calls, f.embedder.calls.Load())
	assert.ElementsMatch(t, before, idsOf(f.chunksFor(t, "a")))
}

// TS03: a changed file keeps none of its old chunk ids
func TestIncrementalIndex_ChangedFileReplacesChunks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.write(t, "notes/a.md", note("alpha", 600))
	b := f.write(t, "notes/b.md", note("beta", 300))
	sources := []source.Descriptor{f.notesSource()}

	_, err := f.manager.IncrementalIndex(ctx, sources, "a")
	require.NoError(t, err)
	oldA := pathIDs(f.chunksFor(t, "a"), a)
	oldB := pathIDs(f.chunksFor(t, "a"), b)
	require.NotEmpty(t, oldA)

	// When: a.md changes
	f.write(t, "notes/a.md", note("gamma", 400))
	sum, err := f.manager.IncrementalIndex(ctx, sources, "a")
	require.NoError(t, err)

	// Then: a.md was updated, b.md untouched
	tot := sum.Totals()
	assert.Equal(t, 1, tot.Updated)
	assert.Equal(t, 1, tot.Unchanged)

	after := f.chunksFor(t, "a")
	newA := pathIDs(after, a)
	require.NotEmpty(t, newA)
	for _, id := range oldA {
		assert.NotContains(t, newA, id)
	}
	assert.ElementsMatch(t, oldB, pathIDs(after, b))
	found := false
	for _, c := range after {
		if c.SourcePath == a && strings.Contains(c.Content, "gamma") {
			found = true
		}
	}
	assert.True(t, found, "updated chunks carry the new content")
}

func TestIncrementalIndex_TouchedFileIsUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.write(t, "notes/a.md", note("alpha", 300))
	sources := []source.Descriptor{f.notesSource()}

	_, err := f.manager.IncrementalIndex(ctx, sources, "a")
	require.NoError(t, err)

	// When: only the mtime changes
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(a, later, later))
	sum, err := f.manager.IncrementalIndex(ctx, sources, "a")
	require.NoError(t, err)

	// Then: the identical content is not re-embedded
	assert.Equal(t, 1, sum.Totals().Unchanged)
	assert.Zero(t, sum.Writes())
}

// TS04: a removed file leaves no chunks behind
func TestIncrementalIndex_RemovedFileIsTombstoned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.write(t, "notes/a.md", note("alpha", 300))
	f.write(t, "notes/b.md", note("beta", 300))
	sources := []source.Descriptor{f.notesSource()}

	_, err := f.manager.IncrementalIndex(ctx, sources, "a")
	require.NoError(t, err)
	require.NotEmpty(t, pathIDs(f.chunksFor(t, "a"), a))

	// When: a.md is deleted
	require.NoError(t, os.Remove(a))
	sum, err := f.manager.IncrementalIndex(ctx, sources, "a")
	require.NoError(t, err)

	// Then: zero chunks remain for that path
	tot := sum.Totals()
	assert.Equal(t, 1, tot.Removed)
	assert.Greater(t, tot.ChunksRemoved, 0)
	assert.Empty(t, pathIDs(f.chunksFor(t, "a"), a))
	assert.Equal(t, 1, tot.Unchanged)
}

func TestIncrementalIndex_AgentsAreIsolated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.write(t, "notes/a.md", note("alpha", 300))
	sources := []source.Descriptor{f.notesSource()}

	_, err := f.manager.IncrementalIndex(ctx, sources, "agent-1")
	require.NoError(t, err)

	// When: another agent indexes the same source
	sum, err := f.manager.IncrementalIndex(ctx, sources, "agent-2")
	require.NoError(t, err)

	// Then: it sees the path as unseen and gets its own chunks
	assert.Equal(t, 1, sum.Totals().Added)
	assert.NotEmpty(t, pathIDs(f.chunksFor(t, "agent-1"), a))
	assert.NotEmpty(t, pathIDs(f.chunksFor(t, "agent-2"), a))

	// And: removing the file for agent-2 leaves agent-1 alone until it re-runs
	require.NoError(t, os.Remove(a))
	_, err = f.manager.IncrementalIndex(ctx, sources, "agent-2")
	require.NoError(t, err)
	assert.Empty(t, pathIDs(f.chunksFor(t, "agent-2"), a))
	assert.NotEmpty(t, pathIDs(f.chunksFor(t, "agent-1"), a))
}

func TestIncrementalIndex_SharedLabelDoesNotTombstoneOtherSource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	work := f.write(t, "work/w.md", note("work", 300))
	f.write(t, "home/h.md", note("home", 300))
	workSrc := source.Descriptor{Path: filepath.Join(f.dir, "work"), Type: config.SourceMarkdownDir, Label: "notes"}
	homeSrc := source.Descriptor{Path: filepath.Join(f.dir, "home"), Type: config.SourceMarkdownDir, Label: "notes"}

	_, err := f.manager.IncrementalIndex(ctx, []source.Descriptor{workSrc, homeSrc}, "a")
	require.NoError(t, err)

	// When: both run again
	sum, err := f.manager.IncrementalIndex(ctx, []source.Descriptor{workSrc, homeSrc}, "a")
	require.NoError(t, err)

	// Then: neither removed the other's file
	assert.Zero(t, sum.Totals().Removed)
	assert.NotEmpty(t, pathIDs(f.chunksFor(t, "a"), work))
}

func TestIncrementalIndex_Transcripts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	path := f.write(t, "sessions/2026-02-01-chat.jsonl",
		`{"role":"user","content":"Hello"}`+"\n"+
			`not json`+"\n"+
			`{"type":"message","message":{"role":"assistant","content":[{"type":"text","text":"Hi!"}]}}`+"\n")
	src := source.Descriptor{Path: filepath.Join(f.dir, "sessions"), Type: config.SourceTranscriptDir}

	sum, err := f.manager.IncrementalIndex(ctx, []source.Descriptor{src}, "a")
	require.NoError(t, err)

	// Then: the malformed line is a warning, the document is indexed
	tot := sum.Totals()
	assert.Equal(t, 1, tot.Added)
	assert.Equal(t, 1, tot.Warnings)
	chunks := f.chunksFor(t, "a")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hello\nHi!", chunks[0].Content)
	assert.Equal(t, config.SourceTranscriptDir, chunks[0].Source)
	assert.Equal(t, path, chunks[0].SourcePath)
	assert.Equal(t, "2026-02-01", chunks[0].SourceDate.Format(time.DateOnly))
}

// =============================================================================
// Failure handling
// =============================================================================

func TestIndex_ProviderRejectionSkipsDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.write(t, "notes/good.md", note("fine", 300))
	bad := f.write(t, "notes/bad.md", "POISON "+note("bad", 200))
	f.embedder.fail = func(texts []string) error {
		for _, s := range texts {
			if strings.Contains(s, "POISON") {
				return amerrors.ProviderError("input rejected", nil)
			}
		}
		return nil
	}

	sum, err := f.manager.IncrementalIndex(ctx, []source.Descriptor{f.notesSource()}, "a")

	// Then: the run finishes, one document failed, the other was added
	require.NoError(t, err)
	tot := sum.Totals()
	assert.Equal(t, 1, tot.Failed)
	assert.Equal(t, 1, tot.Added)
	require.Len(t, tot.Errors, 1)
	assert.Contains(t, tot.Errors[0], bad)
	assert.Empty(t, pathIDs(f.chunksFor(t, "a"), bad))
	require.Len(t, f.renderer.errs, 1)
	assert.Equal(t, bad, f.renderer.errs[0].File)

	// And: once the provider accepts it, the next run adds it
	f.embedder.fail = nil
	sum, err = f.manager.IncrementalIndex(ctx, []source.Descriptor{f.notesSource()}, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Totals().Added)
	assert.Equal(t, 1, sum.Totals().Unchanged)
}

func TestIndex_StoreFailureRollsBackOnePath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.write(t, "notes/a.md", note("alpha", 300))
	b := f.write(t, "notes/b.md", note("beta", 300))
	sources := []source.Descriptor{f.notesSource()}
	_, err := f.manager.IncrementalIndex(ctx, sources, "a")
	require.NoError(t, err)
	oldA := pathIDs(f.chunksFor(t, "a"), a)

	// Given: both files change but writes for a.md fail
	f.write(t, "notes/a.md", note("alpha two", 300))
	f.write(t, "notes/b.md", note("beta two", 300))
	f.store.failPath = a

	sum, err := f.manager.IncrementalIndex(ctx, sources, "a")

	// Then: b.md was updated and a.md kept its old chunks
	require.NoError(t, err)
	tot := sum.Totals()
	assert.Equal(t, 1, tot.Failed)
	assert.Equal(t, 1, tot.Updated)
	after := f.chunksFor(t, "a")
	assert.ElementsMatch(t, oldA, pathIDs(after, a))
	assert.NotEmpty(t, pathIDs(after, b))

	// And: the next run picks a.md up
	f.store.failPath = ""
	sum, err = f.manager.IncrementalIndex(ctx, sources, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Totals().Updated)
	assert.Equal(t, 1, sum.Totals().Unchanged)
}

func TestIndex_CircuitOpenHaltsRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.write(t, "notes/a.md", note("alpha", 300))
	f.write(t, "notes/b.md", note("beta", 300))
	f.embedder.fail = func([]string) error {
		return amerrors.New(amerrors.ErrCodeProviderCircuitOpen, "provider circuit open", nil)
	}

	sum, err := f.manager.IncrementalIndex(ctx, []source.Descriptor{f.notesSource(), f.notesSource()}, "a")

	// Then: the first failure stops the run
	require.Error(t, err)
	assert.Equal(t, amerrors.ErrCodeProviderCircuitOpen, amerrors.GetCode(err))
	assert.Equal(t, int32(1), f.embedder.calls.Load())
	require.NotNil(t, sum)
	assert.Len(t, sum.Sources, 1)
	assert.Len(t, f.renderer.complete, 1)
}

func TestIndex_MissingSourceIsConfigError(t *testing.T) {
	f := newFixture(t)
	src := source.Descriptor{Path: filepath.Join(f.dir, "nope"), Type: config.SourceMarkdownDir}

	_, err := f.manager.FullIndex(context.Background(), []source.Descriptor{src}, "a")

	require.Error(t, err)
	assert.True(t, amerrors.IsConfig(err))
	assert.Equal(t, amerrors.ErrCodeSourceNotFound, amerrors.GetCode(err))
}

func TestIndex_MissingSourceWritesNothing(t *testing.T) {
	// Given: a valid source listed before a missing one
	ctx := context.Background()
	f := newFixture(t)
	f.write(t, "notes/a.md", note("alpha", 300))
	sources := []source.Descriptor{
		f.notesSource(),
		{Path: filepath.Join(f.dir, "gone"), Type: config.SourceTranscriptDir},
	}

	// When: indexing in either mode
	_, fullErr := f.manager.FullIndex(ctx, sources, "a")
	_, incErr := f.manager.IncrementalIndex(ctx, sources, "a")

	// Then: both fail up front and the valid source was not written
	assert.Equal(t, amerrors.ErrCodeSourceNotFound, amerrors.GetCode(fullErr))
	assert.Equal(t, amerrors.ErrCodeSourceNotFound, amerrors.GetCode(incErr))
	assert.Empty(t, f.chunksFor(t, "a"))
}

func TestIndex_WrongSourceKindWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.write(t, "notes/a.md", note("alpha", 300))
	sources := []source.Descriptor{
		f.notesSource(),
		{Path: filepath.Join(f.dir, "notes"), Type: config.SourceSingleFile},
	}

	_, err := f.manager.FullIndex(context.Background(), sources, "a")

	require.Error(t, err)
	assert.True(t, amerrors.IsConfig(err))
	assert.Empty(t, f.chunksFor(t, "a"))
}

func TestIndex_DimensionMismatchHalts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.write(t, "notes/a.md", note("alpha", 300))

	// Given: a store created with another model
	require.NoError(t, f.sqlite.EnsureModel(ctx, "tiny", 8))

	_, err := f.manager.FullIndex(ctx, []source.Descriptor{f.notesSource()}, "a")

	require.Error(t, err)
	assert.Equal(t, amerrors.ErrCodeDimensionMismatch, amerrors.GetCode(err))
	assert.Empty(t, f.chunksFor(t, "a"))
}

func TestIndex_CancelledRunKeepsCommittedWork(t *testing.T) {
	f := newFixture(t)
	f.write(t, "notes/a.md", note("alpha", 300))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := f.manager.IncrementalIndex(ctx, []source.Descriptor{f.notesSource()}, "a")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, sum)
	assert.Zero(t, sum.Writes())

	// And: a fresh run resumes normally
	sum, err = f.manager.IncrementalIndex(context.Background(), []source.Descriptor{f.notesSource()}, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Totals().Added)
}

// =============================================================================
// Clear and progress
// =============================================================================

func TestClear_DeletesSourceLabels(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.write(t, "notes/a.md", note("alpha", 300))
	sources := []source.Descriptor{f.notesSource(), f.notesSource()}
	_, err := f.manager.FullIndex(ctx, sources[:1], "a")
	require.NoError(t, err)
	_, err = f.manager.FullIndex(ctx, sources[:1], "b")
	require.NoError(t, err)
	before := len(f.chunksFor(t, "a"))

	n, err := f.manager.Clear(ctx, sources, "a")

	require.NoError(t, err)
	assert.Equal(t, before, n)
	assert.Empty(t, f.chunksFor(t, "a"))
	assert.NotEmpty(t, f.chunksFor(t, "b"))
}

func TestClear_MissingSourceDeletesNothing(t *testing.T) {
	// Given: indexed notes
	ctx := context.Background()
	f := newFixture(t)
	f.write(t, "notes/a.md", note("alpha", 300))
	_, err := f.manager.FullIndex(ctx, []source.Descriptor{f.notesSource()}, "a")
	require.NoError(t, err)
	before := len(f.chunksFor(t, "a"))
	require.NotZero(t, before)

	// When: clearing alongside a source whose path is gone
	n, err := f.manager.Clear(ctx, []source.Descriptor{
		f.notesSource(),
		{Path: filepath.Join(f.dir, "gone"), Type: config.SourceMarkdownDir},
	}, "a")

	// Then: nothing was deleted
	assert.Equal(t, amerrors.ErrCodeSourceNotFound, amerrors.GetCode(err))
	assert.Zero(t, n)
	assert.Len(t, f.chunksFor(t, "a"), before)
}

func TestIndex_ReportsProgress(t *testing.T) {
	f := newFixture(t)
	f.write(t, "notes/a.md", note("alpha", 300))
	f.write(t, "notes/b.md", note("beta", 300))

	_, err := f.manager.FullIndex(context.Background(), []source.Descriptor{f.notesSource()}, "a")
	require.NoError(t, err)

	var indexing []ui.ProgressEvent
	for _, e := range f.renderer.events {
		if e.Stage == ui.StageIndexing {
			indexing = append(indexing, e)
		}
	}
	require.Len(t, indexing, 2)
	assert.Equal(t, 2, indexing[1].Current)
	assert.Equal(t, 2, indexing[1].Total)
	assert.Equal(t, "notes", indexing[1].Source)

	require.Len(t, f.renderer.complete, 1)
	done := f.renderer.complete[0]
	assert.Equal(t, "full", done.Mode)
	assert.Equal(t, 2, done.Added)
	assert.Equal(t, embed.StaticModelName, done.Embedder.Model)
}
