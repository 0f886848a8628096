package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
)

const dateLayout = time.DateOnly

// tagSep joins tags in group_concat. Tags are stored without control
// characters, so it never occurs inside one.
const tagSep = "\x1f"

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id           TEXT PRIMARY KEY,
	agent_id     TEXT NOT NULL,
	content      TEXT NOT NULL,
	source       TEXT NOT NULL,
	source_path  TEXT,
	source_date  TEXT,
	importance   TEXT NOT NULL DEFAULT 'normal',
	chunk_index  INTEGER NOT NULL DEFAULT 0,
	source_mtime INTEGER,
	source_hash  TEXT,
	embedding    BLOB NOT NULL,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_agent ON chunks(agent_id);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
CREATE INDEX IF NOT EXISTS idx_chunks_source_date ON chunks(source_date);
CREATE INDEX IF NOT EXISTS idx_chunks_importance ON chunks(importance);
CREATE INDEX IF NOT EXISTS idx_chunks_agent_path ON chunks(agent_id, source, source_path);

CREATE TABLE IF NOT EXISTS chunk_tags (
	chunk_id TEXT NOT NULL,
	tag      TEXT NOT NULL,
	PRIMARY KEY (chunk_id, tag)
);
CREATE INDEX IF NOT EXISTS idx_chunk_tags_tag ON chunk_tags(tag);

CREATE TABLE IF NOT EXISTS index_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Options configures Open.
type Options struct {
	// ANN keeps an HNSW index over all vectors in memory.
	ANN bool
}

// SQLiteStore implements Store on modernc.org/sqlite.
type SQLiteStore struct {
	db   *sql.DB
	path string
	opts Options

	mu  sync.RWMutex
	ann *HNSWIndex // nil until the dimension is known, or when disabled
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string, opts Options) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, amerrors.StoreError(fmt.Sprintf("cannot create database directory for %s", path), err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, amerrors.StoreError("failed to open database", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, amerrors.StoreError("failed to set pragma", err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, amerrors.StoreError("failed to initialize schema", err)
	}

	s := &SQLiteStore{db: db, path: path, opts: opts}
	if opts.ANN {
		if err := s.rebuildANN(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) rebuildANN(ctx context.Context) error {
	_, dims, err := s.Model(ctx)
	if err != nil || dims == 0 {
		return err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM chunks`)
	if err != nil {
		return amerrors.StoreError("failed to load vectors", err)
	}
	defer func() { _ = rows.Close() }()

	idx := NewHNSWIndex(dims)
	var ids []string
	var vecs [][]float32
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return amerrors.StoreError("failed to scan vector", err)
		}
		v := decodeVector(blob)
		if len(v) != dims {
			continue
		}
		ids = append(ids, id)
		vecs = append(vecs, v)
	}
	if err := rows.Err(); err != nil {
		return amerrors.StoreError("failed to load vectors", err)
	}
	if err := idx.Add(ids, vecs); err != nil {
		return amerrors.InternalError("failed to build ANN index", err)
	}

	s.mu.Lock()
	s.ann = idx
	s.mu.Unlock()
	slog.Debug("ann_index_rebuilt", slog.Int("vectors", len(ids)), slog.Int("dimensions", dims))
	return nil
}

// EnsureModel records model and dims on first use.
func (s *SQLiteStore) EnsureModel(ctx context.Context, model string, dims int) error {
	if dims <= 0 {
		return amerrors.New(amerrors.ErrCodeInvalidEmbedding,
			fmt.Sprintf("embedding dimension must be positive, got %d", dims), nil)
	}

	curModel, curDims, err := s.Model(ctx)
	if err != nil {
		return err
	}
	if curDims == 0 {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO index_meta (key, value) VALUES (?, ?), (?, ?)`,
			MetaKeyModel, model, MetaKeyDimensions, strconv.Itoa(dims))
		if err != nil {
			return amerrors.StoreError("failed to record embedding model", err)
		}
		if s.opts.ANN {
			s.mu.Lock()
			if s.ann == nil {
				s.ann = NewHNSWIndex(dims)
			}
			s.mu.Unlock()
		}
		return nil
	}

	if curDims != dims {
		return amerrors.New(amerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("store holds %d-dimension vectors from %s, provider returns %d from %s", curDims, curModel, dims, model), nil).
			WithSuggestion("use the original model, or point db_path at a new database and re-index")
	}
	if curModel != model {
		return amerrors.New(amerrors.ErrCodeStoreModelChanged,
			fmt.Sprintf("store was indexed with %s, provider is %s", curModel, model), nil).
			WithSuggestion("use the original model, or point db_path at a new database and re-index")
	}
	return nil
}

// Model returns the recorded model and dimension.
func (s *SQLiteStore) Model(ctx context.Context) (string, int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM index_meta WHERE key IN (?, ?)`, MetaKeyModel, MetaKeyDimensions)
	if err != nil {
		return "", 0, amerrors.StoreError("failed to read index metadata", err)
	}
	defer func() { _ = rows.Close() }()

	var model string
	var dims int
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return "", 0, amerrors.StoreError("failed to read index metadata", err)
		}
		switch k {
		case MetaKeyModel:
			model = v
		case MetaKeyDimensions:
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return "", 0, amerrors.StoreError(fmt.Sprintf("corrupt index metadata: %s = %q", k, v), err)
			}
			dims = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", 0, amerrors.StoreError("failed to read index metadata", err)
	}
	return model, dims, nil
}

// Insert writes chunks in one transaction.
func (s *SQLiteStore) Insert(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertChunks(ctx, tx, chunks)
	})
	if err != nil {
		return err
	}
	s.annAdd(chunks)
	return nil
}

// ReplacePath deletes the old chunks of a path and inserts the new ones
// atomically. Readers see either the old set or the new set.
func (s *SQLiteStore) ReplacePath(ctx context.Context, agentID, source, path string, chunks []*Chunk) ([]string, error) {
	var removed []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		removed, err = deletePathTx(ctx, tx, agentID, source, path)
		if err != nil {
			return err
		}
		return insertChunks(ctx, tx, chunks)
	})
	if err != nil {
		return nil, err
	}
	s.annRemove(removed)
	s.annAdd(chunks)
	return removed, nil
}

// DeletePath removes every chunk of (agent, source, path).
func (s *SQLiteStore) DeletePath(ctx context.Context, agentID, source, path string) (int, error) {
	var removed []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		removed, err = deletePathTx(ctx, tx, agentID, source, path)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.annRemove(removed)
	return len(removed), nil
}

// DeleteBySource removes every chunk of (agent, source).
func (s *SQLiteStore) DeleteBySource(ctx context.Context, agentID, source string) (int, error) {
	var removed []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		removed, err = selectIDs(ctx, tx, `SELECT id FROM chunks WHERE agent_id = ? AND source = ?`, agentID, source)
		if err != nil {
			return err
		}
		return deleteIDs(ctx, tx, removed)
	})
	if err != nil {
		return 0, err
	}
	s.annRemove(removed)
	return len(removed), nil
}

// Delete removes exactly one chunk.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	found := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		found = true
		_, err = tx.ExecContext(ctx, `DELETE FROM chunk_tags WHERE chunk_id = ?`, id)
		return err
	})
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	s.annRemove([]string{id})
	return nil
}

// PathStates groups the agent's chunks of one source by path. When a
// path holds chunks from several runs (full indexing is additive), the
// most recently written fingerprint wins.
func (s *SQLiteStore) PathStates(ctx context.Context, agentID, source string) (map[string]PathState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_path, COALESCE(source_mtime, 0), COALESCE(source_hash, '')
		FROM chunks
		WHERE agent_id = ? AND source = ? AND source_path IS NOT NULL AND source_path != ''
		ORDER BY created_at ASC, id ASC`, agentID, source)
	if err != nil {
		return nil, amerrors.StoreError("failed to read path states", err)
	}
	defer func() { _ = rows.Close() }()

	states := make(map[string]PathState)
	for rows.Next() {
		var id, path, hash string
		var mtime int64
		if err := rows.Scan(&id, &path, &mtime, &hash); err != nil {
			return nil, amerrors.StoreError("failed to read path states", err)
		}
		st := states[path]
		st.Path = path
		st.ModTime = fromNanos(mtime)
		st.Hash = hash
		st.ChunkIDs = append(st.ChunkIDs, id)
		states[path] = st
	}
	if err := rows.Err(); err != nil {
		return nil, amerrors.StoreError("failed to read path states", err)
	}
	return states, nil
}

// Candidates returns the agent's chunks matching f.
func (s *SQLiteStore) Candidates(ctx context.Context, agentID string, f Filter) ([]*Chunk, error) {
	if f.IDs != nil && len(f.IDs) == 0 {
		return nil, nil
	}
	where, args := buildWhere(agentID, f)
	q := `SELECT c.id, c.agent_id, c.content, c.source, COALESCE(c.source_path, ''), COALESCE(c.source_date, ''),
		c.importance, c.chunk_index, COALESCE(c.source_mtime, 0), COALESCE(c.source_hash, ''),
		c.embedding, c.created_at, c.updated_at,
		COALESCE((SELECT group_concat(t.tag, '` + tagSep + `') FROM chunk_tags t WHERE t.chunk_id = c.id), '')
		FROM chunks c WHERE ` + where

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, amerrors.StoreError("failed to query candidates", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Chunk
	for rows.Next() {
		var c Chunk
		var date, tags string
		var mtime, created, updated int64
		var blob []byte
		if err := rows.Scan(&c.ID, &c.AgentID, &c.Content, &c.Source, &c.SourcePath, &date,
			&c.Importance, &c.ChunkIndex, &mtime, &c.SourceHash,
			&blob, &created, &updated, &tags); err != nil {
			return nil, amerrors.StoreError("failed to scan candidate", err)
		}
		if date != "" {
			c.SourceDate, _ = time.Parse(dateLayout, date)
		}
		if tags != "" {
			c.Tags = strings.Split(tags, tagSep)
		}
		c.SourceModTime = fromNanos(mtime)
		c.Embedding = decodeVector(blob)
		c.CreatedAt = fromNanos(created)
		c.UpdatedAt = fromNanos(updated)
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, amerrors.StoreError("failed to query candidates", err)
	}
	return out, nil
}

// CountCandidates counts what Candidates would return.
func (s *SQLiteStore) CountCandidates(ctx context.Context, agentID string, f Filter) (int, error) {
	if f.IDs != nil && len(f.IDs) == 0 {
		return 0, nil
	}
	where, args := buildWhere(agentID, f)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks c WHERE `+where, args...).Scan(&n); err != nil {
		return 0, amerrors.StoreError("failed to count candidates", err)
	}
	return n, nil
}

// buildWhere applies the agent first, then the optional scalar filters.
func buildWhere(agentID string, f Filter) (string, []any) {
	clauses := []string{"c.agent_id = ?"}
	args := []any{agentID}

	if f.Source != "" {
		clauses = append(clauses, "c.source = ?")
		args = append(args, f.Source)
	}
	if f.Importance != "" {
		clauses = append(clauses, "c.importance = ?")
		args = append(args, f.Importance)
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "c.source_date >= ?")
		args = append(args, f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "c.source_date <= ?")
		args = append(args, f.To.Format(dateLayout))
	}
	if tags := dedupe(f.Tags); len(tags) > 0 {
		clauses = append(clauses, `c.id IN (SELECT chunk_id FROM chunk_tags WHERE tag IN (`+
			placeholders(len(tags))+`) GROUP BY chunk_id HAVING COUNT(DISTINCT tag) = ?)`)
		for _, t := range tags {
			args = append(args, t)
		}
		args = append(args, len(tags))
	}
	if f.IDs != nil {
		clauses = append(clauses, "c.id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	return strings.Join(clauses, " AND "), args
}

// NearestIDs queries the ANN index.
func (s *SQLiteStore) NearestIDs(query []float32, k int) ([]string, bool) {
	s.mu.RLock()
	ann := s.ann
	s.mu.RUnlock()
	if ann == nil {
		return nil, false
	}

	hits := ann.Search(query, k)
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids, true
}

// Stats aggregates counts across all agents.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByAgent: map[string]int{}, BySource: map[string]int{}}

	var earliest, latest sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(source_date), MAX(source_date) FROM chunks`).Scan(&st.Total, &earliest, &latest)
	if err != nil {
		return nil, amerrors.StoreError("failed to read stats", err)
	}
	st.Earliest = earliest.String
	st.Latest = latest.String

	if err := s.countBy(ctx, "agent_id", st.ByAgent); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, "source", st.BySource); err != nil {
		return nil, err
	}

	st.Model, st.Dimensions, err = s.Model(ctx)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) countBy(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+column+`, COUNT(*) FROM chunks GROUP BY `+column)
	if err != nil {
		return amerrors.StoreError("failed to read stats", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return amerrors.StoreError("failed to read stats", err)
		}
		into[k] = n
	}
	return rows.Err()
}

// Agents lists distinct agent ids.
func (s *SQLiteStore) Agents(ctx context.Context) ([]string, error) {
	ids, err := selectIDs(ctx, s.db, `SELECT DISTINCT agent_id FROM chunks ORDER BY agent_id`)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Count returns the total number of chunks.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, amerrors.StoreError("failed to count chunks", err)
	}
	return n, nil
}

// withTx runs fn in a transaction, rolling back on any error.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeStoreTransaction, "failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if _, ok := amerrors.As(err); ok {
			return err
		}
		return amerrors.New(amerrors.ErrCodeStoreTransaction, "transaction failed", err)
	}
	if err := tx.Commit(); err != nil {
		return amerrors.New(amerrors.ErrCodeStoreTransaction, "failed to commit transaction", err)
	}
	return nil
}

func (s *SQLiteStore) annAdd(chunks []*Chunk) {
	s.mu.RLock()
	ann := s.ann
	s.mu.RUnlock()
	if ann == nil || len(chunks) == 0 {
		return
	}
	ids := make([]string, len(chunks))
	vecs := make([][]float32, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		vecs[i] = c.Embedding
	}
	if err := ann.Add(ids, vecs); err != nil {
		slog.Warn("ann_add_failed", slog.String("error", err.Error()))
	}
}

func (s *SQLiteStore) annRemove(ids []string) {
	s.mu.RLock()
	ann := s.ann
	s.mu.RUnlock()
	if ann != nil && len(ids) > 0 {
		ann.Remove(ids)
	}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func selectIDs(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, amerrors.StoreError("query failed", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, amerrors.StoreError("scan failed", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, amerrors.StoreError("query failed", err)
	}
	return ids, nil
}

func deletePathTx(ctx context.Context, tx *sql.Tx, agentID, source, path string) ([]string, error) {
	ids, err := selectIDs(ctx, tx,
		`SELECT id FROM chunks WHERE agent_id = ? AND source = ? AND source_path = ?`, agentID, source, path)
	if err != nil {
		return nil, err
	}
	return ids, deleteIDs(ctx, tx, ids)
}

func deleteIDs(ctx context.Context, tx *sql.Tx, ids []string) error {
	const batch = 500
	for start := 0; start < len(ids); start += batch {
		part := ids[start:min(start+batch, len(ids))]
		args := make([]any, len(part))
		for i, id := range part {
			args[i] = id
		}
		in := placeholders(len(part))
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_tags WHERE chunk_id IN (`+in+`)`, args...); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE id IN (`+in+`)`, args...); err != nil {
			return err
		}
	}
	return nil
}

func insertChunks(ctx context.Context, tx *sql.Tx, chunks []*Chunk) error {
	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, agent_id, content, source, source_path, source_date, importance,
			chunk_index, source_mtime, source_hash, embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = chunkStmt.Close() }()

	tagStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO chunk_tags (chunk_id, tag) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = tagStmt.Close() }()

	for _, c := range chunks {
		if err := validateChunk(c); err != nil {
			return err
		}
		importance := c.Importance
		if importance == "" {
			importance = DefaultImportance
		}
		_, err := chunkStmt.ExecContext(ctx,
			c.ID, c.AgentID, c.Content, c.Source,
			nullString(c.SourcePath), nullDate(c.SourceDate), importance,
			c.ChunkIndex, nullNanos(c.SourceModTime), nullString(c.SourceHash),
			encodeVector(c.Embedding), c.CreatedAt.UnixNano(), c.UpdatedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
		for _, tag := range dedupe(c.Tags) {
			if _, err := tagStmt.ExecContext(ctx, c.ID, tag); err != nil {
				return fmt.Errorf("insert tag for %s: %w", c.ID, err)
			}
		}
	}
	return nil
}

func validateChunk(c *Chunk) error {
	switch {
	case c.ID == "":
		return amerrors.New(amerrors.ErrCodeInvalidInput, "chunk id is empty", nil)
	case c.AgentID == "":
		return amerrors.New(amerrors.ErrCodeInvalidInput, "chunk agent_id is empty", nil)
	case strings.TrimSpace(c.Content) == "":
		return amerrors.New(amerrors.ErrCodeInvalidInput, "chunk content is empty", nil)
	case len(c.Embedding) == 0:
		return amerrors.New(amerrors.ErrCodeInvalidEmbedding, "chunk has no embedding", nil)
	}
	return nil
}

// encodeVector stores float32 values little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// dedupe normalizes tags: control characters are dropped, surrounding
// space trimmed, blanks and repeats removed.
func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(strings.Map(dropControl, t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func dropControl(r rune) rune {
	if unicode.IsControl(r) {
		return -1
	}
	return r
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(dateLayout), Valid: true}
}

func nullNanos(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
