package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Aman-CERP/agentmemory/internal/index"
	"github.com/Aman-CERP/agentmemory/internal/search"
	"github.com/Aman-CERP/agentmemory/internal/store"
	"github.com/Aman-CERP/agentmemory/internal/telemetry"
)

// maxBodyBytes bounds request bodies; ingested documents travel inline.
const maxBodyBytes = 32 << 20

type healthResponse struct {
	Status string   `json:"status"`
	Chunks int      `json:"chunks"`
	Agents []string `json:"agents"`
}

type statsResponse struct {
	*store.Stats
	Queries *telemetry.Snapshot `json:"queries,omitempty"`
}

type searchRequest struct {
	Query         string   `json:"query"`
	AgentID       string   `json:"agent_id"`
	TopK          *int     `json:"top_k"`
	MinSimilarity float64  `json:"min_similarity"`
	Source        string   `json:"source"`
	Tags          []string `json:"tags"`
	Importance    string   `json:"importance"`
	DateFrom      string   `json:"date_from"`
	DateTo        string   `json:"date_to"`
}

type searchResponse struct {
	Results []search.Result `json:"results"`
	AgentID string          `json:"agent_id"`
	Query   string          `json:"query"`
	Count   int             `json:"count"`
}

type ingestRequest struct {
	Content    string   `json:"content"`
	Source     string   `json:"source"`
	SourcePath string   `json:"source_path"`
	SourceDate string   `json:"source_date"`
	Importance string   `json:"importance"`
	Tags       []string `json:"tags"`
	AgentID    string   `json:"agent_id"`
}

type ingestFileRequest struct {
	Path string `json:"path"`
	// FilePath is accepted as an alias of Path.
	FilePath   string   `json:"file_path"`
	Source     string   `json:"source"`
	SourceDate string   `json:"source_date"`
	Importance string   `json:"importance"`
	Tags       []string `json:"tags"`
	AgentID    string   `json:"agent_id"`
}

type ingestResponse struct {
	Status   string   `json:"status"`
	ChunkIDs []string `json:"chunk_ids"`
	Count    int      `json:"count"`
}

type triggerRequest struct {
	AgentID string `json:"agent_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Store.Count(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	agents, err := s.deps.Store.Agents(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if agents == nil {
		agents = []string{}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Chunks: n, Agents: agents})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Store.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := statsResponse{Stats: st}
	if s.deps.Metrics != nil {
		resp.Queries = s.deps.Metrics.Snapshot()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	topK := s.deps.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	from, err := parseDate("date_from", req.DateFrom)
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseDate("date_to", req.DateTo)
	if err != nil {
		writeError(w, r, err)
		return
	}

	agentID := s.agent(req.AgentID)
	results, err := s.deps.Searcher.Search(r.Context(), req.Query, agentID, topK, search.Filters{
		Source:        req.Source,
		Tags:          req.Tags,
		From:          from,
		To:            to,
		Importance:    req.Importance,
		MinSimilarity: req.MinSimilarity,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results, AgentID: agentID, Query: req.Query, Count: len(results)})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate("source_date", req.SourceDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ids, err := s.deps.Indexer.Ingest(r.Context(), index.IngestRequest{
		AgentID:    s.agent(req.AgentID),
		Content:    req.Content,
		Source:     req.Source,
		SourcePath: req.SourcePath,
		SourceDate: date,
		Importance: req.Importance,
		Tags:       req.Tags,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Status: "ok", ChunkIDs: ids, Count: len(ids)})
}

func (s *Server) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	var req ingestFileRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	path := req.Path
	if path == "" {
		path = req.FilePath
	}
	date, err := parseDate("source_date", req.SourceDate)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ids, err := s.deps.Indexer.IngestFile(r.Context(), index.IngestFileRequest{
		AgentID:    s.agent(req.AgentID),
		Path:       path,
		Source:     req.Source,
		SourceDate: date,
		Importance: req.Importance,
		Tags:       req.Tags,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Status: "ok", ChunkIDs: ids, Count: len(ids)})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Store.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTrigger runs an incremental index synchronously. Concurrent
// triggers for one agent share a single run.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := decode(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	if len(s.deps.Sources) == 0 {
		writeError(w, r, badRequest("no sources configured"))
		return
	}

	agentID := s.agent(req.AgentID)
	ctx := r.Context()
	v, err, _ := s.trigger.Do(agentID, func() (any, error) {
		// The run outlives a disconnecting caller; others may share it.
		return s.deps.Indexer.IncrementalIndex(context.WithoutCancel(ctx), s.deps.Sources, agentID)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v.(*index.Summary))
}

func (s *Server) agent(requested string) string {
	if a := strings.TrimSpace(requested); a != "" {
		return a
	}
	return s.deps.AgentID
}

// decode reads a JSON body. optional accepts an empty body.
func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && optional:
		return nil
	case errors.Is(err, io.EOF):
		return badRequest("request body is required")
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return badRequest(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	}
	return badRequest("invalid JSON body: " + err.Error())
}

// parseDate accepts YYYY-MM-DD; empty means unset.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, badRequest(fmt.Sprintf("%s must be YYYY-MM-DD, got %q", field, value))
	}
	return d, nil
}
