package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/agentmemory/internal/config"
	"github.com/Aman-CERP/agentmemory/internal/index"
	"github.com/Aman-CERP/agentmemory/internal/search"
	"github.com/Aman-CERP/agentmemory/internal/store"
	"github.com/Aman-CERP/agentmemory/internal/telemetry"
	"github.com/Aman-CERP/agentmemory/pkg/version"
)

// ServerName is reported to clients during initialization.
const ServerName = "agentmemory"

const maxTopK = 50

// Searcher runs similarity search.
type Searcher interface {
	Search(ctx context.Context, query, agentID string, topK int, f search.Filters) ([]search.Result, error)
}

// Ingester writes raw text to the store.
type Ingester interface {
	Ingest(ctx context.Context, req index.IngestRequest) ([]string, error)
}

// Dependencies are injected into NewServer.
type Dependencies struct {
	Store    store.Store
	Searcher Searcher
	Ingester Ingester

	// AgentID is used when a call names no agent.
	AgentID     string
	DefaultTopK int
	// Metrics, when set, is exposed as the query_metrics resource.
	Metrics *telemetry.QueryMetrics
}

// Server is the MCP server for agentmemory.
type Server struct {
	mcp    *mcp.Server
	deps   Dependencies
	logger *slog.Logger
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "memory_search",
		Description: "Search the agent's long-term memory by meaning. Returns the closest chunks of notes, documents and past conversations, best first, with their source, date and tags.",
	},
	{
		Name:        "memory_ingest",
		Description: "Store new text in the agent's memory. Long text is split into overlapping chunks; returns the ids of the stored chunks.",
	},
	{
		Name:        "memory_stats",
		Description: "Report how many chunks are stored, per agent and per source, the date range covered and the embedding model in use.",
	},
	{
		Name:        "memory_delete",
		Description: "Delete one stored chunk by id.",
	},
}

// NewServer creates a new MCP server with the memory tools registered.
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("store is required")
	}
	if deps.Searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if deps.Ingester == nil {
		return nil, errors.New("ingester is required")
	}
	if deps.AgentID == "" {
		deps.AgentID = config.DefaultAgentID
	}
	if deps.DefaultTopK <= 0 {
		deps.DefaultTopK = 5
	}

	s := &Server{
		deps:   deps,
		logger: slog.Default(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	if deps.Metrics != nil {
		s.registerQueryMetricsResource()
	}
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpIngestHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpStatsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[3].Name, Description: tools[3].Description}, s.mcpDeleteHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query cannot be empty or whitespace only")
	}
	from, err := parseDate("date_from", input.DateFrom)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	to, err := parseDate("date_to", input.DateTo)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	start := time.Now()
	requestID := generateRequestID()
	agentID := s.agent(input.AgentID)
	topK := clampLimit(input.TopK, s.deps.DefaultTopK, 1, maxTopK)

	results, err := s.deps.Searcher.Search(ctx, input.Query, agentID, topK, search.Filters{
		Source:        input.Source,
		Tags:          input.Tags,
		From:          from,
		To:            to,
		Importance:    input.Importance,
		MinSimilarity: input.MinSimilarity,
	})
	if err != nil {
		s.logger.Warn("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	s.logger.Info("mcp_search_complete",
		slog.String("request_id", requestID),
		slog.String("agent_id", agentID),
		slog.Int("results", len(results)),
		slog.Duration("latency", time.Since(start)))

	output := SearchOutput{
		AgentID: agentID,
		Query:   input.Query,
		Results: make([]ResultOutput, 0, len(results)),
	}
	for _, r := range results {
		output.Results = append(output.Results, toResultOutput(r))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatSearchResults(input.Query, results)}},
	}, output, nil
}

func (s *Server) mcpIngestHandler(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (
	*mcp.CallToolResult,
	IngestOutput,
	error,
) {
	date, err := parseDate("source_date", input.SourceDate)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	ids, err := s.deps.Ingester.Ingest(ctx, index.IngestRequest{
		AgentID:    s.agent(input.AgentID),
		Content:    input.Content,
		Source:     input.Source,
		SourcePath: input.SourcePath,
		SourceDate: date,
		Importance: input.Importance,
		Tags:       input.Tags,
	})
	if err != nil {
		return nil, IngestOutput{}, MapError(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return nil, IngestOutput{ChunkIDs: ids, Count: len(ids)}, nil
}

func (s *Server) mcpStatsHandler(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (
	*mcp.CallToolResult,
	StatsOutput,
	error,
) {
	st, err := s.deps.Store.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{}, MapError(err)
	}

	output := StatsOutput{
		TotalChunks:         st.Total,
		ByAgent:             st.ByAgent,
		BySource:            st.BySource,
		EarliestDate:        st.Earliest,
		LatestDate:          st.Latest,
		EmbeddingModel:      st.Model,
		EmbeddingDimensions: st.Dimensions,
	}
	if output.ByAgent == nil {
		output.ByAgent = map[string]int{}
	}
	if output.BySource == nil {
		output.BySource = map[string]int{}
	}
	return nil, output, nil
}

func (s *Server) mcpDeleteHandler(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (
	*mcp.CallToolResult,
	DeleteOutput,
	error,
) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, DeleteOutput{}, NewInvalidParamsError("id is required")
	}
	if err := s.deps.Store.Delete(ctx, id); err != nil {
		return nil, DeleteOutput{}, MapError(err)
	}
	s.logger.Info("mcp_chunk_deleted", slog.String("id", id))
	return nil, DeleteOutput{Deleted: id}, nil
}

// Serve runs the server over stdio until ctx is canceled or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

// HTTPHandler serves the same tools over streamable HTTP.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}

func (s *Server) agent(requested string) string {
	if a := strings.TrimSpace(requested); a != "" {
		return a
	}
	return s.deps.AgentID
}

// parseDate accepts YYYY-MM-DD; empty means unset.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, NewInvalidParamsError(fmt.Sprintf("%s must be YYYY-MM-DD, got %q", field, value))
	}
	return d, nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
