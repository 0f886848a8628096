package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// QueryMetricsURI addresses the query telemetry resource.
const QueryMetricsURI = "agentmemory://query_metrics"

// registerQueryMetricsResource registers the query_metrics resource.
func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         QueryMetricsURI,
			Description: "Search telemetry for this server process",
			MIMEType:    "application/json",
		},
		s.handleQueryMetrics,
	)
}

func (s *Server) handleQueryMetrics(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(s.queryMetrics(), "", "  ")
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      QueryMetricsURI,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}

// queryMetrics converts the current telemetry snapshot to its output shape.
func (s *Server) queryMetrics() QueryMetricsOutput {
	snapshot := s.deps.Metrics.Snapshot()

	output := QueryMetricsOutput{
		TotalQueries:        snapshot.TotalQueries,
		ZeroResultPct:       snapshot.ZeroResultPercentage(),
		ZeroResultQueries:   snapshot.ZeroResultQueries,
		ByStrategy:          make(map[string]int64, len(snapshot.ByStrategy)),
		ByAgent:             snapshot.ByAgent,
		LatencyDistribution: make(map[string]int64, len(snapshot.LatencyDistribution)),
		TopTerms:            make([]QueryTermCount, 0, len(snapshot.TopTerms)),
		ExactRepeatCount:    snapshot.ExactRepeatCount,
		SimilarQueryCount:   snapshot.SimilarQueryCount,
	}
	if output.ZeroResultQueries == nil {
		output.ZeroResultQueries = []string{}
	}
	if output.ByAgent == nil {
		output.ByAgent = map[string]int64{}
	}
	for strategy, count := range snapshot.ByStrategy {
		output.ByStrategy[string(strategy)] = count
	}
	for bucket, count := range snapshot.LatencyDistribution {
		output.LatencyDistribution[string(bucket)] = count
	}
	for _, tc := range snapshot.TopTerms {
		output.TopTerms = append(output.TopTerms, QueryTermCount{Term: tc.Term, Count: tc.Count})
	}
	return output
}
