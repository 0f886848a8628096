package mcp

// SearchInput defines the input schema for the memory_search tool.
type SearchInput struct {
	Query         string   `json:"query" jsonschema:"natural-language query"`
	AgentID       string   `json:"agent_id,omitempty" jsonschema:"agent whose memory is searched, defaults to the configured agent"`
	TopK          int      `json:"top_k,omitempty" jsonschema:"maximum number of results, default 5"`
	Source        string   `json:"source,omitempty" jsonschema:"only chunks with this source label"`
	Tags          []string `json:"tags,omitempty" jsonschema:"only chunks carrying all of these tags"`
	Importance    string   `json:"importance,omitempty" jsonschema:"only chunks with this importance: low, normal, high"`
	DateFrom      string   `json:"date_from,omitempty" jsonschema:"earliest source date, YYYY-MM-DD"`
	DateTo        string   `json:"date_to,omitempty" jsonschema:"latest source date, YYYY-MM-DD"`
	MinSimilarity float64  `json:"min_similarity,omitempty" jsonschema:"drop results scoring below this cosine similarity"`
}

// SearchOutput defines the output schema for the memory_search tool.
type SearchOutput struct {
	AgentID string         `json:"agent_id"`
	Query   string         `json:"query"`
	Results []ResultOutput `json:"results" jsonschema:"ranked results, best first"`
}

// ResultOutput is one search result.
type ResultOutput struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Source     string   `json:"source"`
	SourcePath string   `json:"source_path,omitempty"`
	SourceDate string   `json:"source_date,omitempty" jsonschema:"YYYY-MM-DD"`
	Importance string   `json:"importance"`
	Tags       []string `json:"tags"`
	Similarity float64  `json:"similarity" jsonschema:"cosine similarity, -1 to 1"`
}

// IngestInput defines the input schema for the memory_ingest tool.
type IngestInput struct {
	Content    string   `json:"content" jsonschema:"text to remember"`
	AgentID    string   `json:"agent_id,omitempty" jsonschema:"owning agent, defaults to the configured agent"`
	Source     string   `json:"source,omitempty" jsonschema:"source label, default manual"`
	SourcePath string   `json:"source_path,omitempty" jsonschema:"where the text came from"`
	SourceDate string   `json:"source_date,omitempty" jsonschema:"YYYY-MM-DD"`
	Importance string   `json:"importance,omitempty" jsonschema:"low, normal or high, default normal"`
	Tags       []string `json:"tags,omitempty"`
}

// IngestOutput defines the output schema for the memory_ingest tool.
type IngestOutput struct {
	ChunkIDs []string `json:"chunk_ids"`
	Count    int      `json:"count"`
}

// StatsInput defines the input schema for the memory_stats tool (no parameters).
type StatsInput struct{}

// StatsOutput defines the output schema for the memory_stats tool.
type StatsOutput struct {
	TotalChunks         int            `json:"total_chunks"`
	ByAgent             map[string]int `json:"by_agent"`
	BySource            map[string]int `json:"by_source"`
	EarliestDate        string         `json:"earliest_date,omitempty"`
	LatestDate          string         `json:"latest_date,omitempty"`
	EmbeddingModel      string         `json:"embedding_model,omitempty"`
	EmbeddingDimensions int            `json:"embedding_dimensions,omitempty"`
}

// DeleteInput defines the input schema for the memory_delete tool.
type DeleteInput struct {
	ID string `json:"id" jsonschema:"chunk id to delete"`
}

// DeleteOutput defines the output schema for the memory_delete tool.
type DeleteOutput struct {
	Deleted string `json:"deleted"`
}

// QueryMetricsOutput is the JSON body of the query_metrics resource.
type QueryMetricsOutput struct {
	TotalQueries        int64            `json:"total_queries"`
	ZeroResultPct       float64          `json:"zero_result_pct"`
	ZeroResultQueries   []string         `json:"zero_result_queries"`
	ByStrategy          map[string]int64 `json:"by_strategy"`
	ByAgent             map[string]int64 `json:"by_agent"`
	LatencyDistribution map[string]int64 `json:"latency_distribution"`
	TopTerms            []QueryTermCount `json:"top_terms"`
	ExactRepeatCount    int64            `json:"exact_repeat_count"`
	SimilarQueryCount   int64            `json:"similar_query_count"`
}

// QueryTermCount is a frequent query term.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}
