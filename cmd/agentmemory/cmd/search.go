package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
	"github.com/Aman-CERP/agentmemory/internal/output"
	"github.com/Aman-CERP/agentmemory/internal/search"
)

// maxContentDisplay caps result content in text output.
const maxContentDisplay = 500

// searchOptions holds CLI flags for search.
type searchOptions struct {
	topK          int
	jsonOutput    bool
	agent         string
	source        string
	tags          []string
	from          string
	to            string
	importance    string
	minSimilarity float64
}

// searchOutput is the JSON shape of `search --json`, matching POST /search.
type searchOutput struct {
	AgentID string          `json:"agent_id"`
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search memory by meaning",
		Long: `Search the agent's memory for chunks similar to the query.

Results are ranked by cosine similarity. Filters narrow the candidates
before ranking; every filter given must match.`,
		Example: `  agentmemory search "what did we decide about the schema"
  agentmemory search deploy --tag ops --from 2026-01-01 --top 10
  agentmemory search "release notes" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().StringVar(&opts.agent, "agent", "", "Agent id (default from config)")
	cmd.Flags().StringVar(&opts.source, "source", "", "Only chunks with this source label")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "Only chunks carrying this tag (repeatable)")
	cmd.Flags().StringVar(&opts.from, "from", "", "Only chunks dated on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.to, "to", "", "Only chunks dated on or before YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.importance, "importance", "", "Only chunks with this importance")
	cmd.Flags().Float64Var(&opts.minSimilarity, "min-similarity", 0, "Drop results scoring below this")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	from, err := parseDateFlag("from", opts.from)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", opts.to)
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	agentID := a.agent(opts.agent)
	topK := opts.topK
	if topK <= 0 {
		topK = a.cfg.Search.DefaultTopK
	}

	start := time.Now()
	results, err := a.engine.Search(ctx, query, agentID, topK, search.Filters{
		Source:        opts.source,
		Tags:          opts.tags,
		From:          from,
		To:            to,
		Importance:    opts.importance,
		MinSimilarity: opts.minSimilarity,
	})
	if err != nil {
		return err
	}
	slog.Info("cli_search_complete",
		slog.String("agent_id", agentID),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	if opts.jsonOutput {
		if results == nil {
			results = []search.Result{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(searchOutput{AgentID: agentID, Query: query, Results: results})
	}

	printResults(cmd, query, agentID, results)
	return nil
}

func printResults(cmd *cobra.Command, query, agentID string, results []search.Result) {
	out := output.New(cmd.OutOrStdout())
	if len(results) == 0 {
		out.Statusf("🔍", "No memories found for %q (agent %s)", query, agentID)
		return
	}

	out.Statusf("🔍", "%d result(s) for %q (agent %s)", len(results), query, agentID)
	for i, r := range results {
		out.Newline()
		date := r.SourceDate
		if date == "" {
			date = "undated"
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d. [%s] %s  similarity %.3f\n", i+1, r.Source, date, r.Similarity)
		if r.SourcePath != "" {
			out.KeyValue("Path", r.SourcePath)
		}
		if len(r.Tags) > 0 {
			out.KeyValue("Tags", strings.Join(r.Tags, ", "))
		}
		out.KeyValue("ID", r.ID)
		out.Block(output.Truncate(r.Content, maxContentDisplay))
	}
}

// parseDateFlag accepts YYYY-MM-DD; empty means unset.
func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, amerrors.New(amerrors.ErrCodeInvalidInput,
			fmt.Sprintf("--%s must be YYYY-MM-DD, got %q", name, value), err)
	}
	return d, nil
}
