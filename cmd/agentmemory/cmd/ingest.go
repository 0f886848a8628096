package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/agentmemory/internal/index"
	"github.com/Aman-CERP/agentmemory/internal/output"
)

type ingestOptions struct {
	source     string
	tags       []string
	importance string
	date       string
	agent      string
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest <file|->",
		Short: "Add one file or stdin to memory",
		Long: `Chunk, embed and store a single document.

A file path is read from disk; its date comes from a YYYY-MM-DD file name
unless --date is given. Use "-" to read the text from stdin.`,
		Example: `  agentmemory ingest ~/notes/2026-05-01.md --tag standup
  echo "prefer tabs" | agentmemory ingest - --source manual --importance high`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.source, "source", "", "Source label (default single_file, or manual for stdin)")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "Tag to attach (repeatable)")
	cmd.Flags().StringVar(&opts.importance, "importance", "", "Importance label (default normal)")
	cmd.Flags().StringVar(&opts.date, "date", "", "Source date YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.agent, "agent", "", "Agent id (default from config)")

	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, path string, opts ingestOptions) error {
	date, err := parseDateFlag("date", opts.date)
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	agentID := a.agent(opts.agent)
	var ids []string
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		ids, err = a.manager.Ingest(ctx, index.IngestRequest{
			AgentID:    agentID,
			Content:    string(data),
			Source:     opts.source,
			SourceDate: date,
			Importance: opts.importance,
			Tags:       opts.tags,
		})
		if err != nil {
			return err
		}
	} else {
		ids, err = a.manager.IngestFile(ctx, index.IngestFileRequest{
			AgentID:    agentID,
			Path:       path,
			Source:     opts.source,
			SourceDate: date,
			Importance: opts.importance,
			Tags:       opts.tags,
		})
		if err != nil {
			return err
		}
	}

	out := output.New(cmd.OutOrStdout())
	out.Successf("Stored %d chunk(s) for agent %s", len(ids), agentID)
	for _, id := range ids {
		out.Status("", id)
	}
	return nil
}
