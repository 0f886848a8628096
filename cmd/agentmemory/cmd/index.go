package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/agentmemory/internal/config"
	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
	"github.com/Aman-CERP/agentmemory/internal/index"
	"github.com/Aman-CERP/agentmemory/internal/output"
	"github.com/Aman-CERP/agentmemory/internal/source"
	"github.com/Aman-CERP/agentmemory/internal/ui"
	"github.com/Aman-CERP/agentmemory/internal/watcher"
)

type indexOptions struct {
	full            bool
	clean           bool
	transcriptsOnly bool
	watch           bool
	agent           string
	noTUI           bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index configured sources into memory",
		Long: `Index the sources listed in the config file.

By default the run is incremental: unchanged files are skipped without
embedding, changed files are replaced and deleted files are removed.

  --full               Re-read and insert everything (additive)
  --full --clean       Delete the agent's chunks for every source first
  --transcripts-only   Rebuild transcript sources only
  --watch              Keep running and re-index when files change`,
		Example: `  agentmemory index
  agentmemory index --full --clean --agent claude
  agentmemory index --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.clean && !opts.full {
				return amerrors.New(amerrors.ErrCodeInvalidInput, "--clean requires --full", nil)
			}
			if opts.transcriptsOnly && opts.full {
				return amerrors.New(amerrors.ErrCodeInvalidInput, "--transcripts-only and --full are mutually exclusive", nil)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runIndex(ctx, cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.full, "full", false, "Full index instead of incremental")
	cmd.Flags().BoolVar(&opts.clean, "clean", false, "With --full, delete the agent's chunks for each source first")
	cmd.Flags().BoolVar(&opts.transcriptsOnly, "transcripts-only", false, "Clear and fully re-index transcript sources only")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Watch sources and re-index on change")
	cmd.Flags().StringVar(&opts.agent, "agent", "", "Agent id (default from config)")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable TUI mode, use plain text output")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	out := output.New(cmd.OutOrStdout())
	agentID := a.agent(opts.agent)

	sources := a.sources
	if opts.transcriptsOnly {
		sources = transcriptSources(sources)
	}
	if len(sources) == 0 {
		return noSourcesError(opts.transcriptsOnly)
	}

	if opts.clean || opts.transcriptsOnly {
		n, err := a.manager.Clear(ctx, sources, agentID)
		if err != nil {
			return err
		}
		out.Statusf("🧹", "Cleared %s chunks for agent %s", output.Number(n), agentID)
	}

	mode := index.ModeIncremental
	if opts.full || opts.transcriptsOnly {
		mode = index.ModeFull
	}

	// The TUI owns the terminal; watch mode prints one block per burst.
	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.noTUI || opts.watch),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithAgentID(agentID),
	))
	if err := renderer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start progress display: %w", err)
	}
	a.manager.SetRenderer(renderer)

	summary, err := runMode(ctx, a.manager, sources, agentID, mode)
	_ = renderer.Stop()
	if err != nil {
		return err
	}
	reportFailures(out, summary)

	if !opts.watch {
		return nil
	}
	return watchSources(ctx, out, a, sources, agentID)
}

func runMode(ctx context.Context, m *index.Manager, sources []source.Descriptor, agentID string, mode index.Mode) (*index.Summary, error) {
	if mode == index.ModeFull {
		return m.FullIndex(ctx, sources, agentID)
	}
	return m.IncrementalIndex(ctx, sources, agentID)
}

// watchSources re-runs the incremental index once per settled burst of
// file changes until ctx is cancelled.
func watchSources(ctx context.Context, out *output.Writer, a *app, sources []source.Descriptor, agentID string) error {
	opts := watcher.DefaultOptions()
	if a.cfg.Watch.Debounce > 0 {
		opts.Debounce = a.cfg.Watch.Debounce
	}

	w, err := watcher.New(sources, opts)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()
	if err := w.Start(ctx); err != nil {
		return err
	}

	out.Statusf("👀", "Watching %d source(s) (%s), Ctrl+C to stop", len(sources), w.Mode())
	slog.Info("watch_started",
		slog.String("agent_id", agentID),
		slog.String("mode", w.Mode()),
		slog.Int("roots", len(w.Roots())))

	err = watcher.Run(ctx, w, func(ctx context.Context, events []watcher.FileEvent) error {
		out.Newline()
		out.Statusf("🔄", "%d change(s), re-indexing", len(events))
		summary, err := a.manager.IncrementalIndex(ctx, sources, agentID)
		if err != nil {
			return err
		}
		reportFailures(out, summary)
		return nil
	})

	slog.Info("watch_stopped", slog.String("agent_id", agentID))
	return err
}

func reportFailures(out *output.Writer, summary *index.Summary) {
	if summary == nil {
		return
	}
	if t := summary.Totals(); t.Failed > 0 {
		out.Warningf("%d document(s) failed to index, see the log for details", t.Failed)
	}
}

func transcriptSources(all []source.Descriptor) []source.Descriptor {
	var out []source.Descriptor
	for _, d := range all {
		if d.Type == config.SourceTranscriptDir {
			out = append(out, d)
		}
	}
	return out
}

func noSourcesError(transcriptsOnly bool) error {
	msg := "no sources configured"
	if transcriptsOnly {
		msg = "no transcript_dir sources configured"
	}
	return amerrors.ConfigError(msg, nil).
		WithSuggestion("Add entries under 'sources:' in config.yaml, see 'agentmemory config init'")
}
