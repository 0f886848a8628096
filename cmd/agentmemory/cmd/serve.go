package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/agentmemory/internal/api"
	"github.com/Aman-CERP/agentmemory/internal/mcp"
	"github.com/Aman-CERP/agentmemory/internal/output"
)

func newServeCmd() *cobra.Command {
	var (
		useMCP bool
		addr   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve memory over HTTP or MCP",
		Long: `Start the HTTP API, or with --mcp an MCP server on stdio.

The HTTP API also serves the MCP tools over streamable HTTP at /mcp.
In --mcp mode stdout carries JSON-RPC only; logs go to
~/.agentmemory/logs/agentmemory.log.`,
		Example: `  agentmemory serve --addr 127.0.0.1:8100
  agentmemory serve --mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cmd, useMCP, addr)
		},
	}

	cmd.Flags().BoolVar(&useMCP, "mcp", false, "Serve MCP over stdio instead of HTTP")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, useMCP bool, addr string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	mcpServer, err := mcp.NewServer(mcp.Dependencies{
		Store:       a.store,
		Searcher:    a.engine,
		Ingester:    a.manager,
		AgentID:     a.cfg.AgentID,
		DefaultTopK: a.cfg.Search.DefaultTopK,
		Metrics:     a.metrics,
	})
	if err != nil {
		return err
	}

	// Nothing may be written to stdout before the MCP transport owns it.
	if useMCP {
		return mcpServer.Serve(ctx)
	}

	apiServer, err := api.New(api.Dependencies{
		Store:       a.store,
		Searcher:    a.engine,
		Indexer:     a.manager,
		Sources:     a.sources,
		AgentID:     a.cfg.AgentID,
		DefaultTopK: a.cfg.Search.DefaultTopK,
		Metrics:     a.metrics,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		MCPHandler:  mcpServer.HTTPHandler(),
	})
	if err != nil {
		return err
	}

	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	out := output.New(cmd.OutOrStdout())
	out.Statusf("🚀", "Serving agent memory on http://%s (agent %s)", addr, a.cfg.AgentID)
	out.Status("", "MCP over HTTP at /mcp, Ctrl+C to stop")
	return apiServer.ListenAndServe(ctx, addr)
}
