// Package cmd provides the CLI commands for agentmemory.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
	"github.com/Aman-CERP/agentmemory/internal/logging"
	"github.com/Aman-CERP/agentmemory/pkg/version"
)

// Persistent flags
var (
	configPath string
	debugMode  bool
)

var loggingCleanup func()

// NewRootCmd creates the root command for the agentmemory CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentmemory",
		Short: "Local semantic memory for AI agents",
		Long: `agentmemory indexes an agent's notes and conversation transcripts into
a local SQLite store and answers natural-language queries by cosine
similarity over embeddings.

Memory is scoped per agent: every write and query names an agent id.

Configure sources in config.yaml, run 'agentmemory index', then query with
'agentmemory search' or expose the store with 'agentmemory serve'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("agentmemory version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./config.yaml, then ~/.config/agentmemory/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to stderr and ~/.agentmemory/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging enables debug logging when --debug is set. Otherwise
// commands that open the store log to file at the configured level.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	return setupLogging(logging.DebugConfig())
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// setupLogging installs the default slog logger once per invocation.
func setupLogging(cfg logging.Config) error {
	if loggingCleanup != nil {
		return nil
	}
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("logging_enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level),
		slog.String("version", version.Version))
	return nil
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	if err != nil {
		printError(err)
	}
	return err
}

func printError(err error) {
	if _, ok := amerrors.As(err); ok {
		_, _ = fmt.Fprint(os.Stderr, amerrors.FormatForCLI(err))
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
