package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/agentmemory/internal/config"
	amerrors "github.com/Aman-CERP/agentmemory/internal/errors"
	"github.com/Aman-CERP/agentmemory/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Show or create the agentmemory configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. Config file (--config, $AGENT_MEMORY_CONFIG, ./config.yaml,
     then ~/.config/agentmemory/config.yaml)
  3. Environment variables (AGENT_MEMORY_*)`,
		Example: `  # Create the user config
  agentmemory config init

  # Show the effective configuration
  agentmemory config show`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := config.Load(configPath)
			if err != nil {
				return err
			}

			shown := *cfg
			if shown.Embeddings.APIKey != "" {
				shown.Embeddings.APIKey = "********"
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(&shown)
			}

			data, err := yaml.Marshal(&shown)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			origin := "defaults only, no config file found"
			if path != "" {
				origin = path
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", origin, data)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file with defaults",
		Long: `Write a configuration file populated with defaults.

The file is created at ~/.config/agentmemory/config.yaml
(or $XDG_CONFIG_HOME/agentmemory/config.yaml) unless --path is given.
Add your note and transcript directories under 'sources:'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = config.GetUserConfigPath()
			}
			path = config.ExpandHome(path)

			out := output.New(cmd.OutOrStdout())
			if fileExists(path) && !force {
				return amerrors.ConfigError(fmt.Sprintf("config already exists: %s", path), nil).
					WithSuggestion("Use --force to overwrite")
			}

			if err := config.NewConfig().WriteYAML(path); err != nil {
				return err
			}
			out.Successf("Created %s", path)
			out.Status("", "Add sources, for example:")
			out.Block("sources:\n  - path: ~/notes\n    type: markdown_dir\n    source_label: notes")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().StringVar(&path, "path", "", "Where to write the file")

	return cmd
}
