package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/agentmemory/internal/output"
	"github.com/Aman-CERP/agentmemory/internal/store"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show what is in memory",
		Long: `Show chunk counts per agent and per source, the source_date range and
the embedding model recorded in the store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			st, err := a.store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			printStats(output.New(cmd.OutOrStdout()), a.cfg.DBPath, st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func printStats(out *output.Writer, dbPath string, st *store.Stats) {
	out.Heading("Memory")
	out.KeyValue("Database", dbPath)
	out.KeyValue("Total chunks", output.Number(st.Total))

	model := "(none yet)"
	if st.Model != "" {
		model = fmt.Sprintf("%s (%d dims)", st.Model, st.Dimensions)
	}
	out.KeyValue("Embedding model", model)

	if st.Earliest != "" {
		out.KeyValue("Date range", st.Earliest+" to "+st.Latest)
	}

	out.Newline()
	out.Counts("By agent", st.ByAgent)
	out.Counts("By source", st.BySource)
}
