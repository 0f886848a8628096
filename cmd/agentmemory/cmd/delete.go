package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/agentmemory/internal/output"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chunk-id>",
		Short: "Delete one chunk by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Deleted chunk %s", args[0])
			return nil
		},
	}
}
