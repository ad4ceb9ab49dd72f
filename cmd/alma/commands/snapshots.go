package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewSnapshotsCommand creates the snapshot command group
func NewSnapshotsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"snapshots"},
		Short:   "Read saved records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "latest DIR PREFIX",
		Short:   "Print the latest saved version of a record",
		Example: "  alma snapshot latest UBS_991170891000000000 bib991170891000000000",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, cleanup, err := CreateClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			payload, err := client.Snapshots().Latest(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), payload.String())

			return err
		},
	})

	return cmd
}
