package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// NewCollectionsCommand creates the collection command group
func NewCollectionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"collections", "col"},
		Short:   "Inspect collections",
	}

	var zone string

	bibs := &cobra.Command{
		Use:   "bibs PID",
		Short: "List the records of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := Environment()
			if err != nil {
				return err
			}

			ctx := context.Background()

			client, cleanup, err := CreateClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			members, err := client.Collection(args[0], alma.Zone(zone), env).Bibs(ctx)
			if err != nil {
				return err
			}

			return renderMembers(cmd, members)
		},
	}

	bibs.Flags().StringVarP(&zone, "zone", "z", "NZ", "zone code")
	cmd.AddCommand(bibs)

	return cmd
}
