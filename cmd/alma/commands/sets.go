package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// NewSetsCommand creates the set command group
func NewSetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "set",
		Aliases: []string{"sets"},
		Short:   "Inspect sets",
	}

	cmd.AddCommand(newSetMembersCommand())

	return cmd
}

func newSetMembersCommand() *cobra.Command {
	var (
		zone string
		id   string
		name string
	)

	cmd := &cobra.Command{
		Use:   "members",
		Short: "List the members of a set",
		Long:  "List the members of a set addressed by id or by name, with the entity each member maps to",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" && name == "" {
				return constants.ErrSetSelectorRequired
			}

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

			var opts []alma.EntityOption
			if id != "" {
				opts = append(opts, alma.WithSetID(id))
			}

			if name != "" {
				opts = append(opts, alma.WithSetName(name))
			}

			members, err := client.RecSet(alma.Zone(zone), env, opts...).Members(ctx)
			if err != nil {
				return err
			}

			return renderMembers(cmd, members)
		},
	}

	cmd.Flags().StringVarP(&zone, "zone", "z", "NZ", "zone code")
	cmd.Flags().StringVar(&id, "id", "", "set id")
	cmd.Flags().StringVar(&name, "name", "", "set name")

	return cmd
}
