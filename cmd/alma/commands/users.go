package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// NewUsersCommand creates the users command group
func NewUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Search user accounts",
	}

	cmd.AddCommand(newUsersSearchCommand())

	return cmd
}

type userView struct {
	PrimaryID string `json:"primary_id" yaml:"primary_id"`
	Zone      string `json:"zone"       yaml:"zone"`
}

func newUsersSearchCommand() *cobra.Command {
	var zone string

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search users with an Alma query",
		Long:  `Search users with an Alma query such as "email~jdoe@example.com". Zone "all" searches every institution zone of the keys file.`,
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

			users, err := client.FetchUsers(ctx, args[0], alma.Zone(zone), env)
			if err != nil {
				return err
			}

			views := make([]userView, 0, len(users))
			rows := make([][]string, 0, len(users))

			for _, user := range users {
				views = append(views, userView{PrimaryID: user.PrimaryID(), Zone: string(user.Zone())})
				rows = append(rows, []string{user.PrimaryID(), string(user.Zone())})
			}

			out := cmd.OutOrStdout()

			return Render(out, OutputFormat(out), []string{"Primary ID", "Zone"}, rows, views)
		},
	}

	cmd.Flags().StringVarP(&zone, "zone", "z", constants.AllZones, `zone code or "all"`)

	return cmd
}
