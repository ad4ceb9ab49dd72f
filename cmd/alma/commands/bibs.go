package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
)

// NewBibsCommand creates the bib command group
func NewBibsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bib",
		Aliases: []string{"bibs"},
		Short:   "Read and save bibliographic records",
	}

	cmd.AddCommand(newBibShowCommand())
	cmd.AddCommand(newBibSaveCommand())
	cmd.AddCommand(newBibHoldingsCommand())

	return cmd
}

type bibFlags struct {
	zone string
}

func (f *bibFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.zone, "zone", "z", "NZ", "zone code, NZ for the network zone")
}

func (f *bibFlags) bib(client alma.Client, mmsID string, env alma.Environment) alma.Bib {
	zone := alma.Zone(f.zone)
	if zone.IsNetwork() {
		return client.NzBib(mmsID, env)
	}

	return client.IzBib(mmsID, zone, env)
}

func newBibShowCommand() *cobra.Command {
	flags := &bibFlags{}

	cmd := &cobra.Command{
		Use:   "show MMS_ID",
		Short: "Print a bibliographic record",
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

			bib := flags.bib(client, args[0], env)

			payload, err := bib.Data(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", bib, err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), payload.String())

			return err
		},
	}

	flags.register(cmd)

	return cmd
}

func newBibSaveCommand() *cobra.Command {
	flags := &bibFlags{}

	var sortFields bool

	cmd := &cobra.Command{
		Use:   "save MMS_ID...",
		Short: "Save snapshots of bibliographic records",
		Args:  cobra.MinimumNArgs(1),
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

			failed := 0

			for _, mmsID := range args {
				bib := flags.bib(client, mmsID, env)
				if sortFields {
					bib.SortFields(ctx)
				}

				bib.Save(ctx)

				if err := entityFailure(bib); err != nil {
					failed++

					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d records not saved", failed, len(args))
			}

			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&sortFields, "sort", false, "sort the MARC fields before saving")

	return cmd
}

type holdingView struct {
	HoldingID string `json:"holding_id" yaml:"holding_id"`
	Library   string `json:"library"    yaml:"library"`
	Location  string `json:"location"   yaml:"location"`
}

func newBibHoldingsCommand() *cobra.Command {
	var zone string

	cmd := &cobra.Command{
		Use:   "holdings MMS_ID",
		Short: "List the holdings of an institution zone record",
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

			holdings, err := client.IzBib(args[0], alma.Zone(zone), env).Holdings(ctx)
			if err != nil {
				return err
			}

			views := make([]holdingView, 0, len(holdings))
			rows := make([][]string, 0, len(holdings))

			for _, holding := range holdings {
				library, _ := holding.Library(ctx)
				location, _ := holding.Location(ctx)

				views = append(views, holdingView{HoldingID: holding.HoldingID(), Library: library, Location: location})
				rows = append(rows, []string{holding.HoldingID(), library, location})
			}

			out := cmd.OutOrStdout()

			return Render(out, OutputFormat(out), []string{"Holding ID", "Library", "Location"}, rows, views)
		},
	}

	cmd.Flags().StringVarP(&zone, "zone", "z", "", "institution zone code")
	_ = cmd.MarkFlagRequired("zone")

	return cmd
}
