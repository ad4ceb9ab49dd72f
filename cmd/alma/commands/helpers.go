package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/alma"
	"github.com/Swiss-Library-Service-Platform/almapiwrapper/pkg/almaclient"
)

// Settings keys owned by the CLI.
const (
	KeyOutput = "output"
	KeyEnv    = "env"
	KeyLogDir = "log_dir"
)

// NotAvailable fills empty table cells.
const NotAvailable = "-"

var settings = almaclient.NewViper()

// Settings returns the configuration shared by every command. Flags, the
// config file and ALMA_* variables all land here.
func Settings() *viper.Viper {
	return settings
}

// OutputFormat returns the --output value. Without flag, tables are written
// to terminals and JSON everywhere else.
func OutputFormat(out io.Writer) string {
	if format := settings.GetString(KeyOutput); format != "" {
		return format
	}

	if file, ok := out.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return constants.FormatTable
	}

	return constants.FormatJSON
}

// Environment returns the --env value.
func Environment() (alma.Environment, error) {
	return alma.ParseEnvironment(settings.GetString(KeyEnv))
}

// CreateClient builds a client from the settings. The log goes to
// <log_dir>/log_alma.txt and to stdout.
func CreateClient(ctx context.Context) (alma.Client, func(), error) {
	config := almaclient.ConfigFromViper(settings)

	logger, logFile, err := alma.NewProcessLogger(settings.GetString(KeyLogDir), "alma")
	if err != nil {
		return nil, nil, err
	}

	config.Logger = logger

	client, err := almaclient.New(ctx, config)
	if err != nil {
		_ = logFile.Close()

		return nil, nil, err
	}

	cleanup := func() {
		_ = client.Close()
		_ = logFile.Close()
	}

	return client, cleanup, nil
}

// Render writes rows as a table, or value as JSON or YAML.
func Render(out io.Writer, format string, headers []string, rows [][]string, value any) error {
	switch format {
	case constants.FormatJSON:
		encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
		encoder.SetIndent("", "  ")

		return encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)

		err := encoder.Encode(value)
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}

		return encoder.Close()
	case constants.FormatTable:
		table := tablewriter.NewWriter(out)
		table.Header(toCells(headers)...)

		for _, row := range rows {
			err := table.Append(toCells(row)...)
			if err != nil {
				return fmt.Errorf("failed to append row: %w", err)
			}
		}

		err := table.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnknownOutputFormat, format)
	}
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, value := range values {
		if value == "" {
			value = NotAvailable
		}

		cells[i] = value
	}

	return cells
}

// memberView is the printable form of a set or collection member.
type memberView struct {
	ID     string `json:"id"     yaml:"id"`
	Entity string `json:"entity" yaml:"entity"`
}

func renderMembers(cmd *cobra.Command, members []alma.Member) error {
	views := make([]memberView, 0, len(members))
	rows := make([][]string, 0, len(members))

	for _, member := range members {
		view := memberView{ID: member.ID}
		if member.Entity != nil {
			view.Entity = member.Entity.String()
		}

		views = append(views, view)
		rows = append(rows, []string{view.ID, view.Entity})
	}

	out := cmd.OutOrStdout()

	return Render(out, OutputFormat(out), []string{"ID", "Entity"}, rows, views)
}

// entityFailure turns the error state of an entity into a command error.
func entityFailure(entity alma.Entity) error {
	if !entity.HasError() {
		return nil
	}

	return entity.Err()
}
