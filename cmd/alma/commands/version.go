package commands

import (
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			type VersionInfo struct {
				Version string `json:"version" yaml:"version"`
				Commit  string `json:"commit"  yaml:"commit"`
				Built   string `json:"built"   yaml:"built"`
			}

			out := cmd.OutOrStdout()

			return Render(out, OutputFormat(out),
				[]string{"Property", "Value"},
				[][]string{{"Version", version}, {"Commit", commit}, {"Built", date}},
				VersionInfo{Version: version, Commit: commit, Built: date})
		},
	}
}
