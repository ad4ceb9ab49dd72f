package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/cmd/alma/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "alma",
	Short: "Alma API command line tool",
	Long: `A command-line interface for the Alma library services platform API.

Records are read with the API key matching the zone, area and environment
of each call, and saved versions land in the snapshot store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	settings := commands.Settings()
	flags := rootCmd.PersistentFlags()

	flags.StringP("config", "c", "", "config file (default is $HOME/.alma/config.yml)")
	flags.StringP("api", "a", "", "API endpoint URL")
	flags.StringP("keys", "k", "", "API keys file (default is $alma_api_keys)")
	flags.StringP("output", "o", "", "output format (table, json, yaml)")
	flags.StringP("env", "e", "P", "environment, P for production or S for sandbox")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.String("snapshot-root", "", "root directory of saved records")
	flags.String("log-dir", "", "directory of the process log")

	bindings := map[string]string{
		"api_endpoint":     "api",
		"keys_file":        "keys",
		commands.KeyOutput: "output",
		commands.KeyEnv:    "env",
		"debug":            "verbose",
		"snapshot_root":    "snapshot-root",
		commands.KeyLogDir: "log-dir",
	}

	for key, flag := range bindings {
		_ = settings.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewBibsCommand())
	rootCmd.AddCommand(commands.NewUsersCommand())
	rootCmd.AddCommand(commands.NewCollectionsCommand())
	rootCmd.AddCommand(commands.NewSetsCommand())
	rootCmd.AddCommand(commands.NewSnapshotsCommand())
}

func initConfig() {
	settings := commands.Settings()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		settings.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}

		settings.AddConfigPath(filepath.Join(home, ".alma"))
		settings.SetConfigType("yml")
		settings.SetConfigName("config")
	}

	if err := settings.ReadInConfig(); err == nil {
		if settings.GetBool("debug") {
			fmt.Fprintln(os.Stderr, "Using config file:", settings.ConfigFileUsed())
		}
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
