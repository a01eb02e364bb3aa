package main

import (
	"github.com/spf13/cobra"
)

const (
	cliName        = "bly"
	cliDescription = "synchronous action dispatcher with Lua plugins"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	Debug      bool
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   cliName,
		Short: cliDescription,
		Long: `bly dispatches named actions to registered handlers, one at a time.
Handlers can wait for each other, reporters build a results snapshot after
every dispatch, and plugins written in Lua register both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.ConfigPath, "config", "c", "", "path to configuration file (default ~/.config/bly/config.yaml)")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.LogFormat, "log-format", "", "log format (console, json); default depends on the terminal")
	pf.BoolVarP(&flags.Debug, "debug", "d", false, "enable debug logging")

	root.AddCommand(
		newRunCmd(&flags),
		newViewCmd(&flags),
		newPluginsCmd(&flags),
		newVersionCmd(),
	)
	return root
}
