package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/griels/cbdep/internal/cbdep"
	"github.com/griels/cbdep/internal/utils/logger"
)

// Global command flags
var (
	flagDebug    bool   // Verbose logging
	flagPlatform string // Override platform detection
)

// errNoCommand reports an invocation without a subcommand.
var errNoCommand = errors.New("no command given")

// createRootCommand creates the cbdep root command
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cbdep",
		Short: "Download and install third-party dependencies",
		Long: `cbdep downloads build dependencies described by a package
		descriptor into a local URL-keyed cache and unpacks them into an
		installation directory. Archives are only downloaded once; later
		installs of the same version are served from the cache.`,
		Args: cobra.NoArgs,

		// Global flags live on the root command itself rather than being
		// persistent, so the install command is free to use -d for --dir.
		// They must be given before the subcommand name.
		TraverseChildren: true,
		SilenceUsage:     true,
		SilenceErrors:    true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(requestedLogLevel())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return err
			}
			return errNoCommand
		},
	}

	// Add flags
	rootCmd.Flags().BoolVarP(&flagDebug, "debug", "d", false,
		"Show debugging output")
	rootCmd.Flags().StringVarP(&flagPlatform, "platform", "p", "",
		"Override the detected platform identifier")

	rootCmd.AddCommand(createCacheCommand())
	rootCmd.AddCommand(createInstallCommand())
	rootCmd.AddCommand(createPlatformCommand())
	rootCmd.AddCommand(createListCommand())

	return rootCmd
}

// requestedLogLevel maps the debug flag to a log level name.
func requestedLogLevel() string {
	if flagDebug {
		return "debug"
	}
	return "info"
}

// newTool builds the Tool shared by all commands, honoring the global
// platform override.
func newTool(cmd *cobra.Command) (*cbdep.Tool, error) {
	return cbdep.New(cbdep.Options{
		Platform: flagPlatform,
		Out:      cmd.OutOrStdout(),
	})
}
