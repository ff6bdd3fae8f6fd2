package main

import (
	"github.com/spf13/cobra"
)

// createPlatformCommand creates the platform subcommand
func createPlatformCommand() *cobra.Command {
	platformCmd := &cobra.Command{
		Use:   "platform",
		Short: "Print the identifiers of the current platform",
		Args:  cobra.NoArgs,
		RunE:  executePlatform,
	}
	return platformCmd
}

// executePlatform handles the platform command execution logic
func executePlatform(cmd *cobra.Command, args []string) error {
	tool, err := newTool(cmd)
	if err != nil {
		return err
	}

	tool.DoPlatform()
	return nil
}
