package main

import (
	"github.com/spf13/cobra"

	"github.com/griels/cbdep/internal/cbdep"
)

// List command flags
var (
	listConfig string // Alternate package descriptor
)

// createListCommand creates the list subcommand
func createListCommand() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the packages the install command knows about",
		Args:  cobra.NoArgs,
		RunE:  executeList,
	}

	// Add flags
	listCmd.Flags().StringVarP(&listConfig, "config-file", "c", "",
		"Package descriptor file to use instead of the default")
	return listCmd
}

// executeList handles the list command execution logic
func executeList(cmd *cobra.Command, args []string) error {
	tool, err := newTool(cmd)
	if err != nil {
		return err
	}

	return tool.DoList(cbdep.ListRequest{ConfigFile: listConfig})
}
