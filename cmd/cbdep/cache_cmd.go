package main

import (
	"github.com/spf13/cobra"

	"github.com/griels/cbdep/internal/cbdep"
)

// Cache command flags
var (
	cacheReport  bool   // Print the cached filename
	cacheOutput  string // Copy the cached file to this path
	cacheRecache bool   // Force a fresh download
)

// createCacheCommand creates the cache subcommand
func createCacheCommand() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache [flags] URL",
		Short: "Add a URL to the local download cache",
		Args:  cobra.ExactArgs(1),
		RunE:  executeCache,
	}

	// Add flags
	cacheCmd.Flags().BoolVarP(&cacheReport, "report", "r", false,
		"Print the local filename the URL is cached as")
	cacheCmd.Flags().StringVarP(&cacheOutput, "output", "o", "",
		"Copy the cached file to this filename")
	cacheCmd.Flags().BoolVar(&cacheRecache, "recache", false,
		"Download the URL again even when already cached")
	return cacheCmd
}

// executeCache handles the cache command execution logic
func executeCache(cmd *cobra.Command, args []string) error {
	tool, err := newTool(cmd)
	if err != nil {
		return err
	}

	return tool.DoCache(cbdep.CacheRequest{
		URL:     args[0],
		Recache: cacheRecache,
		Report:  cacheReport,
		Output:  cacheOutput,
	})
}
