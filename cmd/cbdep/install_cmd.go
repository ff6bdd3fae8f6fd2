package main

import (
	"github.com/spf13/cobra"

	"github.com/griels/cbdep/internal/cbdep"
)

// Install command flags
var (
	installX32       bool   // Request the 32-bit build
	installConfig    string // Alternate package descriptor
	installDir       string // Directory to unpack into
	installBaseURL   string // Alternate download location
	installCacheOnly bool   // Download without installing
	installReport    bool   // Print the downloaded filename
	installOutput    string // Copy the downloaded file to this path
	installRecache   bool   // Force a fresh download
)

// createInstallCommand creates the install subcommand
func createInstallCommand() *cobra.Command {
	installCmd := &cobra.Command{
		Use:   "install [flags] PACKAGE VERSION",
		Short: "Download and unpack a package version",
		Long: `Install looks the package up in the descriptor, downloads the
		archive for this platform into the cache and unpacks it into the
		installation directory.`,
		Args: cobra.ExactArgs(2),
		RunE: executeInstall,
	}

	// Add flags
	installCmd.Flags().BoolVarP(&installX32, "x32", "3", false,
		"Download the 32-bit build (only some packages provide one)")
	installCmd.Flags().StringVarP(&installConfig, "config-file", "c", "",
		"Package descriptor file to use instead of the default")
	installCmd.Flags().StringVarP(&installDir, "dir", "d", "install",
		"Directory to unpack into (not needed by all packages)")
	installCmd.Flags().StringVarP(&installBaseURL, "base-url", "b", "",
		"Alternate base URL for downloads")
	installCmd.Flags().BoolVarP(&installCacheOnly, "cache-only", "n", false,
		"Populate the download cache without installing")
	installCmd.Flags().BoolVarP(&installReport, "report", "r", false,
		"Print the local filename of the downloaded archive")
	installCmd.Flags().StringVarP(&installOutput, "output", "o", "",
		"Copy the downloaded archive to this filename")
	installCmd.Flags().BoolVar(&installRecache, "recache", false,
		"Download the archive again even when already cached")
	return installCmd
}

// executeInstall handles the install command execution logic
func executeInstall(cmd *cobra.Command, args []string) error {
	tool, err := newTool(cmd)
	if err != nil {
		return err
	}

	return tool.DoInstall(cbdep.InstallRequest{
		Package:    args[0],
		Version:    args[1],
		X32:        installX32,
		ConfigFile: installConfig,
		Dir:        installDir,
		BaseURL:    installBaseURL,
		CacheOnly:  installCacheOnly,
		Report:     installReport,
		Output:     installOutput,
		Recache:    installRecache,
	})
}
