package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	// Very first thing: drop LD_LIBRARY_PATH from the environment. cbdep is
	// frequently invoked from build environments that point it at their own
	// bundled libraries, which breaks any tool this process launches.
	// Descriptors that need it for their own commands can set it again
	// through an env block.
	os.Unsetenv("LD_LIBRARY_PATH")

	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd := createRootCommand()
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		// Help was already shown for a bare invocation.
		if !errors.Is(err, errNoCommand) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}
