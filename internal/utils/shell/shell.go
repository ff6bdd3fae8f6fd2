package shell

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/griels/cbdep/internal/utils/logger"
)

// getShell returns the preferred shell, falling back to /bin/sh if bash is not available
func getShell() string {
	shells := []string{"/bin/bash", "/usr/bin/bash", "/bin/sh"}
	for _, shell := range shells {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}
	return "/bin/sh" // fallback
}

// ExecCmd executes a command line through the shell and returns its combined
// output. dir is the working directory ("" inherits the current one) and
// extraEnv holds KEY=VALUE pairs appended to the inherited environment.
// Declared as a variable so tests can substitute a recorder.
var ExecCmd = func(cmdStr string, dir string, extraEnv []string) (string, error) {
	log := logger.Logger()
	log.Debugf("Exec: [%s]", cmdStr)

	cmd := exec.Command(getShell(), "-c", cmdStr)
	cmd.Dir = dir
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}

	output, err := cmd.CombinedOutput()
	outputStr := string(output)

	if err != nil {
		if outputStr != "" {
			log.Infof(outputStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", cmdStr, err)
	}
	if outputStr != "" {
		log.Debugf(outputStr)
	}
	return outputStr, nil
}
