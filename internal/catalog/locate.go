package catalog

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the package descriptor filename looked up in either run
// mode.
const ConfigFileName = "cbdep.config"

// RunMode distinguishes a bundled executable, which ships its own package
// descriptor next to the binary, from a live run that reads the user's copy.
type RunMode int

const (
	// RunModeLive reads the descriptor from the user's home directory.
	RunModeLive RunMode = iota
	// RunModeBundled reads the descriptor shipped next to the executable.
	RunModeBundled
)

func (m RunMode) String() string {
	if m == RunModeBundled {
		return "bundled"
	}
	return "live"
}

// Locator resolves the package descriptor path for this process.
type Locator struct {
	Mode   RunMode
	Home   string
	ExeDir string
}

// NewLocator inspects the running executable and the environment. The mode
// is decided once at startup: bundled when a descriptor sits next to the
// executable, live otherwise.
func NewLocator() (Locator, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Locator{}, fmt.Errorf("cannot determine home directory: %w", err)
	}

	loc := Locator{Mode: RunModeLive, Home: home}

	exe, err := os.Executable()
	if err == nil {
		loc.ExeDir = filepath.Dir(exe)
		loc.Mode = detectMode(loc.ExeDir)
	}

	return loc, nil
}

// detectMode returns bundled when exeDir carries a package descriptor.
func detectMode(exeDir string) RunMode {
	if exeDir == "" {
		return RunModeLive
	}
	if _, err := os.Stat(filepath.Join(exeDir, ConfigFileName)); err == nil {
		return RunModeBundled
	}
	return RunModeLive
}

// Resolve returns the descriptor path to load. An explicit path always wins;
// otherwise the run mode decides between the bundled copy and the home
// directory.
func (l Locator) Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if l.Mode == RunModeBundled {
		return filepath.Join(l.ExeDir, ConfigFileName)
	}
	return filepath.Join(l.Home, ConfigFileName)
}
