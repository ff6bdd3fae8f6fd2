package platform

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/griels/cbdep/internal/utils/logger"
	"github.com/griels/cbdep/internal/utils/slice"
)

// OsReleaseFile is the distribution metadata file parsed on Linux hosts.
// Declared as a variable so tests can point it at a fixture.
var OsReleaseFile = "/etc/os-release"

// Platform describes the host packages are installed onto. Names run from
// most specific to most generic, e.g. ubuntu22.04, ubuntu22, ubuntu, linux.
// The first entry is the canonical name.
type Platform struct {
	names []string
	arch  string
}

// Detect resolves the current host into a Platform.
func Detect() (Platform, error) {
	arch := detectArch()

	switch runtime.GOOS {
	case "linux":
		return Platform{names: linuxNames(), arch: arch}, nil
	case "darwin":
		return Platform{names: []string{"macosx", "macos", "mac", "osx"}, arch: arch}, nil
	case "windows":
		return Platform{names: []string{"windows", "win"}, arch: arch}, nil
	default:
		return Platform{}, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// Override returns a Platform carrying exactly the requested name. It is
// used when the caller forces a platform instead of introspecting the host.
func Override(name string) Platform {
	return Platform{names: []string{name}, arch: detectArch()}
}

// New builds a Platform from explicit identifiers, most specific first.
func New(names []string, arch string) Platform {
	return Platform{names: names, arch: arch}
}

// Names returns the platform identifiers from most specific to most generic.
func (p Platform) Names() []string {
	return p.names
}

// String returns the canonical platform name.
func (p Platform) String() string {
	if len(p.names) == 0 {
		return "unknown"
	}
	return p.names[0]
}

// Arch returns the host architecture in the naming used by package URLs
// (x86_64, aarch64, x86).
func (p Platform) Arch() string {
	return p.arch
}

// Matches reports whether any of the candidate identifiers applies to this
// platform.
func (p Platform) Matches(candidates []string) bool {
	return slice.ContainsAny(candidates, p.names)
}

// detectArch maps the Go architecture naming onto the naming used in
// download URLs.
func detectArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "x86"
	default:
		return runtime.GOARCH
	}
}

// linuxNames derives the identifier list for a Linux host from os-release.
// An unreadable or unparseable file degrades to the generic "linux" name.
func linuxNames() []string {
	rel, err := readOsRelease(OsReleaseFile)
	if err != nil {
		logger.Logger().Debugf("cannot read %s: %v", OsReleaseFile, err)
		return []string{"linux"}
	}
	return distroNames(rel.ID, rel.VersionID, rel.IDLike)
}

// osRelease holds the fields of /etc/os-release that drive platform naming.
type osRelease struct {
	ID        string
	VersionID string
	IDLike    []string
}

func readOsRelease(path string) (osRelease, error) {
	var rel osRelease

	file, err := os.Open(path)
	if err != nil {
		return rel, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"")

		switch key {
		case "ID":
			rel.ID = strings.ToLower(value)
		case "VERSION_ID":
			rel.VersionID = value
		case "ID_LIKE":
			// ID_LIKE can contain multiple space-separated values
			rel.IDLike = strings.Fields(strings.ToLower(value))
		}
	}
	if err := scanner.Err(); err != nil {
		return rel, fmt.Errorf("error reading %s: %w", path, err)
	}

	return rel, nil
}

// distroNames builds the most-specific-first identifier list for a
// distribution, e.g. ("ubuntu", "22.04", nil) becomes
// [ubuntu22.04 ubuntu22 ubuntu linux].
func distroNames(id, version string, idLike []string) []string {
	var names []string

	if id != "" {
		if version != "" {
			names = append(names, id+version)
			if major, _, found := strings.Cut(version, "."); found && major != "" {
				names = append(names, id+major)
			}
		}
		names = append(names, id)
	}

	for _, like := range idLike {
		if like != "" && !slice.Contains(names, like) {
			names = append(names, like)
		}
	}

	if !slice.Contains(names, "linux") {
		names = append(names, "linux")
	}

	return names
}
