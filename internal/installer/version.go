package installer

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// versionVariables derives the VERSION_* template variables from a version
// string. Versions that do not parse as semver, such as the four-segment
// JDK scheme 11.0.14.1, fall back to a best-effort split; segments that
// cannot be derived stay empty.
func versionVariables(version string) Variables {
	vars := Variables{
		"VERSION":       version,
		"VERSION_MAJOR": "",
		"VERSION_MINOR": "",
		"VERSION_PATCH": "",
		"VERSION_BUILD": "",
	}

	if v, err := semver.NewVersion(version); err == nil {
		vars["VERSION_MAJOR"] = strconv.FormatUint(v.Major(), 10)
		vars["VERSION_MINOR"] = strconv.FormatUint(v.Minor(), 10)
		vars["VERSION_PATCH"] = strconv.FormatUint(v.Patch(), 10)
		if v.Metadata() != "" {
			vars["VERSION_BUILD"] = v.Metadata()
		} else if v.Prerelease() != "" {
			vars["VERSION_BUILD"] = v.Prerelease()
		}
		return vars
	}

	rest := version
	if at := strings.IndexAny(rest, "+-"); at >= 0 {
		vars["VERSION_BUILD"] = rest[at+1:]
		rest = rest[:at]
	}

	parts := strings.Split(rest, ".")
	for i, key := range []string{"VERSION_MAJOR", "VERSION_MINOR", "VERSION_PATCH"} {
		if i < len(parts) {
			vars[key] = parts[i]
		}
	}
	if len(parts) > 3 && vars["VERSION_BUILD"] == "" {
		vars["VERSION_BUILD"] = strings.Join(parts[3:], ".")
	}

	return vars
}
