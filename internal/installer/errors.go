package installer

import "fmt"

// UnsupportedPlatformError reports that a package has no install block
// matching the target platform.
type UnsupportedPlatformError struct {
	Package  string
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("package %s is not supported on platform %s", e.Package, e.Platform)
}

// Error wraps any failure while installing a specific package version.
type Error struct {
	Package string
	Version string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to install %s %s: %v", e.Package, e.Version, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
