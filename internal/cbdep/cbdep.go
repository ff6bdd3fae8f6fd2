package cbdep

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/griels/cbdep/internal/cache"
	"github.com/griels/cbdep/internal/catalog"
	"github.com/griels/cbdep/internal/installer"
	"github.com/griels/cbdep/internal/platform"
	"github.com/griels/cbdep/internal/utils/logger"
)

// CacheDirName is the download cache directory under the user's home.
const CacheDirName = ".cbdepcache"

// Tool bundles the pieces every command needs: the download cache, the
// target platform and the package descriptor locator.
type Tool struct {
	cache   *cache.Cache
	plat    platform.Platform
	locator catalog.Locator
	out     io.Writer
}

// Options configures New.
type Options struct {
	// Platform overrides platform detection with a single identifier.
	Platform string
	// Out receives command output. Defaults to stdout.
	Out io.Writer
}

// New builds a Tool wired to the user's cache directory and the detected or
// overridden target platform.
func New(opts Options) (*Tool, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	var plat platform.Platform
	if opts.Platform != "" {
		plat = platform.Override(opts.Platform)
	} else {
		plat, err = platform.Detect()
		if err != nil {
			return nil, err
		}
	}

	locator, err := catalog.NewLocator()
	if err != nil {
		return nil, err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return &Tool{
		cache:   cache.New(filepath.Join(home, CacheDirName)),
		plat:    plat,
		locator: locator,
		out:     out,
	}, nil
}

// CacheRequest carries the arguments of the cache command.
type CacheRequest struct {
	URL     string
	Recache bool
	Report  bool
	Output  string
}

// DoCache downloads a URL into the local cache. Report prints the cached
// filename and Output copies the cached file to another location.
func (t *Tool) DoCache(req CacheRequest) error {
	if _, err := t.cache.Get(req.URL, req.Recache); err != nil {
		return err
	}

	if req.Report {
		if err := t.cache.Report(req.URL, t.out); err != nil {
			return err
		}
	}
	if req.Output != "" {
		if err := t.cache.Save(req.URL, req.Output); err != nil {
			return err
		}
	}
	return nil
}

// InstallRequest carries the arguments of the install command.
type InstallRequest struct {
	Package    string
	Version    string
	X32        bool
	ConfigFile string
	Dir        string
	BaseURL    string
	CacheOnly  bool
	Report     bool
	Output     string
	Recache    bool
}

// DoInstall installs a package version into the requested directory. The
// directory defaults to "install" under the current working directory.
func (t *Tool) DoInstall(req InstallRequest) error {
	dir := req.Dir
	if dir == "" {
		dir = "install"
	}
	installDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	inst, err := installer.FromConfig(t.locator.Resolve(req.ConfigFile), t.cache, t.plat)
	if err != nil {
		return err
	}
	inst.SetCacheOnly(req.CacheOnly)
	inst.SetRecache(req.Recache)

	if err := inst.Install(req.Package, req.Version, req.X32, req.BaseURL, installDir); err != nil {
		return err
	}

	if req.Report || req.Output != "" {
		if inst.LastFetched() == "" {
			return fmt.Errorf("install plan for %s downloaded no files", req.Package)
		}
	}
	if req.Report {
		if _, err := fmt.Fprintln(t.out, inst.LastFetched()); err != nil {
			return err
		}
	}
	if req.Output != "" {
		logger.Logger().Debugf("Copying downloaded file to %s", req.Output)
		if err := cache.CopyPreserving(inst.LastFetched(), req.Output); err != nil {
			return err
		}
	}
	return nil
}

// DoPlatform prints the identifiers of the target platform, most specific
// first.
func (t *Tool) DoPlatform() {
	logger.Logger().Debugf("Determining platform...")
	fmt.Fprintln(t.out, strings.Join(t.plat.Names(), " "))
}

// ListRequest carries the arguments of the list command.
type ListRequest struct {
	ConfigFile string
}

// DoList prints every package name the descriptor defines, detailed and
// classic combined, in sorted order.
func (t *Tool) DoList(req ListRequest) error {
	cat, err := catalog.Load(t.locator.Resolve(req.ConfigFile))
	if err != nil {
		return err
	}

	fmt.Fprintln(t.out, "Available packages (not all may be available on all platforms):")
	for _, name := range cat.Names() {
		fmt.Fprintf(t.out, "  %s\n", name)
	}
	fmt.Fprintln(t.out)
	return nil
}
