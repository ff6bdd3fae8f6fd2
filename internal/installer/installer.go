package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/griels/cbdep/internal/cache"
	"github.com/griels/cbdep/internal/catalog"
	"github.com/griels/cbdep/internal/platform"
	"github.com/griels/cbdep/internal/utils/logger"
	"github.com/griels/cbdep/internal/utils/shell"
)

// Installer executes package install plans from a catalog against the local
// filesystem.
type Installer struct {
	cat       *catalog.Catalog
	cache     *cache.Cache
	plat      platform.Platform
	cacheOnly bool
	recache   bool

	// lastFetched is the cache filename of the most recently downloaded
	// artifact. With multiple url actions only the final one is reported.
	lastFetched string
}

// FromConfig loads the descriptor at path and returns an Installer bound to
// the given cache and target platform.
func FromConfig(path string, c *cache.Cache, p platform.Platform) (*Installer, error) {
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	return &Installer{cat: cat, cache: c, plat: p}, nil
}

// SetCacheOnly restricts Install to downloading artifacts, skipping every
// step that touches the install directory.
func (inst *Installer) SetCacheOnly(cacheOnly bool) {
	inst.cacheOnly = cacheOnly
}

// SetRecache forces fresh downloads even for artifacts already cached.
func (inst *Installer) SetRecache(recache bool) {
	inst.recache = recache
}

// LastFetched returns the cache filename of the most recently downloaded
// artifact, or "" when nothing has been fetched.
func (inst *Installer) LastFetched() string {
	return inst.lastFetched
}

// Catalog returns the loaded package catalog.
func (inst *Installer) Catalog() *catalog.Catalog {
	return inst.cat
}

// Install resolves and executes the install plan for a package version. x32
// requests the 32-bit build where one exists, baseURL overrides the
// descriptor's download location and installDir is the absolute directory to
// unpack into.
func (inst *Installer) Install(pkg, version string, x32 bool, baseURL, installDir string) error {
	entry, ok := inst.cat.Lookup(pkg)
	if !ok {
		return &catalog.UnknownPackageError{Name: pkg}
	}
	if entry.Classic {
		return &catalog.UnknownPackageError{Name: pkg, Classic: true}
	}

	block := inst.selectBlock(entry.Blocks)
	if block == nil {
		return &UnsupportedPlatformError{Package: pkg, Platform: inst.plat.String()}
	}

	logger.Logger().Infof("Installing %s %s", pkg, version)

	sess, err := inst.newSession(pkg, version, x32, baseURL, installDir, block)
	if err != nil {
		return &Error{Package: pkg, Version: version, Err: err}
	}

	for i := range block.Actions {
		if err := sess.run(&block.Actions[i]); err != nil {
			return &Error{Package: pkg, Version: version, Err: err}
		}
	}

	logger.Logger().Infof("Done installing %s %s", pkg, version)
	return nil
}

// selectBlock returns the first block whose if_platform list matches the
// target platform. Descriptors order their blocks most specific first, so
// first match wins.
func (inst *Installer) selectBlock(blocks []catalog.PlatformBlock) *catalog.PlatformBlock {
	for i := range blocks {
		if inst.plat.Matches(blocks[i].Platforms) {
			return &blocks[i]
		}
	}
	return nil
}

// session carries the state of one Install call: the resolved template
// variables, the block environment and the effective install directory,
// which install_dir actions may change mid-plan.
type session struct {
	inst       *Installer
	pkg        string
	version    string
	installDir string
	vars       Variables
	env        map[string]string
}

func (inst *Installer) newSession(pkg, version string, x32 bool, baseURL, installDir string, block *catalog.PlatformBlock) (*session, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	arch := inst.plat.Arch()
	if x32 {
		arch = "x86"
	}
	bits := "64"
	if arch == "x86" {
		bits = "32"
	}

	vars := versionVariables(version)
	vars["PLATFORM"] = inst.plat.String()
	vars["ARCH"] = arch
	vars["BITS"] = bits
	vars["INSTALL_DIR"] = installDir
	vars["HOME"] = home

	base := baseURL
	if base == "" {
		base = block.BaseURL
	}
	if base != "" {
		vars["BASE_URL"] = base
	}

	return &session{
		inst:       inst,
		pkg:        pkg,
		version:    version,
		installDir: installDir,
		vars:       vars,
		env:        block.Env,
	}, nil
}

func (s *session) run(action *catalog.Action) error {
	switch action.Kind() {
	case "url":
		return s.fetch(action)
	case "unarchive":
		return s.unarchive(action)
	case "rename_dir":
		return s.renameDir(action)
	case "install_dir":
		return s.setInstallDir(action)
	case "run":
		return s.execute(action)
	default:
		return fmt.Errorf("action carries no directive")
	}
}

// fetch downloads every URL of the action, remembering the last one for
// report and output, then verifies checksum and signature when present.
func (s *session) fetch(action *catalog.Action) error {
	for _, raw := range action.URL {
		url, err := Expand(raw, s.vars)
		if err != nil {
			return err
		}
		filename, err := s.inst.cache.Get(url, s.inst.recache)
		if err != nil {
			return err
		}
		s.inst.lastFetched = filename
	}

	artifact := s.inst.lastFetched
	if action.Checksum != "" {
		if err := verifyChecksum(artifact, action.Checksum); err != nil {
			return err
		}
	}
	if action.Signature != "" {
		if err := s.verifyPGP(artifact, action); err != nil {
			return err
		}
	}
	return nil
}

// verifyPGP fetches the detached signature and the signing key, then checks
// the artifact against them. Signature and key downloads do not count as
// fetched artifacts.
func (s *session) verifyPGP(artifact string, action *catalog.Action) error {
	if action.KeyURL == "" {
		return fmt.Errorf("signature for %s requires key_url", s.pkg)
	}

	sigURL, err := Expand(action.Signature, s.vars)
	if err != nil {
		return err
	}
	sigFile, err := s.inst.cache.Get(sigURL, s.inst.recache)
	if err != nil {
		return err
	}

	keyURL, err := Expand(action.KeyURL, s.vars)
	if err != nil {
		return err
	}
	keyFile, err := s.inst.cache.Get(keyURL, s.inst.recache)
	if err != nil {
		return err
	}

	return verifySignature(artifact, sigFile, keyFile)
}

func (s *session) unarchive(action *catalog.Action) error {
	if s.inst.cacheOnly {
		logger.Logger().Debugf("Skipping unarchive of %s (cache only)", s.pkg)
		return nil
	}
	if s.inst.lastFetched == "" {
		return fmt.Errorf("unarchive requires a prior url action")
	}

	if err := Unarchive(s.inst.lastFetched, s.installDir); err != nil {
		return err
	}

	if action.Unarchive.TopLevelDir != "" {
		top, err := Expand(action.Unarchive.TopLevelDir, s.vars)
		if err != nil {
			return err
		}
		if _, err := os.Stat(filepath.Join(s.installDir, top)); err != nil {
			return fmt.Errorf("archive did not produce expected directory %s: %w", top, err)
		}
	}
	return nil
}

// renameDir renames the directory the archive unpacked to into the
// canonical <package>-<version> name.
func (s *session) renameDir(action *catalog.Action) error {
	if s.inst.cacheOnly {
		logger.Logger().Debugf("Skipping rename_dir for %s (cache only)", s.pkg)
		return nil
	}

	from, err := Expand(action.RenameDir, s.vars)
	if err != nil {
		return err
	}

	src := filepath.Join(s.installDir, from)
	dest := filepath.Join(s.installDir, s.pkg+"-"+s.version)
	logger.Logger().Debugf("Renaming %s to %s", src, dest)
	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("renaming unpacked directory: %w", err)
	}
	return nil
}

// setInstallDir redirects the remaining actions to a different directory.
func (s *session) setInstallDir(action *catalog.Action) error {
	if s.inst.cacheOnly {
		logger.Logger().Debugf("Skipping install_dir for %s (cache only)", s.pkg)
		return nil
	}

	dir, err := Expand(action.InstallDir, s.vars)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	logger.Logger().Debugf("Install directory is now %s", abs)
	s.installDir = abs
	s.vars["INSTALL_DIR"] = abs
	return nil
}

// execute runs the action's shell commands in the install directory with
// the block's environment applied.
func (s *session) execute(action *catalog.Action) error {
	if s.inst.cacheOnly {
		logger.Logger().Debugf("Skipping run commands for %s (cache only)", s.pkg)
		return nil
	}

	if err := os.MkdirAll(s.installDir, 0755); err != nil {
		return err
	}
	env, err := s.environ()
	if err != nil {
		return err
	}

	for _, raw := range action.Run {
		cmdStr, err := Expand(raw, s.vars)
		if err != nil {
			return err
		}
		if _, err := shell.ExecCmd(cmdStr, s.installDir, env); err != nil {
			return err
		}
	}
	return nil
}

// environ expands the block's env entries against the current variables.
// Expansion happens per run action so install_dir changes are visible.
func (s *session) environ() ([]string, error) {
	if len(s.env) == 0 {
		return nil, nil
	}

	env := make([]string, 0, len(s.env))
	for key, raw := range s.env {
		value, err := Expand(raw, s.vars)
		if err != nil {
			return nil, err
		}
		env = append(env, key+"="+value)
	}
	sort.Strings(env)
	return env, nil
}
