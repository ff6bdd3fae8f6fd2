package cbdep

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/griels/cbdep/internal/cache"
	"github.com/griels/cbdep/internal/catalog"
	"github.com/griels/cbdep/internal/platform"
)

// archiveBytes builds a small tool-1.0.0 tar.gz archive.
func archiveBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	dir := &tar.Header{Name: "tool-1.0.0/", Typeflag: tar.TypeDir, Mode: 0755}
	if err := tw.WriteHeader(dir); err != nil {
		t.Fatalf("write tar header: %v", err)
	}
	content := "#!/bin/sh\necho tool\n"
	file := &tar.Header{Name: "tool-1.0.0/bin/tool", Typeflag: tar.TypeReg, Mode: 0755, Size: int64(len(content))}
	if err := tw.WriteHeader(file); err != nil {
		t.Fatalf("write tar header: %v", err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatalf("write tar content: %v", err)
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
	return buf.Bytes()
}

// newTestTool builds a Tool rooted in a temporary home directory, targeting
// linux/x86_64. catalogYAML, when non-empty, becomes the home descriptor.
func newTestTool(t *testing.T, catalogYAML string) (*Tool, *bytes.Buffer) {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(home, 0755); err != nil {
		t.Fatalf("create home: %v", err)
	}
	if catalogYAML != "" {
		if err := os.WriteFile(filepath.Join(home, catalog.ConfigFileName), []byte(catalogYAML), 0644); err != nil {
			t.Fatalf("write descriptor: %v", err)
		}
	}

	var out bytes.Buffer
	tool := &Tool{
		cache:   cache.New(filepath.Join(home, CacheDirName)),
		plat:    platform.New([]string{"linux"}, "x86_64"),
		locator: catalog.Locator{Mode: catalog.RunModeLive, Home: home},
		out:     &out,
	}
	return tool, &out
}

func installCatalog(serverURL string) string {
	return fmt.Sprintf(`packages:
  tool:
    - if_platform: [linux]
      actions:
        - url: %s/pkgs/tool-${VERSION}.tar.gz
        - unarchive:

classic-cbdeps:
  packages: []
`, serverURL)
}

func newArchiveServer(t *testing.T) *httptest.Server {
	t.Helper()
	archive := archiveBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".tar.gz") {
			w.Write(archive)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tool, err := New(Options{Platform: "linux"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got, want := tool.cache.Root(), filepath.Join(home, CacheDirName); got != want {
		t.Errorf("cache root = %q, want %q", got, want)
	}
	if tool.plat.String() != "linux" {
		t.Errorf("platform = %q, want linux", tool.plat.String())
	}
	if tool.out != os.Stdout {
		t.Error("output should default to stdout")
	}
}

func TestDoCache(t *testing.T) {
	srv := newArchiveServer(t)
	tool, out := newTestTool(t, "")
	url := srv.URL + "/pkgs/tool-1.0.0.tar.gz"

	if err := tool.DoCache(CacheRequest{URL: url}); err != nil {
		t.Fatalf("DoCache failed: %v", err)
	}
	if !tool.cache.Has(url) {
		t.Error("URL should be cached")
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be printed without --report, got %q", out.String())
	}

	if err := tool.DoCache(CacheRequest{URL: url, Report: true}); err != nil {
		t.Fatalf("DoCache with report failed: %v", err)
	}
	reported := strings.TrimSpace(out.String())
	if filepath.Base(reported) != "tool-1.0.0.tar.gz" {
		t.Errorf("reported filename = %q, want the cached archive", reported)
	}
	if _, err := os.Stat(reported); err != nil {
		t.Errorf("reported path should exist: %v", err)
	}
}

func TestDoCacheOutput(t *testing.T) {
	srv := newArchiveServer(t)
	tool, _ := newTestTool(t, "")
	url := srv.URL + "/pkgs/tool-1.0.0.tar.gz"
	dest := filepath.Join(t.TempDir(), "saved.tar.gz")

	if err := tool.DoCache(CacheRequest{URL: url, Output: dest}); err != nil {
		t.Fatalf("DoCache failed: %v", err)
	}

	cached, err := tool.cache.Path(url)
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	want, err := os.ReadFile(cached)
	if err != nil {
		t.Fatalf("read cached file: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("output file must be byte-identical to the cached file")
	}
}

func TestDoCacheDownloadError(t *testing.T) {
	srv := newArchiveServer(t)
	tool, _ := newTestTool(t, "")

	err := tool.DoCache(CacheRequest{URL: srv.URL + "/missing.zip"})
	var cacheErr *cache.Error
	if !errors.As(err, &cacheErr) {
		t.Fatalf("expected cache error, got %v", err)
	}
}

func TestDoInstall(t *testing.T) {
	srv := newArchiveServer(t)
	tool, _ := newTestTool(t, installCatalog(srv.URL))
	dir := filepath.Join(t.TempDir(), "deps")

	err := tool.DoInstall(InstallRequest{Package: "tool", Version: "1.0.0", Dir: dir})
	if err != nil {
		t.Fatalf("DoInstall failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tool-1.0.0/bin/tool")); err != nil {
		t.Errorf("expected installed file: %v", err)
	}
}

func TestDoInstallDefaultDir(t *testing.T) {
	srv := newArchiveServer(t)
	tool, _ := newTestTool(t, installCatalog(srv.URL))

	work := t.TempDir()
	t.Chdir(work)

	err := tool.DoInstall(InstallRequest{Package: "tool", Version: "1.0.0"})
	if err != nil {
		t.Fatalf("DoInstall failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(work, "install", "tool-1.0.0/bin/tool")); err != nil {
		t.Errorf("default install directory should be ./install: %v", err)
	}
}

func TestDoInstallReport(t *testing.T) {
	srv := newArchiveServer(t)
	tool, out := newTestTool(t, installCatalog(srv.URL))

	err := tool.DoInstall(InstallRequest{
		Package: "tool",
		Version: "1.0.0",
		Dir:     filepath.Join(t.TempDir(), "deps"),
		Report:  true,
	})
	if err != nil {
		t.Fatalf("DoInstall failed: %v", err)
	}

	reported := strings.TrimSpace(out.String())
	if filepath.Base(reported) != "tool-1.0.0.tar.gz" {
		t.Errorf("reported filename = %q, want the downloaded archive", reported)
	}
	if _, err := os.Stat(reported); err != nil {
		t.Errorf("reported path should exist: %v", err)
	}
}

func TestDoInstallCacheOnlyOutput(t *testing.T) {
	srv := newArchiveServer(t)
	tool, _ := newTestTool(t, installCatalog(srv.URL))
	dir := filepath.Join(t.TempDir(), "deps")
	dest := filepath.Join(t.TempDir(), "artifact.tar.gz")

	err := tool.DoInstall(InstallRequest{
		Package:   "tool",
		Version:   "1.0.0",
		Dir:       dir,
		CacheOnly: true,
		Output:    dest,
	})
	if err != nil {
		t.Fatalf("DoInstall failed: %v", err)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("install directory must not exist in cache-only mode: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	if !bytes.Equal(got, archiveBytes(t)) {
		t.Error("output file must be byte-identical to the served archive")
	}
}

func TestDoInstallExplicitConfig(t *testing.T) {
	srv := newArchiveServer(t)
	tool, _ := newTestTool(t, "")

	cfgPath := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(cfgPath, []byte(installCatalog(srv.URL)), 0644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "deps")
	err := tool.DoInstall(InstallRequest{
		Package:    "tool",
		Version:    "1.0.0",
		ConfigFile: cfgPath,
		Dir:        dir,
	})
	if err != nil {
		t.Fatalf("DoInstall failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tool-1.0.0/bin/tool")); err != nil {
		t.Errorf("expected installed file: %v", err)
	}
}

func TestDoInstallUnknownPackage(t *testing.T) {
	srv := newArchiveServer(t)
	tool, _ := newTestTool(t, installCatalog(srv.URL))

	err := tool.DoInstall(InstallRequest{Package: "nope", Version: "1.0.0", Dir: t.TempDir()})
	var unknown *catalog.UnknownPackageError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownPackageError, got %v", err)
	}
}

func TestDoInstallMissingConfig(t *testing.T) {
	tool, _ := newTestTool(t, "")

	err := tool.DoInstall(InstallRequest{Package: "tool", Version: "1.0.0", Dir: t.TempDir()})
	var catErr *catalog.Error
	if !errors.As(err, &catErr) {
		t.Fatalf("expected catalog error, got %v", err)
	}
	if !strings.Contains(err.Error(), catalog.ConfigFileName) {
		t.Errorf("error should name the descriptor path: %v", err)
	}
}

func TestDoPlatform(t *testing.T) {
	var out bytes.Buffer
	tool := &Tool{
		plat: platform.New([]string{"ubuntu22.04", "ubuntu22", "ubuntu", "debian", "linux"}, "x86_64"),
		out:  &out,
	}

	tool.DoPlatform()

	want := "ubuntu22.04 ubuntu22 ubuntu debian linux\n"
	if out.String() != want {
		t.Errorf("DoPlatform output = %q, want %q", out.String(), want)
	}
}

func TestDoList(t *testing.T) {
	tool, out := newTestTool(t, `packages:
  openjdk:
    - if_platform: [linux]
      actions:
        - url: http://example.invalid/openjdk-${VERSION}.tar.gz
  analytics-jars:
    - if_platform: [linux]
      actions:
        - url: http://example.invalid/analytics-jars-${VERSION}.tar.gz

classic-cbdeps:
  packages:
    - boost
    - openjdk
`)

	if err := tool.DoList(ListRequest{}); err != nil {
		t.Fatalf("DoList failed: %v", err)
	}

	want := "Available packages (not all may be available on all platforms):\n" +
		"  analytics-jars\n" +
		"  boost\n" +
		"  openjdk\n" +
		"\n"
	if out.String() != want {
		t.Errorf("DoList output = %q, want %q", out.String(), want)
	}
}

func TestDoListMissingConfig(t *testing.T) {
	tool, _ := newTestTool(t, "")

	err := tool.DoList(ListRequest{})
	var catErr *catalog.Error
	if !errors.As(err, &catErr) {
		t.Fatalf("expected catalog error, got %v", err)
	}
}
