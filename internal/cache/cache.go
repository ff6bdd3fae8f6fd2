package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/griels/cbdep/internal/utils/logger"
	"github.com/griels/cbdep/internal/utils/network"
)

// Error describes a failed cache operation.
type Error struct {
	Op  string // "fetch", "save", "seed", "report"
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s for %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cache stores downloaded files keyed by their source URL. Each URL maps to
// <root>/<sha256[0:2]>/<sha256>/<basename> where sha256 is the digest of the
// full URL string. Entries never expire.
type Cache struct {
	root   string
	client *http.Client
}

// New returns a cache rooted at directory.
func New(directory string) *Cache {
	return &Cache{
		root:   directory,
		client: network.NewHTTPClient(),
	}
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// Path returns the filename a URL maps to, whether or not it is cached yet.
func (c *Cache) Path(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		name = "download"
	}

	sum := sha256.Sum256([]byte(rawURL))
	digest := hex.EncodeToString(sum[:])
	return filepath.Join(c.root, digest[:2], digest, name), nil
}

// Has reports whether a URL is already cached.
func (c *Cache) Has(rawURL string) bool {
	filename, err := c.Path(rawURL)
	if err != nil {
		return false
	}
	_, err = os.Stat(filename)
	return err == nil
}

// Get returns the cached filename for a URL, downloading it first when it is
// not cached yet. recache forces a fresh download even on a cache hit.
func (c *Cache) Get(rawURL string, recache bool) (string, error) {
	filename, err := c.Path(rawURL)
	if err != nil {
		return "", &Error{Op: "fetch", URL: rawURL, Err: err}
	}

	if !recache {
		if _, err := os.Stat(filename); err == nil {
			logger.Logger().Debugf("Cache hit for %s: %s", rawURL, filename)
			return filename, nil
		}
	}

	if err := c.download(rawURL, filename); err != nil {
		return "", &Error{Op: "fetch", URL: rawURL, Err: err}
	}
	return filename, nil
}

// download fetches a URL into dest. The body is written to a uniquely named
// temporary file in the same directory and renamed into place, so a
// half-written download is never visible under the final name.
func (c *Cache) download(rawURL, dest string) error {
	log := logger.Logger()
	log.Infof("Downloading %s", rawURL)

	resp, err := c.client.Get(rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp := filepath.Join(dir, ".download-"+uuid.NewString())
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetDescription(fmt.Sprintf("downloading %s", filepath.Base(dest))),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	_, err = io.Copy(io.MultiWriter(out, bar), resp.Body)
	closeErr := out.Close()
	_ = bar.Finish()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return err
	}

	log.Debugf("Downloaded %s to %s", rawURL, dest)
	return nil
}

// Report writes the cached filename for a URL to w. The URL must already be
// cached.
func (c *Cache) Report(rawURL string, w io.Writer) error {
	filename, err := c.Path(rawURL)
	if err != nil {
		return &Error{Op: "report", URL: rawURL, Err: err}
	}
	if _, err := os.Stat(filename); err != nil {
		return &Error{Op: "report", URL: rawURL, Err: err}
	}
	_, err = fmt.Fprintln(w, filename)
	return err
}

// Save copies the cached file for a URL to dest, fetching it first if
// necessary. dest may name a directory, in which case the file keeps its
// basename.
func (c *Cache) Save(rawURL, dest string) error {
	src, err := c.Get(rawURL, false)
	if err != nil {
		return err
	}
	if err := CopyPreserving(src, dest); err != nil {
		return &Error{Op: "save", URL: rawURL, Err: err}
	}
	return nil
}

// Put seeds the cache slot for a URL from a local file without downloading.
func (c *Cache) Put(rawURL, file string) error {
	filename, err := c.Path(rawURL)
	if err != nil {
		return &Error{Op: "seed", URL: rawURL, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return &Error{Op: "seed", URL: rawURL, Err: err}
	}
	if err := CopyPreserving(file, filename); err != nil {
		return &Error{Op: "seed", URL: rawURL, Err: err}
	}
	logger.Logger().Debugf("Seeded cache for %s from %s", rawURL, file)
	return nil
}

// CopyPreserving copies src to dest, keeping the file mode and modification
// time. A dest naming an existing directory receives the file under src's
// basename.
func CopyPreserving(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if destInfo, err := os.Stat(dest); err == nil && destInfo.IsDir() {
		dest = filepath.Join(dest, filepath.Base(src))
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	// OpenFile's mode only applies when dest is created, not when it already
	// existed.
	if err := os.Chmod(dest, info.Mode()); err != nil {
		return err
	}
	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}
