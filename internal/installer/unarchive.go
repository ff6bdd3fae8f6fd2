package installer

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	rpmutils "github.com/sassoftware/go-rpmutils"
	"github.com/ulikunitz/xz"

	"github.com/griels/cbdep/internal/utils/logger"
)

// Unarchive extracts an archive into destDir, creating the directory if
// needed. The format is chosen by filename extension.
func Unarchive(archive, destDir string) error {
	logger.Logger().Debugf("Unpacking %s into %s", archive, destDir)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}

	name := strings.ToLower(filepath.Base(archive))
	switch {
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		return extractTarGz(archive, destDir)
	case strings.HasSuffix(name, ".tar.xz") || strings.HasSuffix(name, ".txz"):
		return extractTarXz(archive, destDir)
	case strings.HasSuffix(name, ".tar.bz2") || strings.HasSuffix(name, ".tbz2"):
		return extractTarBz2(archive, destDir)
	case strings.HasSuffix(name, ".tar.zst"):
		return extractTarZstd(archive, destDir)
	case strings.HasSuffix(name, ".tar"):
		return extractTarFile(archive, destDir)
	case strings.HasSuffix(name, ".zip"):
		return extractZip(archive, destDir)
	case strings.HasSuffix(name, ".rpm"):
		return extractRpm(archive, destDir)
	default:
		return fmt.Errorf("don't know how to unpack %s", filepath.Base(archive))
	}
}

func extractTarGz(archive, destDir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading gzip stream of %s: %w", filepath.Base(archive), err)
	}
	defer gz.Close()

	return extractTar(gz, destDir)
}

func extractTarXz(archive, destDir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	xzr, err := xz.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading xz stream of %s: %w", filepath.Base(archive), err)
	}

	return extractTar(xzr, destDir)
}

func extractTarBz2(archive, destDir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	return extractTar(bzip2.NewReader(f), destDir)
}

func extractTarZstd(archive, destDir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading zstd stream of %s: %w", filepath.Base(archive), err)
	}
	defer zr.Close()

	return extractTar(zr, destDir)
}

func extractTarFile(archive, destDir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	return extractTar(f, destDir)
}

// extractTar unpacks a tar stream into destDir. Entries that would land
// outside destDir, directly or through a link target, are rejected.
func extractTar(r io.Reader, destDir string) error {
	log := logger.Logger()
	tr := tar.NewReader(r)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		target, err := secureJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			// Keep just-created directories writable while extracting.
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode).Perm()|0700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			os.Remove(target)
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := checkLinkTarget(destDir, target, hdr.Name, hdr.Linkname); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		case tar.TypeLink:
			source, err := secureJoin(destDir, hdr.Linkname)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Link(source, target); err != nil {
				return err
			}
		default:
			log.Debugf("Skipping unsupported archive entry %s", hdr.Name)
		}
	}
}

func extractZip(archive, destDir string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("reading zip %s: %w", filepath.Base(archive), err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		target, err := secureJoin(destDir, f.Name)
		if err != nil {
			return err
		}

		switch {
		case f.FileInfo().IsDir():
			if err := os.MkdirAll(target, f.Mode().Perm()|0700); err != nil {
				return err
			}
		case f.Mode()&os.ModeSymlink != 0:
			linkname, err := readZipEntry(f)
			if err != nil {
				return err
			}
			if err := checkLinkTarget(destDir, target, f.Name, string(linkname)); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(string(linkname), target); err != nil {
				return err
			}
		default:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			os.Remove(target)
			if err := writeZipEntry(f, target); err != nil {
				return err
			}
		}
	}
	return nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	in, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return io.ReadAll(in)
}

func writeZipEntry(f *zip.File, target string) error {
	in, err := f.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func extractRpm(archive, destDir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	rpm, err := rpmutils.ReadRpm(f)
	if err != nil {
		return fmt.Errorf("reading rpm %s: %w", filepath.Base(archive), err)
	}
	if err := rpm.ExpandPayload(destDir); err != nil {
		return fmt.Errorf("expanding rpm payload of %s: %w", filepath.Base(archive), err)
	}
	return nil
}

// secureJoin joins name under dir, rejecting entries that would escape it.
// Existing parent components below dir must be real directories, so an entry
// cannot route through a symlink planted by an earlier one.
func secureJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	clean := filepath.Clean(dir)
	if target == clean {
		return target, nil
	}
	if !strings.HasPrefix(target, clean+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %s escapes destination directory", name)
	}

	path := clean
	for _, part := range strings.Split(strings.TrimPrefix(filepath.Dir(target), clean), string(os.PathSeparator)) {
		if part == "" {
			continue
		}
		path = filepath.Join(path, part)
		info, err := os.Lstat(path)
		if os.IsNotExist(err) {
			break
		}
		if err != nil {
			return "", err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return "", fmt.Errorf("archive entry %s traverses a symlink", name)
		}
	}
	return target, nil
}

// checkLinkTarget rejects symlink targets that would resolve outside destDir.
// A relative target resolves against the link's own parent directory.
func checkLinkTarget(destDir, target, name, linkname string) error {
	link := filepath.FromSlash(linkname)
	if filepath.IsAbs(link) || strings.HasPrefix(link, string(os.PathSeparator)) {
		return fmt.Errorf("archive symlink %s targets absolute path %s", name, linkname)
	}
	clean := filepath.Clean(destDir)
	resolved := filepath.Join(filepath.Dir(target), link)
	if resolved != clean && !strings.HasPrefix(resolved, clean+string(os.PathSeparator)) {
		return fmt.Errorf("archive symlink %s escapes destination directory", name)
	}
	return nil
}
