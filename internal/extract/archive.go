package extract

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// EntryFunc is called with the name of every extracted archive entry.
type EntryFunc func(name string)

// safeJoin resolves an archive entry name under destDir and rejects names
// escaping it, lexically or through a symlink extracted earlier. The root
// itself yields ok=false.
func safeJoin(destDir, name string) (target string, ok bool, err error) {
	root := filepath.Clean(destDir)
	target = filepath.Join(root, name)
	if target == root {
		return "", false, nil
	}
	if !within(root, target) {
		return "", false, fmt.Errorf("illegal file path: %s", name)
	}
	if err := checkParents(root, target); err != nil {
		return "", false, fmt.Errorf("illegal file path: %s: %w", name, err)
	}
	return target, true, nil
}

func within(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(os.PathSeparator))
}

// checkParents resolves the deepest existing parent of target and
// requires it to stay under root.
func checkParents(root, target string) error {
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", root, err)
	}
	dir := filepath.Dir(target)
	for within(root, dir) {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			if !within(resolvedRoot, resolved) {
				return fmt.Errorf("parent %s links outside the destination", dir)
			}
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("resolve %s: %w", dir, err)
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// removeSymlink deletes target when it is a symlink, so a write replaces
// the link instead of following it.
func removeSymlink(target string) error {
	info, err := os.Lstat(target)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return nil
	}
	if err := os.Remove(target); err != nil {
		return fmt.Errorf("replace symlink %s: %w", target, err)
	}
	return nil
}

// ExtractZip extracts a zip archive to destDir.
func ExtractZip(archivePath, destDir string, onEntry EntryFunc) error {
	// insecure names are rejected per entry by safeJoin
	zr, err := zip.OpenReader(archivePath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for _, f := range zr.File {
		target, ok, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if onEntry != nil {
			onEntry(f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
			continue
		}
		if err := writeZipFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func writeZipFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	if err := removeSymlink(target); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	return out.Close()
}

// ExtractTarGz extracts a .tar.gz archive to destDir, keeping symbolic
// and hard links.
func ExtractTarGz(archivePath, destDir string, onEntry EntryFunc) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, ok, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if onEntry != nil {
			onEntry(header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			if err := removeSymlink(target); err != nil {
				return err
			}
			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm())
			if err != nil {
				return fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(outFile, tarReader); err != nil {
				outFile.Close()
				return fmt.Errorf("write file %s: %w", target, err)
			}
			if err := outFile.Close(); err != nil {
				return fmt.Errorf("close file %s: %w", target, err)
			}

		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			_ = os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}

		case tar.TypeLink:
			source, ok, err := safeJoin(destDir, header.Linkname)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("illegal link target: %s", header.Linkname)
			}
			_ = os.Remove(target)
			if err := os.Link(source, target); err != nil {
				return fmt.Errorf("create link %s: %w", target, err)
			}

		default:
			// devices, fifos and the like have no place in an SDK tree
			continue
		}
	}

	return nil
}

// copyFile copies src to dst verbatim.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
