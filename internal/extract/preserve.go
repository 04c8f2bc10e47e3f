package extract

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// Compatible reports whether two archives hold the same entries with the
// same CRC-32, ignoring order and timestamps. Both must be regular .jar
// or .zip files; any error means not compatible.
func Compatible(oldFile, newFile string) bool {
	for _, f := range []string{oldFile, newFile} {
		if !strings.HasSuffix(f, ".jar") && !strings.HasSuffix(f, ".zip") {
			return false
		}
		info, err := os.Lstat(f)
		if err != nil || !info.Mode().IsRegular() {
			return false
		}
	}

	oldEntries, err := zipEntries(oldFile)
	if err != nil {
		return false
	}
	newEntries, err := zipEntries(newFile)
	if err != nil {
		return false
	}
	return slices.Equal(oldEntries, newEntries)
}

type zipEntry struct {
	name string
	crc  uint32
}

func zipEntries(file string) ([]zipEntry, error) {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make([]zipEntry, 0, len(zr.File))
	for _, f := range zr.File {
		out = append(out, zipEntry{name: f.Name, crc: f.CRC32})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].crc < out[j].crc
	})
	return out, nil
}

// PreserveOld walks newDir and moves every file of oldDir that is
// Compatible with its new counterpart over it, so unchanged archives keep
// their previous bytes. Directories present in both trees are recursed
// into; symlinks are left alone. Failed moves are collected and the walk
// continues. It returns the number of files preserved.
func PreserveOld(oldDir, newDir string) (int, error) {
	if !isDir(oldDir) || !isDir(newDir) {
		return 0, nil
	}

	entries, err := os.ReadDir(newDir)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", newDir, err)
	}

	var (
		moved int
		errs  []error
	)
	for _, e := range entries {
		oldPath := filepath.Join(oldDir, e.Name())
		newPath := filepath.Join(newDir, e.Name())

		switch {
		case e.Type()&os.ModeSymlink != 0:
			continue
		case e.IsDir():
			n, err := PreserveOld(oldPath, newPath)
			moved += n
			if err != nil {
				errs = append(errs, err)
			}
		case Compatible(oldPath, newPath):
			if err := os.Rename(oldPath, newPath); err != nil {
				errs = append(errs, fmt.Errorf("preserve %s: %w", e.Name(), err))
				continue
			}
			moved++
		}
	}
	return moved, errors.Join(errs...)
}

func isDir(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.IsDir()
}
