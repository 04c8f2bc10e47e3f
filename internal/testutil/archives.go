package testutil

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/runner"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/runner/mocks"
)

// Epoch is the default modification time of fixture entries.
var Epoch = time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)

// Entry is one file of a fixture archive. A non-empty Link makes it a
// symbolic link.
type Entry struct {
	Name string
	Data []byte
	Link string
}

// Files turns a name -> content map into sorted entries.
func Files(files map[string]string) []Entry {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]Entry, 0, len(names))
	for _, n := range names {
		out = append(out, Entry{Name: n, Data: []byte(files[n])})
	}
	return out
}

// Jar returns the bytes of a jar holding the given class files, stamped
// with mod. Jars with equal files and different stamps differ in bytes
// but not in CRCs.
func Jar(t *testing.T, mod time.Time, files map[string]string) []byte {
	t.Helper()
	return ZipBytes(t, mod, Files(files))
}

// ZipBytes builds a zip archive in memory.
func ZipBytes(t *testing.T, mod time.Time, entries []Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate, Modified: mod}
		if strings.HasSuffix(e.Name, "/") {
			hdr.Method = zip.Store
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("zip header %s: %v", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			t.Fatalf("zip write %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// WriteZip writes a zip archive to path.
func WriteZip(t *testing.T, path string, mod time.Time, entries []Entry) {
	t.Helper()
	WriteFile(t, path, ZipBytes(t, mod, entries))
}

// WriteTarGz writes a gzip-compressed tar archive to path.
func WriteTarGz(t *testing.T, path string, entries []Entry) {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.Name, Mode: 0o644, ModTime: Epoch}
		switch {
		case e.Link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.Link
			hdr.Mode = 0o777
		case strings.HasSuffix(e.Name, "/"):
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.Data))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", e.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write(e.Data); err != nil {
				t.Fatalf("tar write %s: %v", e.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	WriteFile(t, path, buf.Bytes())
}

// Build describes a fixture build. Trees map paths relative to each
// platform archive root to contents.
type Build struct {
	Major, Minor, BID string
	Linux             map[string]string
	Windows           map[string]string
	Mac               map[string]string
	// WindowsJars are jar files added to the windows archive.
	WindowsJars map[string][]byte
	// WindowsTime stamps the windows archive entries.
	WindowsTime time.Time
	// Manifest is the content of manifest_<bid>.xml, omitted when empty.
	Manifest string
}

// Base returns the shared artifact name prefix.
func (b Build) Base() string {
	return fmt.Sprintf("android-studio-%s.%s.%s", b.Major, b.Minor, b.BID)
}

// WriteArtifacts lays out the five artifacts of b in dir.
func WriteArtifacts(t *testing.T, dir string, b Build) {
	t.Helper()

	WriteZip(t, filepath.Join(dir, b.Base()+"-sources.zip"), Epoch, Files(map[string]string{"src/Main.java": "class Main {}"}))
	WriteFile(t, filepath.Join(dir, "updater-full.jar"), ZipBytes(t, Epoch, Files(map[string]string{"Updater.class": "u"})))
	WriteZip(t, filepath.Join(dir, b.Base()+".mac.zip"), Epoch, Files(b.Mac))
	WriteTarGz(t, filepath.Join(dir, b.Base()+".tar.gz"), Files(b.Linux))

	mod := b.WindowsTime
	if mod.IsZero() {
		mod = Epoch
	}
	win := Files(b.Windows)
	jarNames := make([]string, 0, len(b.WindowsJars))
	for n := range b.WindowsJars {
		jarNames = append(jarNames, n)
	}
	sort.Strings(jarNames)
	for _, n := range jarNames {
		win = append(win, Entry{Name: n, Data: b.WindowsJars[n]})
	}
	WriteZip(t, filepath.Join(dir, b.Base()+".win.zip"), mod, win)

	if b.Manifest != "" {
		WriteFile(t, filepath.Join(dir, "manifest_"+b.BID+".xml"), []byte(b.Manifest))
	}
}

// FakeUnzip makes r answer "<unzip> -q -d <dir> <archive>" by extracting
// the archive in process.
func FakeUnzip(t *testing.T, r *mocks.Runner, unzip string) {
	t.Helper()
	r.On("Run", mock.Anything, unzip, "-q", "-d", mock.Anything, mock.Anything).
		Return(runner.Result{}, nil).
		Run(func(args mock.Arguments) {
			if err := unzipTo(args.String(5), args.String(4)); err != nil {
				t.Errorf("fake unzip: %v", err)
			}
		})
}

func unzipTo(archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
