package extract

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/testutil"
)

var (
	t1 = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

func writeJar(t *testing.T, path string, mod time.Time, files map[string]string) string {
	t.Helper()
	testutil.WriteFile(t, path, testutil.Jar(t, mod, files))
	return path
}

func TestCompatible(t *testing.T) {
	dir := t.TempDir()
	base := map[string]string{"A.class": "a", "B.class": "b"}

	a := writeJar(t, filepath.Join(dir, "a.jar"), t1, base)
	b := writeJar(t, filepath.Join(dir, "b.jar"), t2, base)
	z := writeJar(t, filepath.Join(dir, "z.zip"), t2, base)
	changed := writeJar(t, filepath.Join(dir, "changed.jar"), t1, map[string]string{"A.class": "a", "B.class": "B"})
	missing := writeJar(t, filepath.Join(dir, "missing.jar"), t1, map[string]string{"A.class": "a"})
	renamed := writeJar(t, filepath.Join(dir, "renamed.jar"), t1, map[string]string{"A.class": "a", "C.class": "b"})
	other := filepath.Join(dir, "a.txt")
	testutil.WriteFile(t, other, testutil.Jar(t, t1, base))
	corrupt := filepath.Join(dir, "corrupt.jar")
	testutil.WriteFile(t, corrupt, []byte("not a zip"))

	tests := []struct {
		name     string
		old, new string
		want     bool
	}{
		{"timestamps ignored", a, b, true},
		{"jar and zip", a, z, true},
		{"same file", a, a, true},
		{"differing crc", a, changed, false},
		{"missing entry", a, missing, false},
		{"renamed entry", a, renamed, false},
		{"other extension", a, other, false},
		{"corrupt", a, corrupt, false},
		{"absent", a, filepath.Join(dir, "absent.jar"), false},
		{"directory", a, dir, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compatible(tt.old, tt.new))
			assert.Equal(t, tt.want, Compatible(tt.new, tt.old), "symmetric")
		})
	}
}

func TestCompatible_Symlink(t *testing.T) {
	dir := t.TempDir()
	a := writeJar(t, filepath.Join(dir, "a.jar"), t1, map[string]string{"A.class": "a"})
	link := filepath.Join(dir, "link.jar")
	require.NoError(t, os.Symlink(a, link))

	assert.False(t, Compatible(a, link))
}

func TestPreserveOld(t *testing.T) {
	root := t.TempDir()
	oldDir := filepath.Join(root, "old")
	newDir := filepath.Join(root, "new")

	files := map[string]string{"A.class": "a"}
	writeJar(t, filepath.Join(oldDir, "lib", "same.jar"), t1, files)
	writeJar(t, filepath.Join(newDir, "lib", "same.jar"), t2, files)
	writeJar(t, filepath.Join(oldDir, "lib", "diff.jar"), t1, files)
	writeJar(t, filepath.Join(newDir, "lib", "diff.jar"), t2, map[string]string{"A.class": "changed"})
	writeJar(t, filepath.Join(newDir, "lib", "added.jar"), t2, files)
	writeJar(t, filepath.Join(oldDir, "gone", "x.jar"), t1, files)
	writeJar(t, filepath.Join(oldDir, "plugins", "p", "lib", "p.jar"), t1, files)
	writeJar(t, filepath.Join(newDir, "plugins", "p", "lib", "p.jar"), t2, files)
	testutil.WriteFile(t, filepath.Join(oldDir, "build.txt"), []byte("1"))
	testutil.WriteFile(t, filepath.Join(newDir, "build.txt"), []byte("1"))

	target := writeJar(t, filepath.Join(newDir, "lib", "target.jar"), t2, files)
	require.NoError(t, os.Symlink(target, filepath.Join(newDir, "lib", "link.jar")))
	writeJar(t, filepath.Join(oldDir, "lib", "link.jar"), t1, files)

	oldSame, err := os.ReadFile(filepath.Join(oldDir, "lib", "same.jar"))
	require.NoError(t, err)

	n, err := PreserveOld(oldDir, newDir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := os.ReadFile(filepath.Join(newDir, "lib", "same.jar"))
	require.NoError(t, err)
	assert.Equal(t, oldSame, got)
	assert.NoFileExists(t, filepath.Join(oldDir, "lib", "same.jar"))
	assert.FileExists(t, filepath.Join(oldDir, "lib", "diff.jar"))
	assert.NoFileExists(t, filepath.Join(oldDir, "plugins", "p", "lib", "p.jar"))
	assert.NoFileExists(t, filepath.Join(newDir, "gone", "x.jar"))

	info, err := os.Lstat(filepath.Join(newDir, "lib", "link.jar"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink, "symlinks are left alone")
}

func TestPreserveOld_MissingTrees(t *testing.T) {
	n, err := PreserveOld(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, n)
}
