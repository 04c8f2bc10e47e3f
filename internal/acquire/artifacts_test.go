package acquire

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "android-studio-2022.3.1.18"

func writeArtifacts(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644))
	}
}

func completeSet() []string {
	return []string{
		testBase + "-sources.zip",
		testBase + ".mac.zip",
		testBase + ".tar.gz",
		testBase + ".win.zip",
		UpdaterJar,
	}
}

func TestCheckArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, completeSet()...)
	writeArtifacts(t, dir, "manifest_18.xml", "README")

	a, err := CheckArtifacts(dir)
	require.NoError(t, err)

	assert.Equal(t, "AI-2022", a.Version)
	assert.Equal(t, "18", a.BuildID)
	assert.Equal(t, completeSet(), a.Names())
	assert.Equal(t, testBase+".mac.zip", a.Mac)
	assert.Equal(t, testBase+".tar.gz", a.Linux)
	assert.Equal(t, testBase+".win.zip", a.Windows)
	assert.Equal(t, "manifest_18.xml", a.Manifest)
	assert.Equal(t, filepath.Join(dir, UpdaterJar), a.Path(a.Updater))
}

func TestCheckArtifacts_ManifestMustBeUnique(t *testing.T) {
	dir := t.TempDir()
	writeArtifacts(t, dir, completeSet()...)
	writeArtifacts(t, dir, "manifest_18.xml", "manifest_19.xml")

	a, err := CheckArtifacts(dir)
	require.NoError(t, err)
	assert.Empty(t, a.Manifest)
}

func TestCheckArtifacts_Errors(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		wantNone bool
	}{
		{name: "empty dir", wantNone: true},
		{name: "nothing recognizable", files: []string{"README", "notes.txt"}, wantNone: true},
		{name: "updater only", files: []string{UpdaterJar, "other.zip"}},
		{name: "missing windows", files: completeSet()[:3]},
		{name: "two builds", files: append(completeSet(), "android-studio-2022.3.1.19.tar.gz")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeArtifacts(t, dir, tt.files...)

			a, err := CheckArtifacts(dir)
			require.Error(t, err)
			assert.Nil(t, a)

			if tt.wantNone {
				assert.ErrorIs(t, err, ErrNoArtifacts)
				return
			}
			var mismatch *ArtifactMismatchError
			require.True(t, errors.As(err, &mismatch))
			assert.Equal(t, dir, mismatch.Dir)
			assert.NotEmpty(t, mismatch.Got)
			assert.Contains(t, err.Error(), "unexpected artifacts")
		})
	}
}

func TestCheckArtifacts_MissingDir(t *testing.T) {
	_, err := CheckArtifacts(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
