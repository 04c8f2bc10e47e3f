// Package testutil provides workspace and archive fixtures for testing
// studiosdk in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv creates an isolated workspace and points STUDIOSDK_* at
// it, so tests never read a developer's real configuration. The
// directory is removed by t.TempDir().
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	workspace := filepath.Join(tmpDir, "workspace")

	t.Setenv("STUDIOSDK_WORKSPACE", workspace)
	t.Setenv("STUDIOSDK_CONFIG", "")
	t.Setenv("STUDIOSDK_LOG_LEVEL", "")
	t.Setenv("STUDIOSDK_LOG_FORMAT", "")
	t.Setenv("TMPDIR", filepath.Join(tmpDir, "tmp"))

	for _, dir := range []string{workspace, filepath.Join(tmpDir, "tmp")} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	return workspace
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
