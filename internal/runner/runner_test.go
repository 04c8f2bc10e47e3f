package runner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExec_Run(t *testing.T) {
	requireShell(t)

	tests := []struct {
		name       string
		script     string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{name: "success", script: "echo hello", wantCode: 0, wantStdout: "hello\n"},
		{name: "non_zero_exit", script: "echo oops >&2; exit 3", wantCode: 3, wantStderr: "oops\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New().Run(context.Background(), "sh", "-c", tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, res.ExitCode)
			assert.Equal(t, tt.wantCode == 0, res.Success())
			assert.Equal(t, tt.wantStdout, res.Stdout)
			assert.Equal(t, tt.wantStderr, res.Stderr)
		})
	}
}

func TestExec_Run_Dir(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	r := &Exec{Dir: dir}
	_, err := r.Run(context.Background(), "sh", "-c", "touch marker")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "marker"))
}

func TestExec_Run_NotStarted(t *testing.T) {
	_, err := New().Run(context.Background(), filepath.Join(t.TempDir(), "missing-tool"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotStarted))
}

func TestExec_Run_Cancelled(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Run(ctx, "sh", "-c", "sleep 5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExec_Exists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tool")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	r := New()
	assert.True(t, r.Exists(path))
	assert.False(t, r.Exists(filepath.Join(dir, "absent")))
}

func TestDescribe(t *testing.T) {
	got := Describe("/usr/bin/fetch_artifact", "--bid", "123", "android-studio-*.mac.zip", "/tmp/x")
	assert.Equal(t, "/usr/bin/fetch_artifact --bid 123 'android-studio-*.mac.zip' /tmp/x", got)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", Tail("  short\n", 10))
	assert.Equal(t, "...6789", Tail("0123456789", 4))
}
