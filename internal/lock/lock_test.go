package lock

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sdk")

	l, err := Acquire(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), l.Path())

	_, err = uuid.Parse(l.RunID())
	assert.NoError(t, err)

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "run_id="+l.RunID()))
	assert.Contains(t, string(data), "pid=")

	require.NoError(t, l.Release())
	require.NoError(t, l.Release(), "release is idempotent")

	assert.NoFileExists(t, l.Path(), "release leaves nothing in the sdk root")
}

func TestAcquire_Contended(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir)
	require.NoError(t, err)
	defer first.Release()

	_, err = Acquire(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Contains(t, err.Error(), first.RunID())

	require.NoError(t, first.Release())

	second, err := Acquire(dir)
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID(), second.RunID())
	require.NoError(t, second.Release())
}

func TestAcquire_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := Acquire(filepath.Join(file, "sub"))
	assert.Error(t, err)
}
