package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/platform"
)

func TestIsTerminal(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	assert.False(t, isTerminal(&bytes.Buffer{}), "buffers are never terminals")

	f, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f), "regular files are not terminals")
}

func TestSpinner_SilentOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, false)
	s.entry(platform.Linux, "android-studio/lib/a.jar")
	s.entry(platform.Windows, "android-studio/lib/a.jar")
	s.finish()

	assert.Equal(t, 2, s.entries)
	assert.Empty(t, buf.String())
}
