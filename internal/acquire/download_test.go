package acquire

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/config"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/runner"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/runner/mocks"
)

func fetchConfig() config.FetchConfig {
	return config.Default().Fetch
}

func TestDownload_CertStatusPath(t *testing.T) {
	cfg := fetchConfig()
	r := &mocks.Runner{}
	r.On("Exists", cfg.CertStatus).Return(true)
	r.On("Run", mock.Anything, cfg.CertStatus).Return(runner.Result{}, nil)

	var dirs []string
	for _, p := range Patterns("123") {
		r.On("Run", mock.Anything, cfg.Tool, "--bid", "123", "--target", "IntelliJ", p, mock.Anything).
			Run(func(args mock.Arguments) { dirs = append(dirs, args.String(7)) }).
			Return(runner.Result{}, nil).Once()
	}

	a := NewAcquirer(r, cfg, nil).WithTempDir(t.TempDir())
	dir, err := a.Download(context.Background(), "123")
	require.NoError(t, err)

	assert.DirExists(t, dir)
	assert.True(t, strings.HasPrefix(filepath.Base(dir), tempDirPrefix))
	assert.True(t, strings.HasSuffix(dir, "123"))
	require.Len(t, dirs, 6)
	for _, d := range dirs {
		assert.Equal(t, dir, d)
	}
	r.AssertExpectations(t)
}

func TestDownload_OAuthFallback(t *testing.T) {
	cfg := fetchConfig()
	r := &mocks.Runner{}
	r.On("Exists", cfg.CertStatus).Return(false)
	r.On("Exists", cfg.OAuthTool).Return(true)
	r.On("Run", mock.Anything, cfg.OAuthTool, "--use_oauth2", "--bid", "7", "--target", "IntelliJ", mock.Anything, mock.Anything).
		Return(runner.Result{}, nil).Times(6)

	dir, err := NewAcquirer(r, cfg, nil).WithTempDir(t.TempDir()).Download(context.Background(), "7")
	require.NoError(t, err)
	assert.DirExists(t, dir)
	r.AssertExpectations(t)
	r.AssertNotCalled(t, "Run", mock.Anything, cfg.CertStatus)
}

func TestDownload_FailedFetchIsNotFatal(t *testing.T) {
	cfg := fetchConfig()
	r := &mocks.Runner{}
	r.On("Exists", cfg.CertStatus).Return(false)
	r.On("Exists", cfg.OAuthTool).Return(true)
	r.On("Run", mock.Anything, cfg.OAuthTool, "--use_oauth2", "--bid", "7", "--target", "IntelliJ", mock.Anything, mock.Anything).
		Return(runner.Result{ExitCode: 1, Stderr: "not found"}, nil)

	dir, err := NewAcquirer(r, cfg, nil).WithTempDir(t.TempDir()).Download(context.Background(), "7")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = CheckArtifacts(dir)
	assert.ErrorIs(t, err, ErrNoArtifacts)
}

func TestDownload_Preconditions(t *testing.T) {
	cfg := fetchConfig()

	t.Run("empty build id", func(t *testing.T) {
		r := &mocks.Runner{}
		_, err := NewAcquirer(r, cfg, nil).Download(context.Background(), "")
		assert.ErrorIs(t, err, ErrPrecondition)
		r.AssertNotCalled(t, "Exists", mock.Anything)
	})

	t.Run("no prodaccess", func(t *testing.T) {
		r := &mocks.Runner{}
		r.On("Exists", cfg.CertStatus).Return(true)
		r.On("Run", mock.Anything, cfg.CertStatus).Return(runner.Result{ExitCode: 1}, nil)

		_, err := NewAcquirer(r, cfg, nil).Download(context.Background(), "1")
		assert.ErrorIs(t, err, ErrPrecondition)
		assert.Contains(t, err.Error(), "prodaccess")
	})

	t.Run("no fetch tool", func(t *testing.T) {
		r := &mocks.Runner{}
		r.On("Exists", cfg.CertStatus).Return(false)
		r.On("Exists", cfg.OAuthTool).Return(false)

		_, err := NewAcquirer(r, cfg, nil).Download(context.Background(), "1")
		assert.ErrorIs(t, err, ErrPrecondition)
		assert.Contains(t, err.Error(), "apt install android-fetch-artifact")
	})
}

func TestDownload_Cancelled(t *testing.T) {
	cfg := fetchConfig()
	r := &mocks.Runner{}
	r.On("Exists", cfg.CertStatus).Return(false)
	r.On("Exists", cfg.OAuthTool).Return(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAcquirer(r, cfg, nil).WithTempDir(t.TempDir()).Download(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPatterns(t *testing.T) {
	p := Patterns("42")
	assert.Len(t, p, 6)
	assert.Equal(t, "manifest_42.xml", p[5])
	assert.Equal(t, UpdaterJar, p[4])
}
