package acquire

import (
	"context"
	"fmt"
	"os"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/config"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/logging"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/runner"
)

const (
	oauthFlag     = "--use_oauth2"
	tempDirPrefix = "studio_sdk"
)

const installHint = `you need to install fetch_artifact:
sudo glinux-add-repo android stable && \
sudo apt update && \
sudo apt install android-fetch-artifact`

// Patterns returns the fetch patterns for one build, in fetch order.
func Patterns(bid string) []string {
	return []string{
		"android-studio-*-sources.zip",
		"android-studio-*.mac.zip",
		"android-studio-*.tar.gz",
		"android-studio-*.win.zip",
		UpdaterJar,
		manifestPrefix + bid + manifestSuffix,
	}
}

// Acquirer downloads the artifacts of a build with the external fetch
// tool.
type Acquirer struct {
	runner  runner.Runner
	cfg     config.FetchConfig
	logger  logging.Logger
	tempDir string
}

// NewAcquirer creates an Acquirer. A nil logger discards output.
func NewAcquirer(r runner.Runner, cfg config.FetchConfig, logger logging.Logger) *Acquirer {
	return &Acquirer{
		runner: r,
		cfg:    cfg,
		logger: logging.OrNop(logger),
	}
}

// WithTempDir sets the parent of the download directories. Empty means
// the system default.
func (a *Acquirer) WithTempDir(dir string) *Acquirer {
	a.tempDir = dir
	return a
}

// Download fetches every artifact of bid into a new temporary directory
// and returns it. The caller owns the directory.
func (a *Acquirer) Download(ctx context.Context, bid string) (string, error) {
	if bid == "" {
		return "", fmt.Errorf("%w: --download needs a build id", ErrPrecondition)
	}

	tool, args, err := a.resolveTool(ctx)
	if err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp(a.tempDir, tempDirPrefix+"*"+bid)
	if err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	for _, pattern := range Patterns(bid) {
		if err := ctx.Err(); err != nil {
			return dir, err
		}
		cmdArgs := append(append([]string{}, args...), "--bid", bid, "--target", a.cfg.Target, pattern, dir)
		a.logger.Debug("Fetching artifact", "command", runner.Describe(tool, cmdArgs...))

		res, err := a.runner.Run(ctx, tool, cmdArgs...)
		if err != nil {
			return dir, fmt.Errorf("fetch %s: %w", pattern, err)
		}
		if !res.Success() {
			a.logger.Warn("Fetch failed",
				"pattern", pattern,
				"exit_code", res.ExitCode,
				"stderr", runner.Tail(res.Stderr, 512))
		}
	}

	a.logger.Info("Downloaded artifacts", logging.KeyBuildID, bid, logging.KeyPath, dir)
	return dir, nil
}

// resolveTool picks the fetch tool and its authentication flags.
func (a *Acquirer) resolveTool(ctx context.Context) (string, []string, error) {
	if a.cfg.CertStatus != "" && a.runner.Exists(a.cfg.CertStatus) {
		res, err := a.runner.Run(ctx, a.cfg.CertStatus)
		if err != nil {
			return "", nil, fmt.Errorf("check credentials: %w", err)
		}
		if !res.Success() {
			return "", nil, fmt.Errorf("%w: you need prodaccess to download artifacts", ErrPrecondition)
		}
		return a.cfg.Tool, nil, nil
	}

	if !a.runner.Exists(a.cfg.OAuthTool) {
		return "", nil, fmt.Errorf("%w: %s", ErrPrecondition, installHint)
	}
	return a.cfg.OAuthTool, []string{oauthFlag}, nil
}
