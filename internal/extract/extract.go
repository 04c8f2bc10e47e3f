// Package extract lays out the platform trees of one SDK version from its
// validated artifacts and keeps unchanged archives of the previous tree.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/acquire"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/config"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/logging"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/metadata"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/platform"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/runner"
)

// Fixed names inside a version directory.
const (
	SourcesFile = "android-studio-sources.zip"
	UpdaterFile = acquire.UpdaterJar
	macBundle   = "android-studio"
)

// BundleError reports a mac archive without exactly one application
// bundle.
type BundleError struct {
	Prefix string
	Found  []string
}

func (e *BundleError) Error() string {
	return fmt.Sprintf("expected exactly one directory starting with %q in the mac archive, found %d: %s",
		e.Prefix, len(e.Found), strings.Join(e.Found, ", "))
}

// Options controls one extraction.
type Options struct {
	// Workspace is the absolute workspace root.
	Workspace string
	// Metadata receives the provenance manifest projects and is written
	// as METADATA. Nil starts an empty record.
	Metadata *metadata.Record
	// DeleteArtifacts removes the artifact directory once extracted.
	DeleteArtifacts bool
	// OnEntry observes extraction progress.
	OnEntry func(p platform.Platform, name string)
}

// Result describes an extracted version.
type Result struct {
	Version    string
	Dir        string
	BundleName string
	// Preserved counts archives kept from the previous tree.
	Preserved int
	// Projects counts provenance manifest entries merged into METADATA.
	Projects int
}

// Extractor builds version trees under the SDK root.
type Extractor struct {
	runner  runner.Runner
	unzip   string
	prefix  string
	sdkRoot string
	logger  logging.Logger
}

// NewExtractor creates an Extractor from the tool configuration.
func NewExtractor(r runner.Runner, cfg *config.Config, logger logging.Logger) *Extractor {
	return &Extractor{
		runner:  r,
		unzip:   cfg.Unzip,
		prefix:  cfg.ProductPrefix,
		sdkRoot: cfg.SDKRoot,
		logger:  logging.OrNop(logger),
	}
}

// VersionDir returns the absolute version directory.
func (e *Extractor) VersionDir(workspace, version string) string {
	return filepath.Join(workspace, filepath.FromSlash(e.sdkRoot), version)
}

// Extract creates the version tree for a. An existing tree is set aside
// and restored if anything fails; on success its compatible archives are
// moved into the new tree and the rest is removed.
func (e *Extractor) Extract(ctx context.Context, a *acquire.Artifacts, opts Options) (res *Result, err error) {
	md := opts.Metadata
	if md == nil {
		md = metadata.New()
	}

	projects := 0
	if a.Manifest != "" {
		projects, err = md.MergeManifestFile(a.Path(a.Manifest))
		if err != nil {
			return nil, err
		}
	}

	dest := e.VersionDir(opts.Workspace, a.Version)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("create sdk root: %w", err)
	}

	prev, err := setAside(dest)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := prev.restore(); rerr != nil {
			e.logger.Error("Failed to restore previous tree", logging.KeyPath, dest, logging.KeyError, rerr)
		}
	}()

	bundle, err := e.build(ctx, a, dest, opts.OnEntry)
	if err != nil {
		return nil, err
	}
	if err := metadata.Write(dest, md); err != nil {
		return nil, err
	}

	res = &Result{Version: a.Version, Dir: dest, BundleName: bundle, Projects: projects}

	// past this point the new tree is complete; failures no longer roll back
	if prev.active() {
		n, perr := PreserveOld(prev.old, dest)
		res.Preserved = n
		if perr != nil {
			e.logger.Warn("Some unchanged archives were not preserved", logging.KeyError, perr)
		}
		if rerr := prev.release(); rerr != nil {
			e.logger.Warn("Failed to remove previous tree", logging.KeyPath, prev.old, logging.KeyError, rerr)
		}
	}

	if opts.DeleteArtifacts {
		if rerr := os.RemoveAll(a.Dir); rerr != nil {
			e.logger.Warn("Failed to remove artifacts", logging.KeyPath, a.Dir, logging.KeyError, rerr)
		}
	}

	e.logger.Info("Extracted SDK",
		logging.KeyVersion, a.Version,
		logging.KeyPath, dest,
		"preserved", res.Preserved)
	return res, nil
}

// build fills dest from the artifacts and returns the mac bundle name.
func (e *Extractor) build(ctx context.Context, a *acquire.Artifacts, dest string, onEntry func(platform.Platform, string)) (string, error) {
	if err := os.Mkdir(dest, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	if err := copyFile(a.Path(a.Sources), filepath.Join(dest, SourcesFile)); err != nil {
		return "", err
	}
	if err := copyFile(a.Path(a.Updater), filepath.Join(dest, UpdaterFile)); err != nil {
		return "", err
	}

	bundle, err := e.extractMac(ctx, a.Path(a.Mac), filepath.Join(dest, string(platform.Darwin)))
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.logger.Info("Unzipping windows distribution", logging.KeyPlatform, platform.Windows)
	if err := ExtractZip(a.Path(a.Windows), filepath.Join(dest, string(platform.Windows)), entryHook(onEntry, platform.Windows)); err != nil {
		return "", fmt.Errorf("extract windows: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.logger.Info("Untarring linux distribution", logging.KeyPlatform, platform.Linux)
	if err := ExtractTarGz(a.Path(a.Linux), filepath.Join(dest, string(platform.Linux)), entryHook(onEntry, platform.Linux)); err != nil {
		return "", fmt.Errorf("extract linux: %w", err)
	}
	return bundle, nil
}

// extractMac unpacks the mac archive with the external unzip, which keeps
// symbolic links, and renames the single application bundle.
func (e *Extractor) extractMac(ctx context.Context, archive, darwinDir string) (string, error) {
	e.logger.Info("Unzipping mac distribution", logging.KeyPlatform, platform.Darwin)
	out, err := e.runner.Run(ctx, e.unzip, "-q", "-d", darwinDir, archive)
	if err != nil {
		return "", fmt.Errorf("extract darwin: %w", err)
	}
	// unzip exits 1 for warnings only
	if out.ExitCode > 1 {
		return "", fmt.Errorf("extract darwin: %s exited with %d: %s",
			e.unzip, out.ExitCode, runner.Tail(out.Stderr, 512))
	}
	if out.ExitCode == 1 {
		e.logger.Warn("unzip reported warnings", "stderr", runner.Tail(out.Stderr, 512))
	}

	entries, err := os.ReadDir(darwinDir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", darwinDir, err)
	}
	var apps []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), e.prefix) {
			apps = append(apps, entry.Name())
		}
	}
	sort.Strings(apps)
	if len(apps) != 1 {
		return "", &BundleError{Prefix: e.prefix, Found: apps}
	}

	if err := os.Rename(filepath.Join(darwinDir, apps[0]), filepath.Join(darwinDir, macBundle)); err != nil {
		return "", fmt.Errorf("rename mac bundle: %w", err)
	}
	return apps[0], nil
}

func entryHook(fn func(platform.Platform, string), p platform.Platform) EntryFunc {
	if fn == nil {
		return nil
	}
	return func(name string) { fn(p, name) }
}
