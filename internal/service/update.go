// Package service orchestrates an SDK update: acquire the artifacts,
// extract them, reconcile the jar sets and emit the derived files.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/acquire"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/config"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/emit"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/extract"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/git"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/lock"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/logging"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/metadata"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/platform"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/reconcile"
)

// ErrNoMode is returned when not exactly one update mode is requested.
var ErrNoMode = errors.New("exactly one of --existing_version, --path or --download is required")

// Mode selects where the SDK version comes from.
type Mode int

const (
	// ModeExisting regenerates the files of an extracted version.
	ModeExisting Mode = iota + 1
	// ModePath extracts artifacts from a local directory.
	ModePath
	// ModeDownload fetches the artifacts of a build first.
	ModeDownload
)

func (m Mode) String() string {
	switch m {
	case ModeExisting:
		return "existing_version"
	case ModePath:
		return "path"
	case ModeDownload:
		return "download"
	default:
		return "unknown"
	}
}

// Downloader fetches the artifacts of a build into a new directory.
type Downloader interface {
	Download(ctx context.Context, bid string) (string, error)
}

// Verifier checks artifacts before they are extracted.
type Verifier interface {
	Verify(dir string, names []string) ([]acquire.Verification, error)
}

// Extractor builds a version tree from validated artifacts.
type Extractor interface {
	Extract(ctx context.Context, a *acquire.Artifacts, opts extract.Options) (*extract.Result, error)
}

// Summarizer reports the worktree changes under the SDK root.
type Summarizer interface {
	Summarize(ctx context.Context) (*git.Summary, error)
}

// Deps are the collaborators of an Updater.
type Deps struct {
	Downloader Downloader
	Verifier   Verifier
	Extractor  Extractor
	// Summarizer is optional; nil skips the change summary.
	Summarizer Summarizer
	Clock      Clock
	Logger     logging.Logger
}

// Request selects the update mode. Exactly one of ExistingVersion, Path
// and BuildID must be set.
type Request struct {
	ExistingVersion string
	Path            string
	BuildID         string
	// DebugDownload keeps downloaded artifacts.
	DebugDownload bool
	// OnEntry observes extraction progress.
	OnEntry func(p platform.Platform, name string)
}

// Mode returns the requested mode.
func (r Request) Mode() (Mode, error) {
	var modes []Mode
	if r.ExistingVersion != "" {
		modes = append(modes, ModeExisting)
	}
	if r.Path != "" {
		modes = append(modes, ModePath)
	}
	if r.BuildID != "" {
		modes = append(modes, ModeDownload)
	}
	if len(modes) != 1 {
		return 0, ErrNoMode
	}
	return modes[0], nil
}

// Result describes a finished update.
type Result struct {
	Mode       Mode
	Version    string
	Dir        string
	BundleName string
	RunID      string
	// ArtifactsDir is set when downloaded artifacts were kept.
	ArtifactsDir string
	SpecFile     string
	Extraction   *extract.Result
	SDK          reconcile.JarSets
	Plugins      reconcile.PluginJars
	Libraries    *emit.LibraryResult
	Changes      *git.Summary
	Duration     time.Duration
}

// Updater runs SDK updates for one workspace.
type Updater struct {
	workspace string
	cfg       *config.Config
	deps      Deps
	logger    logging.Logger
}

// NewUpdater creates an Updater. workspace must be absolute.
func NewUpdater(workspace string, cfg *config.Config, deps Deps) *Updater {
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	return &Updater{
		workspace: workspace,
		cfg:       cfg,
		deps:      deps,
		logger:    logging.OrNop(deps.Logger),
	}
}

// SDKRoot returns the absolute SDK root.
func (u *Updater) SDKRoot() string {
	return filepath.Join(u.workspace, filepath.FromSlash(u.cfg.SDKRoot))
}

// Run performs one update under the SDK root lock. No derived file is
// written unless every earlier step succeeded.
func (u *Updater) Run(ctx context.Context, req Request) (*Result, error) {
	start := u.deps.Clock.Now()

	mode, err := req.Mode()
	if err != nil {
		return nil, err
	}
	if mode == ModeExisting {
		if err := validateVersion(req.ExistingVersion); err != nil {
			return nil, err
		}
	}

	l, err := lock.Acquire(u.SDKRoot())
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() {
		if rerr := l.Release(); rerr != nil {
			u.logger.Warn("Failed to release lock", logging.KeyError, rerr)
		}
	}()

	res := &Result{Mode: mode, RunID: l.RunID()}
	log := u.logger
	if z, ok := log.(*logging.ZapLogger); ok {
		log = z.With(logging.KeyRunID, res.RunID)
	}
	log.Debug("Starting update", "mode", mode.String())

	switch mode {
	case ModeExisting:
		res.Version = req.ExistingVersion
		res.Dir = filepath.Join(u.SDKRoot(), res.Version)
		res.BundleName, err = emit.ReadMacBundleName(filepath.Join(res.Dir, emit.SpecFileName))
		if err != nil {
			return nil, err
		}

	case ModePath, ModeDownload:
		if err := u.acquireAndExtract(ctx, req, mode, res, log); err != nil {
			return nil, err
		}
	}

	if err := u.emit(res, log); err != nil {
		return nil, err
	}

	if u.deps.Summarizer != nil {
		summary, err := u.deps.Summarizer.Summarize(ctx)
		switch {
		case err == nil:
			res.Changes = summary
		case errors.Is(err, git.ErrNotAGitRepo):
			log.Debug("SDK root is not in a git repository", logging.KeyPath, u.SDKRoot())
		default:
			log.Warn("Failed to summarize changes", logging.KeyError, err)
		}
	}

	res.Duration = u.deps.Clock.Now().Sub(start)
	log.Info("Updated SDK",
		logging.KeyVersion, res.Version,
		logging.KeyCount, len(res.SDK.All),
		"plugins", len(res.Plugins.Names),
		"duration", res.Duration)
	return res, nil
}

// acquireAndExtract fills res from a local or downloaded artifact dir.
func (u *Updater) acquireAndExtract(ctx context.Context, req Request, mode Mode, res *Result, log logging.Logger) error {
	md := metadata.New()
	dir := req.Path
	deleteArtifacts := false

	if mode == ModePath {
		md.Set(metadata.KeyPath, req.Path)
	} else {
		md.Set(metadata.KeyBuildID, req.BuildID)
		downloaded, err := u.deps.Downloader.Download(ctx, req.BuildID)
		if err != nil {
			u.discardPartial(downloaded, req.DebugDownload, log)
			return err
		}
		dir = downloaded
		deleteArtifacts = !req.DebugDownload
		if req.DebugDownload {
			res.ArtifactsDir = dir
		}
	}

	artifacts, err := acquire.CheckArtifacts(dir)
	if err == nil {
		_, err = u.deps.Verifier.Verify(dir, artifacts.Names())
	}
	if err == nil {
		res.Extraction, err = u.deps.Extractor.Extract(ctx, artifacts, extract.Options{
			Workspace:       u.workspace,
			Metadata:        md,
			DeleteArtifacts: deleteArtifacts,
			OnEntry:         req.OnEntry,
		})
	}
	if err != nil {
		if mode == ModeDownload {
			log.Warn("Downloaded artifacts kept for inspection", logging.KeyPath, dir)
		}
		return err
	}

	res.Version = res.Extraction.Version
	res.Dir = res.Extraction.Dir
	res.BundleName = res.Extraction.BundleName
	return nil
}

// discardPartial removes what a failed download left behind, unless the
// artifacts are kept for debugging.
func (u *Updater) discardPartial(dir string, keep bool, log logging.Logger) {
	if dir == "" {
		return
	}
	if keep {
		log.Warn("Partial download kept for inspection", logging.KeyPath, dir)
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		log.Warn("Failed to remove partial download", logging.KeyPath, dir, logging.KeyError, err)
	}
}

// emit reconciles the version tree and writes spec.bzl and the project
// library descriptors.
func (u *Updater) emit(res *Result, log logging.Logger) error {
	fsys := os.DirFS(res.Dir)

	sdk, err := reconcile.ListSDKJars(fsys)
	if err != nil {
		return fmt.Errorf("list sdk jars of %s: %w", res.Version, err)
	}
	plugins, err := reconcile.ListPluginJars(fsys)
	if err != nil {
		return fmt.Errorf("list plugin jars of %s: %w", res.Version, err)
	}
	res.SDK, res.Plugins = sdk, plugins

	res.SpecFile = filepath.Join(res.Dir, emit.SpecFileName)
	if err := emit.WriteSpec(res.SpecFile, res.Version, sdk, plugins, res.BundleName); err != nil {
		return err
	}

	res.Libraries, err = emit.WriteLibraries(emit.LibraryLayout{
		Workspace:  u.workspace,
		ProjectDir: u.cfg.ProjectDir,
		SDKDir:     path.Join(u.cfg.SDKRoot, res.Version),
	}, sdk, plugins)
	if err != nil {
		return err
	}

	log.Debug("Wrote derived files",
		"spec", res.SpecFile,
		"libraries", len(res.Libraries.Written),
		"removed", len(res.Libraries.Removed))
	return nil
}

// validateVersion rejects names that would leave the SDK root.
func validateVersion(v string) error {
	if v == "." || v == ".." || strings.ContainsAny(v, `/\`) {
		return fmt.Errorf("invalid version %q", v)
	}
	return nil
}
