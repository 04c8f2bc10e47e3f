package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/acquire"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/config"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/extract"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/git"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/lock"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/logging"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/platform"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/runner"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/service"
)

const (
	envPrefix = "STUDIOSDK"
	envFile   = ".env"

	flagExistingVersion = "existing_version"
	flagPath            = "path"
	flagDownload        = "download"
	flagDebugDownload   = "debug_download"
	flagWorkspace       = "workspace"
	flagConfig          = "config"
	flagLogLevel        = "log-level"
	flagLogFormat       = "log-format"
)

// settings are the process-level options. Mode flags are read from the
// command line only; everything here may also come from STUDIOSDK_*.
type settings struct {
	Workspace string         `mapstructure:"workspace"`
	Config    string         `mapstructure:"config"`
	Log       logging.Config `mapstructure:",squash"`
}

// modeFlags select the update mode.
type modeFlags struct {
	existingVersion string
	path            string
	download        string
	debugDownload   bool
}

func (m modeFlags) request() service.Request {
	return service.Request{
		ExistingVersion: m.existingVersion,
		Path:            m.path,
		BuildID:         m.download,
		DebugDownload:   m.debugDownload,
	}
}

func newRootCmd() *cobra.Command {
	var modes modeFlags

	cmd := &cobra.Command{
		Use:   "studiosdk",
		Short: "Update the Android Studio SDK prebuilts",
		Long: `studiosdk extracts a released Android Studio build into the SDK root,
then regenerates spec.bzl, METADATA and the IntelliJ library descriptors.

Exactly one of --existing_version, --path or --download selects the source.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd, modes)
		},
	}

	f := cmd.Flags()
	f.StringVar(&modes.existingVersion, flagExistingVersion, "", "regenerate the files of an extracted version, e.g. AI-223")
	f.StringVar(&modes.path, flagPath, "", "directory holding the build artifacts")
	f.StringVar(&modes.download, flagDownload, "", "build id to download the artifacts of")
	f.BoolVar(&modes.debugDownload, flagDebugDownload, false, "keep the downloaded artifacts")
	f.String(flagWorkspace, "", "workspace root (default $STUDIOSDK_WORKSPACE or the current directory)")
	f.String(flagConfig, "", "tool configuration (default <workspace>/"+config.FileName+")")
	f.String(flagLogLevel, "info", "log level: debug, info, warn or error")
	f.String(flagLogFormat, "console", "log format: console or json")
	return cmd
}

func runUpdate(cmd *cobra.Command, modes modeFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	req := modes.request()
	mode, err := req.Mode()
	if errors.Is(err, service.ErrNoMode) {
		fmt.Fprint(out, cmd.UsageString())
		return nil
	}

	s, err := loadSettings(cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := logging.New(s.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	debug := strings.EqualFold(s.Log.Level, "debug")

	cfg, err := config.NewParser(platform.NewDetector()).ParseFile(ctx, s.Config)
	if err != nil {
		return errors.New(config.FormatError(err, debug))
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", s.Config, err)
	}

	spin := newSpinner(cmd.ErrOrStderr(), debug)
	req.OnEntry = spin.entry

	updater := service.NewUpdater(s.Workspace, cfg, service.Deps{
		Downloader: acquire.NewAcquirer(runner.New(), cfg.Fetch, logger),
		Verifier:   acquire.NewVerifier(cfg.Verify, logger),
		Extractor:  extract.NewExtractor(runner.New(), cfg, logger),
		Summarizer: git.NewClient(filepath.Join(s.Workspace, filepath.FromSlash(cfg.SDKRoot)), lock.FileName),
		Logger:     logger,
	})

	switch mode {
	case service.ModeExisting:
		step(out, "Regenerating %s", req.ExistingVersion)
	case service.ModePath:
		step(out, "Updating from %s", req.Path)
	case service.ModeDownload:
		step(out, "Downloading build %s", req.BuildID)
	}

	res, err := updater.Run(ctx, req)
	spin.finish()
	if err != nil {
		return err
	}
	printResult(out, res, s.Workspace)
	return nil
}

// loadSettings resolves the process settings. A .env file in the current
// directory, then one in the workspace, fills STUDIOSDK_* variables that
// the environment does not already set.
func loadSettings(flags *pflag.FlagSet) (*settings, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		"workspace": flagWorkspace,
		"config":    flagConfig,
		"level":     flagLogLevel,
		"format":    flagLogFormat,
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	_ = v.BindEnv("level", envPrefix+"_LOG_LEVEL")
	_ = v.BindEnv("format", envPrefix+"_LOG_FORMAT")

	workspace := v.GetString("workspace")
	if workspace == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		workspace = wd
	}
	workspace, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	if info, err := os.Stat(workspace); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", workspace)
	}
	if err := loadEnvFile(filepath.Join(workspace, envFile)); err != nil {
		return nil, err
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	s.Workspace = workspace
	if s.Config == "" {
		s.Config = filepath.Join(workspace, config.FileName)
	}
	return &s, nil
}

func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// execute runs the root command with args and returns the exit code.
func execute(cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
