package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Config is the studiosdk tool configuration.
type Config struct {
	// SDKRoot is the workspace-relative directory holding one
	// sub-directory per SDK version.
	SDKRoot string

	// ProjectDir is the workspace-relative IntelliJ project whose
	// .idea/libraries descriptors are regenerated.
	ProjectDir string

	// ProductPrefix identifies the application bundle inside the mac
	// archive.
	ProductPrefix string

	// Unzip is the command used to extract the mac archive with its
	// symbolic links intact.
	Unzip string

	Fetch  FetchConfig
	Verify VerifyConfig
}

// FetchConfig describes the external artifact fetch tooling.
type FetchConfig struct {
	// Tool is used when the certificate status check passes.
	Tool string
	// OAuthTool is the fallback used with --use_oauth2 when CertStatus is
	// not installed.
	OAuthTool string
	// CertStatus exits zero when the user holds valid credentials.
	CertStatus string
	// Target is the build target the artifacts are published under.
	Target string
}

// VerifyConfig controls artifact verification.
type VerifyConfig struct {
	// Keyring is an OpenPGP public keyring (armored or binary). Empty
	// disables signature checks.
	Keyring string
	// RequireSignatures fails the update when an artifact has no
	// detached signature next to it.
	RequireSignatures bool
}

// Default returns the configuration used when no studiosdk.lua exists.
func Default() *Config {
	return &Config{
		SDKRoot:       "prebuilts/studio/intellij-sdk",
		ProjectDir:    "tools/adt/idea",
		ProductPrefix: "Android Studio",
		Unzip:         "unzip",
		Fetch: FetchConfig{
			Tool:       "/google/data/ro/projects/android/fetch_artifact",
			OAuthTool:  "/usr/bin/fetch_artifact",
			CertStatus: "/usr/bin/prodcertstatus",
			Target:     "IntelliJ",
		},
	}
}

// Validate performs basic validation on a Config.
func (c *Config) Validate() error {
	if err := validateRelPath(c.SDKRoot); err != nil {
		return &ValidationError{Field: luaFieldSDKRoot, Message: err.Error()}
	}
	if err := validateRelPath(c.ProjectDir); err != nil {
		return &ValidationError{Field: luaFieldProjectDir, Message: err.Error()}
	}
	if strings.TrimSpace(c.ProductPrefix) == "" {
		return &ValidationError{Field: luaFieldPrefix, Message: "cannot be empty"}
	}
	if c.Unzip == "" {
		return &ValidationError{Field: luaFieldUnzip, Message: "cannot be empty"}
	}
	if c.Fetch.Target == "" {
		return &ValidationError{Field: luaFieldFetch + "." + luaFieldTarget, Message: "cannot be empty"}
	}
	if c.Verify.RequireSignatures && c.Verify.Keyring == "" {
		return &ValidationError{
			Field:   luaFieldVerify + "." + luaFieldRequireSigs,
			Message: "requires verify.keyring",
		}
	}
	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

// validateRelPath rejects empty, absolute, and workspace-escaping paths.
func validateRelPath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("must be relative to the workspace: %s", path)
	}
	cleaned := filepath.Clean(path)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal not allowed: %s", path)
	}
	return nil
}
