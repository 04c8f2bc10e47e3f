package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ParseString_Empty(t *testing.T) {
	cfg, err := NewParser(nil).ParseString(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParser_ParseString_Full(t *testing.T) {
	luaCode := `
		studiosdk = {
			sdk_root = "prebuilts/idea",
			project_dir = "tools/idea",
			product_prefix = "IntelliJ IDEA",
			unzip = "/usr/local/bin/unzip",
			fetch = {
				tool = "/opt/fetch",
				oauth_tool = "/usr/local/bin/fetch_artifact",
				cert_status = "/usr/local/bin/certstatus",
				target = "IdeaU",
			},
			verify = {
				keyring = "keys/release.asc",
				require_signatures = true,
			},
		}
	`

	cfg, err := NewParser(nil).ParseString(context.Background(), luaCode)
	require.NoError(t, err)

	assert.Equal(t, "prebuilts/idea", cfg.SDKRoot)
	assert.Equal(t, "tools/idea", cfg.ProjectDir)
	assert.Equal(t, "IntelliJ IDEA", cfg.ProductPrefix)
	assert.Equal(t, "/usr/local/bin/unzip", cfg.Unzip)
	assert.Equal(t, FetchConfig{
		Tool:       "/opt/fetch",
		OAuthTool:  "/usr/local/bin/fetch_artifact",
		CertStatus: "/usr/local/bin/certstatus",
		Target:     "IdeaU",
	}, cfg.Fetch)
	assert.Equal(t, "keys/release.asc", cfg.Verify.Keyring)
	assert.True(t, cfg.Verify.RequireSignatures)
}

func TestParser_ParseString_PlatformConditional(t *testing.T) {
	luaCode := `
		studiosdk = {
			fetch = {
				oauth_tool = platform.when(platform.is_macos, "/opt/homebrew/bin/fetch_artifact"),
			},
		}
	`

	tests := []struct {
		name string
		os   string
		want string
	}{
		{name: "macos", os: "darwin", want: "/opt/homebrew/bin/fetch_artifact"},
		{name: "linux_keeps_default", os: "linux", want: Default().Fetch.OAuthTool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser(platform.StaticDetector{Info: &platform.Info{OS: tt.os, Arch: "arm64"}})
			cfg, err := parser.ParseString(context.Background(), luaCode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Fetch.OAuthTool)
		})
	}
}

func TestParser_ParseString_Errors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
	}{
		{name: "syntax", code: `studiosdk = {`, wantMsg: "Lua syntax error"},
		{name: "root_not_table", code: `studiosdk = "x"`, wantMsg: "invalid 'studiosdk' value"},
		{name: "field_wrong_type", code: `studiosdk = { sdk_root = 3 }`, wantMsg: "invalid field 'sdk_root'"},
		{name: "fetch_wrong_type", code: `studiosdk = { fetch = "x" }`, wantMsg: "invalid field 'fetch'"},
		{name: "absolute_root", code: `studiosdk = { sdk_root = "/abs" }`, wantMsg: "config validation failed"},
		{name: "escaping_project", code: `studiosdk = { project_dir = "../x" }`, wantMsg: "config validation failed"},
		{name: "signatures_without_keyring", code: `studiosdk = { verify = { require_signatures = true } }`, wantMsg: "requires verify.keyring"},
		{name: "sandbox_blocks_os", code: `os.execute("true")`, wantMsg: "Lua syntax error"},
		{name: "sandbox_blocks_require", code: `require("x")`, wantMsg: "Lua syntax error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil).ParseString(context.Background(), tt.code)
			require.Error(t, err)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParser_ParseString_DetectorError(t *testing.T) {
	parser := NewParser(platform.StaticDetector{Err: errors.New("no host")})
	_, err := parser.ParseString(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform detection failed")
}

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	parser := NewParser(nil)

	cfg, err := parser.ParseFile(context.Background(), filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(`studiosdk = { product_prefix = "Studio" }`), 0o644))

	cfg, err = parser.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Studio", cfg.ProductPrefix)
	assert.Equal(t, Default().SDKRoot, cfg.SDKRoot)
}

func TestFormatError(t *testing.T) {
	err := &ParseError{Message: "Lua syntax error", Detail: "line 1: boom\nstack traceback:\n\t[G]: ?"}

	assert.Equal(t, "Lua syntax error: line 1: boom", FormatError(err, false))
	assert.Contains(t, FormatError(err, true), "Details:")
	assert.Equal(t, "plain", FormatError(errors.New("plain"), false))
}
