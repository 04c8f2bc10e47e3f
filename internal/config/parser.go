package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// Parser evaluates studiosdk.lua with host detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given host detector.
// A nil detector skips the platform table.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile loads the configuration at path. A missing file yields
// Default().
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return p.ParseString(ctx, string(data))
}

// ParseString parses a Lua config from a string.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	L := newSandboxedVM()
	defer L.Close()

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig overlays the global studiosdk table on Default().
func extractConfig(L *lua.LState) (*Config, error) {
	cfg := Default()

	root := L.GetGlobal(luaGlobalRoot)
	switch root.Type() {
	case lua.LTNil:
		return cfg, nil
	case lua.LTTable:
	default:
		return nil, &ParseError{
			Message: "invalid '" + luaGlobalRoot + "' value",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)

	fields := []struct {
		name string
		dst  *string
	}{
		{luaFieldSDKRoot, &cfg.SDKRoot},
		{luaFieldProjectDir, &cfg.ProjectDir},
		{luaFieldPrefix, &cfg.ProductPrefix},
		{luaFieldUnzip, &cfg.Unzip},
	}
	for _, f := range fields {
		if err := stringField(table, f.name, f.dst); err != nil {
			return nil, err
		}
	}

	if fetch, err := subTable(table, luaFieldFetch); err != nil {
		return nil, err
	} else if fetch != nil {
		fetchFields := []struct {
			name string
			dst  *string
		}{
			{luaFieldTool, &cfg.Fetch.Tool},
			{luaFieldOAuthTool, &cfg.Fetch.OAuthTool},
			{luaFieldCertStatus, &cfg.Fetch.CertStatus},
			{luaFieldTarget, &cfg.Fetch.Target},
		}
		for _, f := range fetchFields {
			if err := stringField(fetch, f.name, f.dst); err != nil {
				return nil, err
			}
		}
	}

	if verify, err := subTable(table, luaFieldVerify); err != nil {
		return nil, err
	} else if verify != nil {
		if err := stringField(verify, luaFieldKeyring, &cfg.Verify.Keyring); err != nil {
			return nil, err
		}
		if v := verify.RawGetString(luaFieldRequireSigs); v.Type() == lua.LTBool {
			cfg.Verify.RequireSignatures = bool(v.(lua.LBool))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return cfg, nil
}

// stringField copies a string field into dst. nil keeps the default so
// platform.when() conditionals can fall through.
func stringField(table *lua.LTable, name string, dst *string) error {
	v := table.RawGetString(name)
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTString:
		*dst = v.String()
		return nil
	default:
		return &ParseError{
			Message: "invalid field '" + name + "'",
			Detail:  fmt.Sprintf("expected string, got %s", v.Type()),
		}
	}
}

func subTable(table *lua.LTable, name string) (*lua.LTable, error) {
	v := table.RawGetString(name)
	switch v.Type() {
	case lua.LTNil:
		return nil, nil
	case lua.LTTable:
		return v.(*lua.LTable), nil
	default:
		return nil, &ParseError{
			Message: "invalid field '" + name + "'",
			Detail:  fmt.Sprintf("expected table, got %s", v.Type()),
		}
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
