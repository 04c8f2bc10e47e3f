package config

// Lua schema field names and globals
const (
	luaGlobalRoot       = "studiosdk"
	luaFieldSDKRoot     = "sdk_root"
	luaFieldProjectDir  = "project_dir"
	luaFieldPrefix      = "product_prefix"
	luaFieldUnzip       = "unzip"
	luaFieldFetch       = "fetch"
	luaFieldTool        = "tool"
	luaFieldOAuthTool   = "oauth_tool"
	luaFieldCertStatus  = "cert_status"
	luaFieldTarget      = "target"
	luaFieldVerify      = "verify"
	luaFieldKeyring     = "keyring"
	luaFieldRequireSigs = "require_signatures"
)

// FileName is the tool configuration file looked up at the workspace root.
const FileName = "studiosdk.lua"
