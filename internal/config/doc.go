// Package config loads the studiosdk tool configuration.
//
// The configuration is an optional Lua file (studiosdk.lua at the
// workspace root) evaluated with gopher-lua in a restricted sandbox. A
// read-only "platform" table describing the host is injected first so a
// workspace can pick, for example, a different fetch tool on macOS:
//
//	studiosdk = {
//	  sdk_root = "prebuilts/studio/intellij-sdk",
//	  fetch = {
//	    oauth_tool = platform.is_macos and "/opt/homebrew/bin/fetch_artifact" or nil,
//	  },
//	}
//
// Every field is optional; unset fields keep the values from Default.
package config
