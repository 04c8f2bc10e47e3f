package config

import (
	lua "github.com/yuin/gopher-lua"
)

// blockedGlobals are removed before any configuration code runs: process
// control, filesystem access, code loading and metatable escapes.
var blockedGlobals = []string{
	"os", "io", "debug",
	"require", "dofile", "loadfile", "load", "loadstring",
	"rawset", "rawget", "setmetatable", "getmetatable", "collectgarbage",
}

// newSandboxedVM creates a Lua state that can only evaluate declarative
// configuration. string, table and math stay available.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
