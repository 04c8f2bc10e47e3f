// Package platform describes the operating-system targets the Studio SDK
// ships for and detects the host the tool runs on.
//
// The SDK table (Platforms, HomePath, Suffix) is fixed: every version
// directory contains one extracted tree per platform, and each tree has
// its IDE home at a known relative path. Host detection uses gopsutil and
// is injected into the Lua tool configuration as a read-only table.
package platform

import (
	"context"
	"fmt"
)

// Platform is one of the operating-system targets of the SDK.
type Platform string

const (
	Linux   Platform = "linux"
	Windows Platform = "windows"
	Darwin  Platform = "darwin"
)

// All names the scope shared by every platform.
const All = "all"

// Platforms lists the SDK platforms in manifest order.
var Platforms = []Platform{Linux, Windows, Darwin}

// homePaths maps each platform to its IDE home inside a version directory.
var homePaths = map[Platform]string{
	Linux:   "linux/android-studio",
	Windows: "windows/android-studio",
	Darwin:  "darwin/android-studio/Contents",
}

// String returns the platform name.
func (p Platform) String() string {
	return string(p)
}

// HomePath returns the IDE home of p relative to a version directory.
func HomePath(p Platform) string {
	return homePaths[p]
}

// Suffix returns the manifest attribute suffix for a scope ("" for All).
func Suffix(scope string) string {
	if scope == All {
		return ""
	}
	return "_" + scope
}

// Parse converts a name into a Platform.
func Parse(name string) (Platform, error) {
	for _, p := range Platforms {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform: %q", name)
}

// Info contains host detection information.
type Info struct {
	OS      string // "linux", "darwin", "windows"
	Arch    string // GOARCH
	Distro  string // distro ID (Linux only, e.g., "ubuntu")
	Family  string // distro family as reported by gopsutil
	Version string // distro version (Linux only)
}

// SDKPlatform returns the SDK platform matching the host OS.
func (i *Info) SDKPlatform() (Platform, bool) {
	p, err := Parse(i.OS)
	return p, err == nil
}

// IsLinux returns true if the host is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the host is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the host is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// Detector is the interface for host detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
