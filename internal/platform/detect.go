package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using runtime and gopsutil.
type RealDetector struct{}

// NewDetector creates a new host detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect returns the host OS and architecture. On Linux the distribution
// is filled in from gopsutil; a failed lookup leaves it empty.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	if runtime.GOOS != "linux" {
		return info, nil
	}

	distro, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}

	info.Distro = normalize(distro)
	info.Family = normalize(family)
	info.Version = normalize(version)
	return info, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// StaticDetector returns a fixed Info. Used when the caller already knows
// the host, and in tests.
type StaticDetector struct {
	Info *Info
	Err  error
}

// Detect returns the configured info and error.
func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	return s.Info, s.Err
}
