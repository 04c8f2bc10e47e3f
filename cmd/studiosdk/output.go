package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/platform"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/service"
)

var (
	headerStyle  = color.New(color.FgCyan, color.Bold).SprintFunc()
	successStyle = color.New(color.FgGreen).SprintFunc()
	warnStyle    = color.New(color.FgYellow).SprintFunc()
	dimStyle     = color.New(color.Faint).SprintFunc()
)

// step prints a step header.
func step(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "%s %s\n", headerStyle("==>"), fmt.Sprintf(format, args...))
}

// spinner counts extracted entries. It renders only on a color terminal
// and stays silent otherwise.
type spinner struct {
	bar     *progressbar.ProgressBar
	entries int
}

func newSpinner(w io.Writer, debug bool) *spinner {
	s := &spinner{}
	if debug || !isTerminal(w) {
		return s
	}
	s.bar = progressbar.NewOptions64(
		-1,
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionEnableColorCodes(true),
	)
	return s
}

// entry is passed to the extractor as its progress callback.
func (s *spinner) entry(p platform.Platform, _ string) {
	s.entries++
	if s.bar == nil {
		return
	}
	s.bar.Describe("Extracting " + p.String())
	_ = s.bar.Add(1)
}

func (s *spinner) finish() {
	if s.bar != nil {
		_ = s.bar.Finish()
	}
}

func isTerminal(w io.Writer) bool {
	if color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printResult writes the human summary of a finished update.
func printResult(w io.Writer, res *service.Result, workspace string) {
	fmt.Fprintf(w, "%s Updated %s\n", successStyle("✓"), res.Version)
	if res.BundleName != "" {
		fmt.Fprintf(w, "  mac bundle:  %s\n", res.BundleName)
	}
	if res.Extraction != nil {
		fmt.Fprintf(w, "  preserved:   %d unchanged archives\n", res.Extraction.Preserved)
	}
	fmt.Fprintf(w, "  jars:        %d common, %d platform specific\n", len(res.SDK.All), len(res.SDK.Deltas()))
	fmt.Fprintf(w, "  plugins:     %d\n", len(res.Plugins.Names))
	fmt.Fprintf(w, "  spec:        %s\n", relTo(workspace, res.SpecFile))
	if res.Libraries != nil {
		fmt.Fprintf(w, "  libraries:   %d written, %d removed\n", len(res.Libraries.Written), len(res.Libraries.Removed))
	}
	if res.Changes != nil {
		if res.Changes.Changed() {
			fmt.Fprintf(w, "  changes:     %s\n", res.Changes)
		} else {
			fmt.Fprintf(w, "  changes:     %s\n", dimStyle("none"))
		}
	}
	if res.ArtifactsDir != "" {
		fmt.Fprintf(w, "%s Downloaded artifacts kept at %s\n", warnStyle("!"), res.ArtifactsDir)
	}
	fmt.Fprintf(w, "%s\n", dimStyle(fmt.Sprintf("run %s in %s", res.RunID, res.Duration.Round(time.Millisecond))))
}

func relTo(base, target string) string {
	if rel, err := filepath.Rel(base, target); err == nil {
		return rel
	}
	return target
}
