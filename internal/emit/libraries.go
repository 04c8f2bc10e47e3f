package emit

import (
	"encoding/xml"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/reconcile"
)

// Library names and file conventions of the consuming project.
const (
	SDKLibrary        = "studio-sdk"
	PluginPrefix      = "studio-plugin-"
	UpdaterLibrary    = "intellij-updater"
	SourcesArchive    = "android-studio-sources.zip"
	UpdaterJar        = "updater-full.jar"
	PlatformVariable  = "$SDK_PLATFORM$"
	librariesDir      = ".idea/libraries"
	stalePluginPrefix = "studio_plugin_"
)

// LibraryLayout locates the SDK version relative to the consuming project.
type LibraryLayout struct {
	// Workspace is the absolute workspace root.
	Workspace string
	// ProjectDir is the project directory relative to Workspace.
	ProjectDir string
	// SDKDir is the version directory relative to Workspace.
	SDKDir string
}

// LibraryResult lists the descriptor files touched by WriteLibraries.
type LibraryResult struct {
	Written []string
	Removed []string
}

// WriteLibraries regenerates the project library descriptors for one SDK
// version. Previously generated plugin descriptors and the updater
// descriptor are removed first so dropped plugins leave nothing behind.
func WriteLibraries(layout LibraryLayout, sdk reconcile.JarSets, plugins reconcile.PluginJars) (*LibraryResult, error) {
	projectDir := filepath.Join(layout.Workspace, layout.ProjectDir)
	libDir := filepath.Join(projectDir, filepath.FromSlash(librariesDir))
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		return nil, fmt.Errorf("create libraries dir: %w", err)
	}

	relWorkspace, err := filepath.Rel(projectDir, layout.Workspace)
	if err != nil {
		return nil, fmt.Errorf("relative workspace: %w", err)
	}
	sdkRel := path.Join(filepath.ToSlash(relWorkspace), filepath.ToSlash(layout.SDKDir))
	platformRoot := sdkRel + "/" + PlatformVariable
	sources := []string{sdkRel + "/" + SourcesArchive}

	res := &LibraryResult{}
	write := func(name string, jars []string) error {
		file := filepath.Join(libDir, LibraryFileName(name))
		if err := os.WriteFile(file, []byte(GenerateLibrary(name, jars, sources)), 0o644); err != nil {
			return fmt.Errorf("write library %s: %w", name, err)
		}
		res.Written = append(res.Written, file)
		return nil
	}

	// every jar of every platform; IntelliJ ignores the ones missing on the host
	all := append(append([]string{}, sdk.All...), sdk.Deltas()...)
	if err := write(SDKLibrary, prefixed(platformRoot, all)); err != nil {
		return nil, err
	}

	removed, err := removeStale(libDir)
	if err != nil {
		return nil, err
	}
	res.Removed = removed

	for _, name := range plugins.Names {
		sets := plugins.Plugins[name]
		jars := append(append([]string{}, sets.All...), sets.Deltas()...)
		if len(jars) == 0 {
			continue
		}
		if err := write(PluginPrefix+name, prefixed(platformRoot, jars)); err != nil {
			return nil, err
		}
	}

	updater := filepath.Join(layout.Workspace, filepath.FromSlash(layout.SDKDir), UpdaterJar)
	if _, err := os.Stat(updater); err == nil {
		if err := write(UpdaterLibrary, []string{sdkRel + "/" + UpdaterJar}); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// LibraryFileName maps a library name to its descriptor file name.
func LibraryFileName(name string) string {
	return strings.ReplaceAll(name, "-", "_") + ".xml"
}

// GenerateLibrary renders one libraryTable descriptor. jars and sources
// are paths relative to the project directory.
func GenerateLibrary(name string, jars, sources []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<component name=\"libraryTable\">\n  <library name=\"%s\">\n    <CLASSES>\n", escape(name))
	for _, j := range jars {
		fmt.Fprintf(&b, "      <root url=\"jar://$PROJECT_DIR$/%s!/\" />\n", escape(j))
	}
	b.WriteString("    </CLASSES>\n    <JAVADOC />\n    <SOURCES>\n")
	for _, s := range sources {
		fmt.Fprintf(&b, "      <root url=\"jar://$PROJECT_DIR$/%s!/\" />\n", escape(s))
	}
	b.WriteString("    </SOURCES>\n  </library>\n</component>")
	return b.String()
}

// removeStale deletes generated plugin descriptors and the updater
// descriptor from libDir.
func removeStale(libDir string) ([]string, error) {
	entries, err := os.ReadDir(libDir)
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}

	var removed []string
	for _, e := range entries {
		name := e.Name()
		stale := (strings.HasPrefix(name, stalePluginPrefix) && strings.HasSuffix(name, ".xml")) ||
			name == LibraryFileName(UpdaterLibrary)
		if !stale {
			continue
		}
		file := filepath.Join(libDir, name)
		if err := os.Remove(file); err != nil {
			return nil, fmt.Errorf("remove stale library %s: %w", name, err)
		}
		removed = append(removed, file)
	}
	sort.Strings(removed)
	return removed, nil
}

func prefixed(root string, jars []string) []string {
	out := make([]string, len(jars))
	for i, j := range jars {
		out[i] = root + j
	}
	return out
}

func escape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
