// Package reconcile lists the jars of an extracted SDK version per
// platform and partitions them into the set shared by every platform and
// the per-platform remainders.
//
// All paths are relative to a platform's IDE home and start with "/", for
// example "/lib/util.jar" or "/plugins/git4idea/lib/git4idea.jar", so the
// same string names the same file on every platform.
package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/platform"
)

// JarExt is the extension of library files.
const JarExt = ".jar"

// BundledPlugin is folded into the SDK set instead of being listed as a
// plugin, because the platform itself references it.
const BundledPlugin = "java"

// DenyList holds jars that are produced by other build steps and must
// never be reported.
var DenyList = []string{
	"/plugins/Kotlin/lib/kotlin-stdlib-jdk8.jar",
	"/plugins/Kotlin/lib/kotlin-stdlib.jar",
	"/plugins/Kotlin/lib/kotlin-stdlib-jdk7.jar",
	"/plugins/Kotlin/lib/kotlin-stdlib-common.jar",
	"/lib/annotations-java5.jar",
}

var denied = func() map[string]struct{} {
	m := make(map[string]struct{}, len(DenyList))
	for _, p := range DenyList {
		m[p] = struct{}{}
	}
	return m
}()

// Denied reports whether jar is on the deny-list.
func Denied(jar string) bool {
	_, ok := denied[jar]
	return ok
}

// JarSets is the partitioned jar listing of one entity (the SDK itself or
// a single plugin).
type JarSets struct {
	// All holds the jars present on every platform.
	All []string
	// Platform holds, per platform, the jars not in All.
	Platform map[platform.Platform][]string
}

// Scope returns the list for a scope name ("all", "linux", ...).
func (s JarSets) Scope(scope string) []string {
	if scope == platform.All {
		return s.All
	}
	return s.Platform[platform.Platform(scope)]
}

// Deltas returns the sorted union of the per-platform lists.
func (s JarSets) Deltas() []string {
	set := map[string]struct{}{}
	for _, p := range platform.Platforms {
		for _, j := range s.Platform[p] {
			set[j] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Empty reports whether no scope holds any jar.
func (s JarSets) Empty() bool {
	if len(s.All) > 0 {
		return false
	}
	for _, p := range platform.Platforms {
		if len(s.Platform[p]) > 0 {
			return false
		}
	}
	return true
}

// PluginJars holds the partitioned listing of every plugin.
type PluginJars struct {
	// Names lists every plugin found on any platform, sorted.
	Names []string
	// Plugins maps a plugin name to its partitioned jars.
	Plugins map[string]JarSets
}

// ErrMissingHome is returned when an extracted platform tree lacks a
// directory the SDK listing requires.
var ErrMissingHome = errors.New("platform tree incomplete")

// ListSDKJars lists, per platform, the jars in <home>/lib and in the
// bundled plugin's lib directory, and partitions them. fsys is rooted at
// a version directory.
func ListSDKJars(fsys fs.FS) (JarSets, error) {
	raw := make(map[platform.Platform][]string, len(platform.Platforms))
	for _, p := range platform.Platforms {
		home := platform.HomePath(p)

		jars, err := listJars(fsys, home, "/lib")
		if err != nil {
			return JarSets{}, fmt.Errorf("%w: %s: %v", ErrMissingHome, p, err)
		}
		bundled, err := listJars(fsys, home, "/plugins/"+BundledPlugin+"/lib")
		if err != nil {
			return JarSets{}, fmt.Errorf("%w: %s: %v", ErrMissingHome, p, err)
		}
		raw[p] = append(jars, bundled...)
	}
	return Partition(raw), nil
}

// ListPluginJars lists the jars of every plugin directory under each
// platform's <home>/plugins, except the bundled one, and partitions each
// plugin independently. A plugin missing from any platform has an empty
// common set.
func ListPluginJars(fsys fs.FS) (PluginJars, error) {
	perPlatform := make(map[platform.Platform]map[string][]string, len(platform.Platforms))
	names := map[string]struct{}{}

	for _, p := range platform.Platforms {
		home := platform.HomePath(p)
		entries, err := fs.ReadDir(fsys, path.Join(home, "plugins"))
		if err != nil {
			return PluginJars{}, fmt.Errorf("%w: %s: %v", ErrMissingHome, p, err)
		}

		plugins := map[string][]string{}
		for _, e := range entries {
			if !isDir(fsys, path.Join(home, "plugins"), e) || e.Name() == BundledPlugin {
				continue
			}
			jars, err := listJars(fsys, home, "/plugins/"+e.Name()+"/lib")
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return PluginJars{}, fmt.Errorf("list plugin %s on %s: %w", e.Name(), p, err)
			}
			plugins[e.Name()] = jars
			names[e.Name()] = struct{}{}
		}
		perPlatform[p] = plugins
	}

	out := PluginJars{Names: sortedKeys(names), Plugins: map[string]JarSets{}}
	for _, name := range out.Names {
		raw := map[platform.Platform][]string{}
		for _, p := range platform.Platforms {
			if jars, ok := perPlatform[p][name]; ok {
				raw[p] = jars
			}
		}
		out.Plugins[name] = Partition(raw)
	}
	return out, nil
}

// Partition computes the common set as the intersection of every
// platform's raw list and reduces each platform to its remainder. A
// platform absent from raw makes the common set empty. Every output list
// is sorted and deduplicated.
func Partition(raw map[platform.Platform][]string) JarSets {
	sets := make(map[platform.Platform]map[string]struct{}, len(platform.Platforms))
	for p, jars := range raw {
		sets[p] = toSet(jars)
	}

	common := map[string]struct{}{}
	if len(sets) == len(platform.Platforms) {
		for j := range sets[platform.Platforms[0]] {
			shared := true
			for _, p := range platform.Platforms[1:] {
				if _, ok := sets[p][j]; !ok {
					shared = false
					break
				}
			}
			if shared {
				common[j] = struct{}{}
			}
		}
	}

	out := JarSets{
		All:      sortedKeys(common),
		Platform: make(map[platform.Platform][]string, len(platform.Platforms)),
	}
	for _, p := range platform.Platforms {
		delta := map[string]struct{}{}
		for j := range sets[p] {
			if _, ok := common[j]; !ok {
				delta[j] = struct{}{}
			}
		}
		out.Platform[p] = sortedKeys(delta)
	}
	return out
}

// listJars returns "<rel>/<name>" for every non-denied jar file directly
// under home+rel.
func listJars(fsys fs.FS, home, rel string) ([]string, error) {
	dir := path.Join(home, rel)
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var jars []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), JarExt) {
			continue
		}
		jar := rel + "/" + e.Name()
		if Denied(jar) {
			continue
		}
		jars = append(jars, jar)
	}
	return jars, nil
}

// isDir follows symlinks, as the extracted mac tree keeps them.
func isDir(fsys fs.FS, parent string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := fs.Stat(fsys, path.Join(parent, e.Name()))
	return err == nil && info.IsDir()
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, i := range items {
		if Denied(i) {
			continue
		}
		set[i] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
