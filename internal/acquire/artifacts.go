package acquire

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
)

// Fixed artifact names.
const (
	UpdaterJar     = "updater-full.jar"
	versionPrefix  = "AI-"
	manifestPrefix = "manifest_"
	manifestSuffix = ".xml"
)

var artifactPattern = regexp.MustCompile(`^android-studio-([^.]*)\.(.*)\.([^.-]+)(-sources\.zip|\.mac\.zip|\.tar\.gz|\.win\.zip)$`)

// ErrPrecondition marks failures the user can fix before retrying, such
// as missing credentials or tools.
var ErrPrecondition = errors.New("precondition failed")

// ErrNoArtifacts is returned when the artifact directory is empty or
// holds no recognizable artifact.
var ErrNoArtifacts = errors.New("no artifacts found")

// ArtifactMismatchError reports an artifact directory whose contents do
// not form one complete build.
type ArtifactMismatchError struct {
	Dir      string
	Expected []string
	Got      []string
}

func (e *ArtifactMismatchError) Error() string {
	return fmt.Sprintf("unexpected artifacts in %s\nexpected: %s\ngot:      %s",
		e.Dir, strings.Join(e.Expected, ", "), strings.Join(e.Got, ", "))
}

// Artifacts names the validated files of one build.
type Artifacts struct {
	Dir string
	// Version is "AI-<major>", the name of the version directory.
	Version string
	BuildID string

	Sources string
	Mac     string
	Linux   string
	Windows string
	Updater string

	// Manifest is the provenance manifest, empty unless exactly one
	// manifest_*.xml exists.
	Manifest string
}

// Names returns the five artifact file names in directory order.
func (a *Artifacts) Names() []string {
	return []string{a.Sources, a.Mac, a.Linux, a.Windows, a.Updater}
}

// Path returns the absolute path of an artifact name.
func (a *Artifacts) Path(name string) string {
	return filepath.Join(a.Dir, name)
}

// CheckArtifacts validates that dir holds exactly the archives of one
// build plus the updater jar.
func CheckArtifacts(dir string) (*Artifacts, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read artifact dir: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: there are no artifacts in %s", ErrNoArtifacts, dir)
	}

	var all, files, manifests []string
	for _, e := range entries {
		all = append(all, e.Name())
	}
	sort.Strings(all)
	for _, name := range all {
		if artifactPattern.MatchString(name) || name == UpdaterJar {
			files = append(files, name)
		}
		if strings.HasPrefix(name, manifestPrefix) && strings.HasSuffix(name, manifestSuffix) {
			manifests = append(manifests, name)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoArtifacts, dir)
	}

	m := artifactPattern.FindStringSubmatch(files[0])
	if m == nil {
		return nil, &ArtifactMismatchError{Dir: dir, Got: files}
	}
	major, minor, bid := m[1], m[2], m[3]
	base := fmt.Sprintf("android-studio-%s.%s.%s", major, minor, bid)
	expected := []string{
		base + "-sources.zip",
		base + ".mac.zip",
		base + ".tar.gz",
		base + ".win.zip",
		UpdaterJar,
	}
	if !slices.Equal(files, expected) {
		return nil, &ArtifactMismatchError{Dir: dir, Expected: expected, Got: files}
	}

	a := &Artifacts{
		Dir:     dir,
		Version: versionPrefix + major,
		BuildID: bid,
		Sources: expected[0],
		Mac:     expected[1],
		Linux:   expected[2],
		Windows: expected[3],
		Updater: expected[4],
	}
	if len(manifests) == 1 {
		a.Manifest = manifests[0]
	}
	return a, nil
}
