// Package emit writes the files derived from a reconciled SDK version:
// the spec.bzl manifest consumed by the build, and the IntelliJ library
// descriptors of the consuming project.
package emit

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/platform"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/reconcile"
)

// SpecFileName is the manifest written inside a version directory.
const SpecFileName = "spec.bzl"

const specHeader = "# Auto-generated file, do not edit manually.\n"

// ErrNoBundleName is returned when a previous manifest records no mac
// bundle name.
var ErrNoBundleName = errors.New("failed to find existing mac bundle name")

var bundleNamePattern = regexp.MustCompile(`mac_bundle_name = ("(?:[^"\\\n]|\\.)*")`)

// scopes lists the manifest scopes in output order.
func scopes() []string {
	out := []string{platform.All}
	for _, p := range platform.Platforms {
		out = append(out, string(p))
	}
	return out
}

// StructName turns a version such as "AI-223.8836" into the Starlark
// identifier "AI223_8836".
func StructName(version string) string {
	return strings.ReplaceAll(strings.ReplaceAll(version, "-", ""), ".", "_")
}

// GenerateSpec renders spec.bzl. The output depends only on its inputs.
func GenerateSpec(version string, sdk reconcile.JarSets, plugins reconcile.PluginJars, bundleName string) []byte {
	var buf bytes.Buffer
	buf.WriteString(specHeader)
	fmt.Fprintf(&buf, "%s = struct(\n", StructName(version))

	for _, scope := range scopes() {
		fmt.Fprintf(&buf, "    jars%s = [\n", platform.Suffix(scope))
		for _, jar := range sdk.Scope(scope) {
			fmt.Fprintf(&buf, "        %q,\n", jar)
		}
		buf.WriteString("    ],\n")
	}

	for _, scope := range scopes() {
		fmt.Fprintf(&buf, "    plugin_jars%s = {\n", platform.Suffix(scope))
		for _, name := range plugins.Names {
			jars := plugins.Plugins[name].Scope(scope)
			if len(jars) == 0 {
				continue
			}
			fmt.Fprintf(&buf, "        %q: [\n", name)
			for _, jar := range jars {
				fmt.Fprintf(&buf, "            %q,\n", path.Base(jar))
			}
			buf.WriteString("        ],\n")
		}
		buf.WriteString("    },\n")
	}

	fmt.Fprintf(&buf, "    mac_bundle_name = %q,\n", bundleName)
	buf.WriteString(")\n")
	return buf.Bytes()
}

// WriteSpec replaces the manifest at file.
func WriteSpec(file, version string, sdk reconcile.JarSets, plugins reconcile.PluginJars, bundleName string) error {
	data := GenerateSpec(version, sdk, plugins, bundleName)
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", SpecFileName, err)
	}
	return nil
}

// ReadMacBundleName returns the bundle name recorded in an existing
// manifest. The original bundle directory has been renamed by then, so
// the manifest is the only place it survives.
func ReadMacBundleName(file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoBundleName, err)
	}
	m := bundleNamePattern.FindSubmatch(data)
	if m == nil {
		return "", fmt.Errorf("%w in %s", ErrNoBundleName, file)
	}
	name, err := strconv.Unquote(string(m[1]))
	if err != nil {
		// written unescaped by hand
		return string(m[1][1 : len(m[1])-1]), nil
	}
	return name, nil
}
