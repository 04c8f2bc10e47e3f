// Package metadata keeps the provenance record written next to every SDK
// version as METADATA: one "key: value" line per fact, in the order the
// facts were recorded.
package metadata

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the provenance file inside a version directory.
const FileName = "METADATA"

// Well-known keys.
const (
	KeyPath    = "path"
	KeyBuildID = "build_id"
)

// Record is an insertion-ordered string map.
type Record struct {
	keys   []string
	values map[string]string
}

// New returns an empty record.
func New() *Record {
	return &Record{values: map[string]string{}}
}

// Set stores value under key. Re-setting a key keeps its first position.
func (r *Record) Set(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value for key.
func (r *Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of entries.
func (r *Record) Len() int {
	return len(r.keys)
}

// MarshalYAML emits the record as a flat mapping in insertion order.
// Scalars stay untagged so numeric ids are written plain.
func (r *Record) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range r.keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Value: r.values[k]},
		)
	}
	return node, nil
}

// UnmarshalYAML reads a flat mapping, keeping document order.
func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("metadata: expected a mapping, got kind %d", node.Kind)
	}
	*r = *New()
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("metadata: value of %q is not a scalar", k.Value)
		}
		r.Set(k.Value, v.Value)
	}
	return nil
}

// Write stores the record as dir/METADATA.
func Write(dir string, r *Record) error {
	var buf bytes.Buffer
	if r.Len() > 0 {
		enc := yaml.NewEncoder(&buf)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Read loads dir/METADATA.
func Read(dir string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	r := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return r, nil
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return r, nil
}

// manifest is the repo manifest published next to the artifacts.
type manifest struct {
	Projects []struct {
		Path     string `xml:"path,attr"`
		Revision string `xml:"revision,attr"`
	} `xml:"project"`
}

// MergeManifest records every <project path revision> of the manifest
// read from rd, in document order. It returns the number of projects.
func (r *Record) MergeManifest(rd io.Reader) (int, error) {
	var m manifest
	if err := xml.NewDecoder(rd).Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("parse manifest: empty document")
		}
		return 0, fmt.Errorf("parse manifest: %w", err)
	}
	for _, p := range m.Projects {
		r.Set(p.Path, p.Revision)
	}
	return len(m.Projects), nil
}

// MergeManifestFile is MergeManifest on a file.
func (r *Record) MergeManifestFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return r.MergeManifest(f)
}
