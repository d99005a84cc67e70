package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestItem is one asset entry. Type is kept as written; unknown types
// are reported by the loader, not here.
type ManifestItem struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
	Type   string `yaml:"type"`
}

// ManifestGroup is a named batch of assets.
type ManifestGroup struct {
	Name  string         `yaml:"name"`
	Data  map[string]any `yaml:"data,omitempty"`
	Items []ManifestItem `yaml:"items"`
}

// Manifest lists every asset the scene needs.
type Manifest struct {
	Groups []ManifestGroup `yaml:"groups"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest parses manifest YAML. Items must carry a name and a source.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for gi, g := range m.Groups {
		for ii, item := range g.Items {
			if item.Name == "" {
				return nil, fmt.Errorf("%w: group %d item %d has no name", ErrInvalid, gi, ii)
			}
			if item.Source == "" {
				return nil, fmt.Errorf("%w: item %q has no source", ErrInvalid, item.Name)
			}
		}
	}
	return &m, nil
}

// Items flattens all groups in declaration order.
func (m *Manifest) Items() []ManifestItem {
	var items []ManifestItem
	for _, g := range m.Groups {
		items = append(items, g.Items...)
	}
	return items
}

// Group returns the named group.
func (m *Manifest) Group(name string) (ManifestGroup, bool) {
	for _, g := range m.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return ManifestGroup{}, false
}
