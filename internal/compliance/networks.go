// Package compliance checks assembled playables against distribution-network
// constraints and packages them for upload.
package compliance

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed networks.yaml
var networksYAML []byte

// Export container formats.
const (
	FormatHTML = "html"
	FormatZip  = "zip"
)

// NetworkSpec describes one ad network's playable requirements. The matrix
// is data, not code: adding a network means adding a YAML entry.
type NetworkSpec struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	MaxSizeMB      float64 `yaml:"max_size_mb"`
	Format         string  `yaml:"format"`
	MainFile       string  `yaml:"main_file"`
	RequiresBridge bool    `yaml:"requires_bridge"`
	Notes          string  `yaml:"notes,omitempty"`
}

// MaxSizeBytes converts the megabyte ceiling to bytes.
func (n NetworkSpec) MaxSizeBytes() int {
	return int(n.MaxSizeMB * 1024 * 1024)
}

// Matrix is the loaded network constraint table.
type Matrix struct {
	specs map[string]NetworkSpec
	order []string
}

type networksFile struct {
	Networks []NetworkSpec `yaml:"networks"`
}

// LoadMatrix parses the embedded network matrix.
func LoadMatrix() (*Matrix, error) {
	var file networksFile
	if err := yaml.Unmarshal(networksYAML, &file); err != nil {
		return nil, fmt.Errorf("compliance: parse network matrix: %w", err)
	}
	m := &Matrix{specs: make(map[string]NetworkSpec, len(file.Networks))}
	for _, spec := range file.Networks {
		if spec.ID == "" {
			return nil, fmt.Errorf("compliance: network without id")
		}
		if _, dup := m.specs[spec.ID]; dup {
			return nil, fmt.Errorf("compliance: duplicate network id %q", spec.ID)
		}
		if spec.Format != FormatHTML && spec.Format != FormatZip {
			return nil, fmt.Errorf("compliance: network %s: unknown format %q", spec.ID, spec.Format)
		}
		m.specs[spec.ID] = spec
		m.order = append(m.order, spec.ID)
	}
	if _, ok := m.specs["generic"]; !ok {
		return nil, fmt.Errorf("compliance: generic network missing from matrix")
	}
	return m, nil
}

// Get returns the spec for a network id, falling back to generic for
// unrecognized names.
func (m *Matrix) Get(id string) NetworkSpec {
	if spec, ok := m.specs[strings.ToLower(strings.TrimSpace(id))]; ok {
		return spec
	}
	return m.specs["generic"]
}

// Known reports whether the id names a registered network.
func (m *Matrix) Known(id string) bool {
	_, ok := m.specs[strings.ToLower(strings.TrimSpace(id))]
	return ok
}

// List returns all specs in matrix order.
func (m *Matrix) List() []NetworkSpec {
	out := make([]NetworkSpec, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.specs[id])
	}
	return out
}
