// Package mechanics holds the built-in registry of playable game mechanics:
// which assets each one needs, its tunable parameters and the HTML template
// it renders into. The registry is compiled into the binary.
package mechanics

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
)

//go:embed registry.yaml
var registryYAML []byte

//go:embed templates/*.html
var templateFS embed.FS

// FallbackMechanicID is used when a classified mechanic has no template.
const FallbackMechanicID = "tapper"

// Registry is an immutable lookup of mechanic specs.
type Registry struct {
	specs map[string]domain.MechanicSpec
	order []string
}

type registryFile struct {
	Mechanics []domain.MechanicSpec `yaml:"mechanics"`
}

// Load parses the embedded registry and validates it. Called once at startup;
// a broken registry is a build defect, not a runtime condition.
func Load() (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(registryYAML, &file); err != nil {
		return nil, fmt.Errorf("mechanics: parse registry: %w", err)
	}
	if len(file.Mechanics) == 0 {
		return nil, fmt.Errorf("mechanics: registry is empty")
	}

	reg := &Registry{specs: make(map[string]domain.MechanicSpec, len(file.Mechanics))}
	for _, spec := range file.Mechanics {
		if spec.ID == "" {
			return nil, fmt.Errorf("mechanics: spec without id")
		}
		if _, dup := reg.specs[spec.ID]; dup {
			return nil, fmt.Errorf("mechanics: duplicate mechanic id %q", spec.ID)
		}
		if err := validateSpec(spec); err != nil {
			return nil, err
		}
		if _, err := templateFS.ReadFile(spec.TemplateFile); err != nil {
			return nil, fmt.Errorf("mechanics: %s: missing template %s: %w", spec.ID, spec.TemplateFile, err)
		}
		reg.specs[spec.ID] = spec
		reg.order = append(reg.order, spec.ID)
	}
	if _, ok := reg.specs[FallbackMechanicID]; !ok {
		return nil, fmt.Errorf("mechanics: fallback mechanic %q not registered", FallbackMechanicID)
	}
	return reg, nil
}

func validateSpec(spec domain.MechanicSpec) error {
	seen := make(map[string]bool, len(spec.Assets))
	required := 0
	for _, a := range spec.Assets {
		if a.Key == "" {
			return fmt.Errorf("mechanics: %s: asset without key", spec.ID)
		}
		if seen[a.Key] {
			return fmt.Errorf("mechanics: %s: duplicate asset key %q", spec.ID, a.Key)
		}
		seen[a.Key] = true
		if a.Required {
			required++
		}
	}
	if required == 0 {
		return fmt.Errorf("mechanics: %s: no required assets", spec.ID)
	}
	params := make(map[string]bool, len(spec.Parameters))
	for _, p := range spec.Parameters {
		if params[p.Key] {
			return fmt.Errorf("mechanics: %s: duplicate parameter %q", spec.ID, p.Key)
		}
		params[p.Key] = true
	}
	return nil
}

// Get returns the spec for an exact mechanic id.
func (r *Registry) Get(id string) (domain.MechanicSpec, error) {
	spec, ok := r.specs[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return domain.MechanicSpec{}, fmt.Errorf("%w: %q", domain.ErrUnknownMechanic, id)
	}
	return spec, nil
}

// Resolve maps a free-form mechanic name from the classifier onto a
// registered spec, tolerating near-miss labels. Names nothing matches fall
// back to the tapper mechanic, the simplest playable.
func (r *Registry) Resolve(name string) domain.MechanicSpec {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if spec, ok := r.specs[normalized]; ok {
		return spec
	}

	var id string
	switch {
	case strings.Contains(normalized, "match") || strings.Contains(normalized, "3"):
		id = "match3"
	case strings.Contains(normalized, "run") || strings.Contains(normalized, "endless"):
		id = "runner"
	case strings.Contains(normalized, "tap") || strings.Contains(normalized, "click") || strings.Contains(normalized, "idle"):
		id = "tapper"
	default:
		id = FallbackMechanicID
	}
	if spec, ok := r.specs[id]; ok {
		return spec
	}
	return r.specs[FallbackMechanicID]
}

// List returns all specs in registry order.
func (r *Registry) List() []domain.MechanicSpec {
	out := make([]domain.MechanicSpec, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.specs[id])
	}
	return out
}

// Template returns the raw HTML template for a mechanic.
func (r *Registry) Template(spec domain.MechanicSpec) (string, error) {
	data, err := templateFS.ReadFile(spec.TemplateFile)
	if err != nil {
		return "", fmt.Errorf("mechanics: read template %s: %w", spec.TemplateFile, err)
	}
	return string(data), nil
}
