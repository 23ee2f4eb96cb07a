package domain

// AssetRequirement describes one asset a mechanic template needs.
type AssetRequirement struct {
	Key           string `yaml:"key"`
	Description   string `yaml:"description"`
	DefaultPrompt string `yaml:"default_prompt"`
	Required      bool   `yaml:"required"`
	Transparency  bool   `yaml:"transparency"`
	MaxDimension  int    `yaml:"max_dimension"`
}

// ConfigParameter is a tunable template parameter with a default value.
type ConfigParameter struct {
	Key         string  `yaml:"key"`
	Type        string  `yaml:"type"`
	Default     string  `yaml:"default"`
	Min         float64 `yaml:"min,omitempty"`
	Max         float64 `yaml:"max,omitempty"`
	Description string  `yaml:"description,omitempty"`
}

// MechanicSpec binds a game mechanic to its template, asset requirements and
// default parameters. Specs are immutable once loaded.
type MechanicSpec struct {
	ID           string             `yaml:"id"`
	Name         string             `yaml:"name"`
	Description  string             `yaml:"description"`
	TemplateFile string             `yaml:"template_file"`
	ExampleGames []string           `yaml:"example_games,omitempty"`
	Assets       []AssetRequirement `yaml:"assets"`
	Parameters   []ConfigParameter  `yaml:"parameters"`
}

// RequiredAssetKeys returns the keys of required assets in declaration order.
func (m MechanicSpec) RequiredAssetKeys() []string {
	keys := make([]string, 0, len(m.Assets))
	for _, a := range m.Assets {
		if a.Required {
			keys = append(keys, a.Key)
		}
	}
	return keys
}

// DefaultParameters returns the parameter defaults keyed by parameter name.
func (m MechanicSpec) DefaultParameters() map[string]string {
	out := make(map[string]string, len(m.Parameters))
	for _, p := range m.Parameters {
		out[p.Key] = p.Default
	}
	return out
}
