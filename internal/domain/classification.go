package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VisualStyle captures the look of the source game, used to steer prompts.
type VisualStyle struct {
	ArtType      string   `json:"art_type"`
	ColorPalette []string `json:"color_palette"`
	Theme        string   `json:"theme"`
	Mood         string   `json:"mood"`
}

// PromptPrefix renders the style as a comma-joined prompt fragment.
func (v VisualStyle) PromptPrefix() string {
	parts := make([]string, 0, 3)
	if v.ArtType != "" {
		parts = append(parts, v.ArtType+" style")
	}
	if v.Theme != "" {
		parts = append(parts, v.Theme+" theme")
	}
	if v.Mood != "" {
		parts = append(parts, v.Mood+" mood")
	}
	return strings.Join(parts, ", ")
}

// AssetNeed is a per-asset hint extracted by the vision classifier.
type AssetNeed struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	Prompt      string `json:"game_specific_prompt"`
}

// Classification is the structured result of the external vision step:
// which mechanic the game uses, how it looks, and what to generate.
type Classification struct {
	GameName       string            `json:"game_name"`
	Publisher      string            `json:"publisher,omitempty"`
	MechanicID     string            `json:"mechanic_type"`
	Confidence     float64           `json:"mechanic_confidence"`
	Reasoning      string            `json:"mechanic_reasoning"`
	Style          VisualStyle       `json:"visual_style"`
	AssetNeeds     []AssetNeed       `json:"assets_needed"`
	CoreLoop       string            `json:"core_loop_description"`
	HookSuggestion string            `json:"hook_suggestion"`
	CTASuggestion  string            `json:"cta_suggestion"`
	ParameterHints map[string]string `json:"template_config,omitempty"`
}

// UnmarshalJSON accepts template_config values of any JSON scalar type.
// Classifier models (and callers relaying their output) emit numbers for
// grid sizes and speeds; hints are normalized to strings on decode.
func (c *Classification) UnmarshalJSON(data []byte) error {
	type alias Classification
	aux := struct {
		*alias
		ParameterHints map[string]any `json:"template_config"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.ParameterHints) > 0 {
		c.ParameterHints = make(map[string]string, len(aux.ParameterHints))
		for key, value := range aux.ParameterHints {
			c.ParameterHints[key] = hintString(value)
		}
	}
	return nil
}

func hintString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

// ConfidenceLevel buckets the raw confidence score.
func (c Classification) ConfidenceLevel() string {
	switch {
	case c.Confidence >= 0.8:
		return "high"
	case c.Confidence >= 0.5:
		return "medium"
	default:
		return "low"
	}
}
