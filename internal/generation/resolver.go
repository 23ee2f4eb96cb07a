package generation

import (
	"strings"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
)

// ResolvedPrompt pairs an asset key with the final prompt to submit.
type ResolvedPrompt struct {
	Key    string
	Prompt string
}

// ResolvePrompts merges a mechanic's required assets with classifier hints
// into final generation prompts, in the mechanic's declaration order.
//
// Per key the base prompt is chosen by priority: the classifier's
// game-specific prompt, then its description, then the mechanic default.
// Every prompt gets the visual style prefix plus a quality suffix that
// depends on whether the asset needs transparency.
func ResolvePrompts(spec domain.MechanicSpec, cls domain.Classification) []ResolvedPrompt {
	prompts := make(map[string]string, len(cls.AssetNeeds))
	descriptions := make(map[string]string, len(cls.AssetNeeds))
	for _, need := range cls.AssetNeeds {
		if need.Prompt != "" {
			prompts[need.Key] = need.Prompt
		}
		if need.Description != "" {
			descriptions[need.Key] = need.Description
		}
	}

	stylePrefix := cls.Style.PromptPrefix()

	resolved := make([]ResolvedPrompt, 0, len(spec.Assets))
	for _, req := range spec.Assets {
		if !req.Required {
			continue
		}

		base := req.DefaultPrompt
		if p, ok := prompts[req.Key]; ok {
			base = p
		} else if d, ok := descriptions[req.Key]; ok {
			base = d
		}

		parts := []string{base}
		if stylePrefix != "" {
			parts = append(parts, stylePrefix)
		}
		if req.Transparency {
			parts = append(parts, "transparent background", "game asset", "high quality")
		} else {
			parts = append(parts, "game background", "high quality")
		}

		resolved = append(resolved, ResolvedPrompt{
			Key:    req.Key,
			Prompt: strings.Join(parts, ", "),
		})
	}
	return resolved
}
