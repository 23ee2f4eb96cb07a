// Package vision classifies game screenshots with a multimodal model:
// which mechanic the game uses, its visual style, and per-asset prompts
// for generation. Model output that cannot be parsed degrades into a
// low-confidence fallback classification instead of failing the build.
package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
	"github.com/AlreadyKyle/layer-playable-ads/internal/infra"
)

const defaultModel = "gemini-2.5-flash"

// fallbackConfidence marks classifications synthesized from unparsable
// model output.
const fallbackConfidence = 0.3

const classifyPrompt = `Analyze these mobile game screenshots and produce a playable ad plan.

1. Identify the game name and publisher if recognizable.
2. Classify the core mechanic as one of: MATCH3, RUNNER, TAPPER, MERGER, PUZZLE, SHOOTER, UNKNOWN. Explain your reasoning and rate confidence 0.0-1.0.
3. Describe the visual style: art_type, 4-6 dominant hex colors, theme, mood.
4. Describe the core loop in 1-2 sentences.
5. List the assets a playable ad needs for the mechanic, with a detailed
   game_specific_prompt per asset describing exactly what you see.
   MATCH3 needs tile_1..tile_4 and background; RUNNER needs player,
   obstacle, collectible and background; TAPPER needs target, bonus and
   background.
6. Suggest hook_suggestion (3-5 catchy words), cta_suggestion, and any
   template_config overrides (grid size, speed, etc.).

Respond with only a JSON object shaped like:
{
  "game_name": "Name or Unknown",
  "publisher": "Publisher or null",
  "mechanic_type": "MATCH3",
  "mechanic_confidence": 0.9,
  "mechanic_reasoning": "...",
  "visual_style": {"art_type": "cartoon", "color_palette": ["#FF6B6B"], "theme": "fantasy", "mood": "playful"},
  "core_loop_description": "...",
  "assets_needed": [{"key": "tile_1", "description": "...", "game_specific_prompt": "..."}],
  "hook_suggestion": "Match the candies!",
  "cta_suggestion": "Download FREE",
  "template_config": {"GRID_WIDTH": 7}
}`

// Classifier wraps the Gemini API for screenshot analysis.
type Classifier struct {
	cli    *genai.Client
	model  string
	logger *infra.Logger
}

// NewClassifier constructs a classifier. The genai client reads its API key
// from the environment.
func NewClassifier(ctx context.Context, model string, logger *infra.Logger) (*Classifier, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("vision: create client: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Classifier{cli: cli, model: model, logger: logger}, nil
}

// Classify analyzes screenshot images and returns a structured
// classification. Transport errors surface as errors; unparsable model
// output is normalized into a low-confidence fallback instead.
func (c *Classifier) Classify(ctx context.Context, screenshots [][]byte, gameNameHint string) (domain.Classification, error) {
	if len(screenshots) == 0 {
		return domain.Classification{}, fmt.Errorf("vision: at least one screenshot is required")
	}

	prompt := classifyPrompt
	if hint := strings.TrimSpace(gameNameHint); hint != "" {
		prompt += "\n\nHint: the game is likely \"" + hint + "\"."
	}

	parts := make([]*genai.Part, 0, len(screenshots)+1)
	parts = append(parts, &genai.Part{Text: prompt})
	for _, shot := range screenshots {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: sniffImageMIME(shot), Data: shot},
		})
	}

	resp, err := c.cli.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Parts: parts}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("vision: generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return FallbackClassification("", "empty model response"), nil
	}

	cls, err := ParseClassification(text)
	if err != nil {
		c.logger.Warn().Err(err).Msg("vision: model output unparsable, using fallback classification")
		return FallbackClassification(text, err.Error()), nil
	}

	c.logger.Info().
		Str("game", cls.GameName).
		Str("mechanic", cls.MechanicID).
		Float64("confidence", cls.Confidence).
		Msg("screenshots classified")
	return cls, nil
}

// ParseClassification decodes model output, stripping a markdown code fence
// if the model wrapped its JSON in one. Numeric template_config values are
// normalized by Classification's own decoder.
func ParseClassification(text string) (domain.Classification, error) {
	var cls domain.Classification
	if err := json.Unmarshal([]byte(extractJSON(text)), &cls); err != nil {
		return domain.Classification{}, fmt.Errorf("vision: decode classification: %w", err)
	}

	cls.GameName = firstNonEmpty(cls.GameName, "Unknown Game")
	cls.MechanicID = strings.ToLower(strings.TrimSpace(cls.MechanicID))
	return cls, nil
}

// FallbackClassification synthesizes a usable low-confidence result when the
// model's output could not be parsed. The mechanic is salvaged from the raw
// text when one of the known labels appears in it.
func FallbackClassification(responseText, reason string) domain.Classification {
	mechanic := "unknown"
	upper := strings.ToUpper(responseText)
	for _, candidate := range []string{"MATCH3", "RUNNER", "TAPPER", "MERGER", "PUZZLE", "SHOOTER"} {
		if strings.Contains(upper, candidate) {
			mechanic = strings.ToLower(candidate)
			break
		}
	}
	return domain.Classification{
		GameName:   "Unknown Game",
		MechanicID: mechanic,
		Confidence: fallbackConfidence,
		Reasoning:  "fallback classification: " + reason,
		Style: domain.VisualStyle{
			ArtType:      "cartoon",
			ColorPalette: []string{"#FF6B6B", "#4ECDC4", "#FFE66D"},
			Theme:        "casual",
			Mood:         "playful",
		},
		HookSuggestion: "Tap to Play!",
		CTASuggestion:  "Download FREE",
	}
}

func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return text
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func sniffImageMIME(data []byte) string {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "image/png"
	}
	return mime
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
