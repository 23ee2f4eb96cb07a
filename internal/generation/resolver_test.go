package generation

import (
	"strings"
	"testing"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
)

func testSpec() domain.MechanicSpec {
	return domain.MechanicSpec{
		ID: "match3",
		Assets: []domain.AssetRequirement{
			{Key: "tile_1", DefaultPrompt: "colorful gem tile", Required: true, Transparency: true},
			{Key: "background", DefaultPrompt: "vibrant puzzle backdrop", Required: true, Transparency: false},
			{Key: "bonus", DefaultPrompt: "golden star", Required: false, Transparency: true},
		},
	}
}

func TestResolvePromptsPriority(t *testing.T) {
	cls := domain.Classification{
		AssetNeeds: []domain.AssetNeed{
			{Key: "tile_1", Description: "candy piece", Prompt: "red striped candy"},
			{Key: "background", Description: "candy kingdom scenery"},
		},
	}

	resolved := ResolvePrompts(testSpec(), cls)
	if len(resolved) != 2 {
		t.Fatalf("expected 2 required prompts, got %d", len(resolved))
	}
	if !strings.HasPrefix(resolved[0].Prompt, "red striped candy") {
		t.Fatalf("game-specific prompt must win, got %q", resolved[0].Prompt)
	}
	if !strings.HasPrefix(resolved[1].Prompt, "candy kingdom scenery") {
		t.Fatalf("description must beat the default, got %q", resolved[1].Prompt)
	}
}

func TestResolvePromptsFallsBackToDefault(t *testing.T) {
	resolved := ResolvePrompts(testSpec(), domain.Classification{})
	if !strings.HasPrefix(resolved[0].Prompt, "colorful gem tile") {
		t.Fatalf("expected default prompt, got %q", resolved[0].Prompt)
	}
}

func TestResolvePromptsTransparencySuffix(t *testing.T) {
	resolved := ResolvePrompts(testSpec(), domain.Classification{})

	if !strings.Contains(resolved[0].Prompt, "transparent background, game asset, high quality") {
		t.Fatalf("transparent asset missing suffix: %q", resolved[0].Prompt)
	}
	if !strings.Contains(resolved[1].Prompt, "game background, high quality") {
		t.Fatalf("opaque asset missing suffix: %q", resolved[1].Prompt)
	}
	if strings.Contains(resolved[1].Prompt, "transparent") {
		t.Fatalf("opaque asset must not ask for transparency: %q", resolved[1].Prompt)
	}
}

func TestResolvePromptsStylePrefix(t *testing.T) {
	cls := domain.Classification{
		Style: domain.VisualStyle{ArtType: "cartoon", Theme: "candy", Mood: "cheerful"},
	}

	resolved := ResolvePrompts(testSpec(), cls)
	if !strings.Contains(resolved[0].Prompt, "cartoon style, candy theme, cheerful mood") {
		t.Fatalf("expected style fragment, got %q", resolved[0].Prompt)
	}
	if strings.Contains(resolved[0].Prompt, ", ,") {
		t.Fatalf("empty fragments must not leave double commas: %q", resolved[0].Prompt)
	}
}

func TestResolvePromptsSkipsOptionalAssets(t *testing.T) {
	for _, rp := range ResolvePrompts(testSpec(), domain.Classification{}) {
		if rp.Key == "bonus" {
			t.Fatal("optional assets must not be resolved")
		}
	}
}

func TestResolvePromptsPreservesDeclarationOrder(t *testing.T) {
	resolved := ResolvePrompts(testSpec(), domain.Classification{})
	if resolved[0].Key != "tile_1" || resolved[1].Key != "background" {
		t.Fatalf("unexpected order: %v, %v", resolved[0].Key, resolved[1].Key)
	}
}
