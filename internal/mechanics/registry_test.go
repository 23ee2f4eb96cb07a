package mechanics

import (
	"errors"
	"strings"
	"testing"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
)

func loadRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return reg
}

func TestLoadRegistersAllMechanics(t *testing.T) {
	reg := loadRegistry(t)

	specs := reg.List()
	if len(specs) != 3 {
		t.Fatalf("expected 3 mechanics, got %d", len(specs))
	}
	for _, id := range []string{"match3", "runner", "tapper"} {
		if _, err := reg.Get(id); err != nil {
			t.Fatalf("expected %s to be registered: %v", id, err)
		}
	}
}

func TestRequiredAssetKeysAreUniquePerMechanic(t *testing.T) {
	reg := loadRegistry(t)

	for _, spec := range reg.List() {
		seen := make(map[string]bool)
		for _, key := range spec.RequiredAssetKeys() {
			if seen[key] {
				t.Fatalf("%s: duplicate required key %q", spec.ID, key)
			}
			seen[key] = true
		}
		if len(seen) == 0 {
			t.Fatalf("%s: no required assets", spec.ID)
		}
	}
}

func TestMatch3AssetsAndParameters(t *testing.T) {
	reg := loadRegistry(t)

	spec, err := reg.Get("match3")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	keys := spec.RequiredAssetKeys()
	want := []string{"tile_1", "tile_2", "tile_3", "tile_4", "background"}
	if len(keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	for i, key := range want {
		if keys[i] != key {
			t.Fatalf("expected %v, got %v", want, keys)
		}
	}

	defaults := spec.DefaultParameters()
	if defaults["GRID_WIDTH"] != "7" || defaults["GRID_HEIGHT"] != "9" {
		t.Fatalf("unexpected grid defaults %v", defaults)
	}
	if defaults["TILE_TYPES"] != "4" || defaults["MATCH_MINIMUM"] != "3" {
		t.Fatalf("unexpected match defaults %v", defaults)
	}
}

func TestTapperBonusIsOptional(t *testing.T) {
	reg := loadRegistry(t)

	spec, err := reg.Get("tapper")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	for _, key := range spec.RequiredAssetKeys() {
		if key == "bonus" {
			t.Fatal("bonus must not be required")
		}
	}
}

func TestGetUnknownMechanic(t *testing.T) {
	reg := loadRegistry(t)

	if _, err := reg.Get("merger"); !errors.Is(err, domain.ErrUnknownMechanic) {
		t.Fatalf("expected ErrUnknownMechanic, got %v", err)
	}
}

func TestResolveNearMissNames(t *testing.T) {
	reg := loadRegistry(t)

	cases := map[string]string{
		"match3":         "match3",
		"Match-3 Puzzle": "match3",
		"endless runner": "runner",
		"idle clicker":   "tapper",
		"clicker":        "tapper",
		"tower defense":  FallbackMechanicID,
		"":               FallbackMechanicID,
	}
	for name, want := range cases {
		if got := reg.Resolve(name).ID; got != want {
			t.Errorf("Resolve(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestTemplatesContainBridgeAndPlaceholders(t *testing.T) {
	reg := loadRegistry(t)

	for _, spec := range reg.List() {
		html, err := reg.Template(spec)
		if err != nil {
			t.Fatalf("%s: Template returned error: %v", spec.ID, err)
		}
		if !strings.Contains(html, "openStoreUrl") {
			t.Errorf("%s: template missing store bridge", spec.ID)
		}
		for _, placeholder := range []string{"${TITLE}", "${ASSET_MANIFEST}", "${SOUND_SCRIPT}", "${STORE_URL}", "${HOOK_TEXT}", "${CTA_TEXT}"} {
			if !strings.Contains(html, placeholder) {
				t.Errorf("%s: template missing %s", spec.ID, placeholder)
			}
		}
		for _, p := range spec.Parameters {
			if !strings.Contains(html, "${"+p.Key+"}") {
				t.Errorf("%s: template missing parameter placeholder %s", spec.ID, p.Key)
			}
		}
	}
}
