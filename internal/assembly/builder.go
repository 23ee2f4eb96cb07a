// Package assembly merges a mechanic template, caller configuration and
// generated asset data URIs into one self-contained playable HTML document.
package assembly

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
	"github.com/AlreadyKyle/layer-playable-ads/internal/infra"
	"github.com/AlreadyKyle/layer-playable-ads/internal/mechanics"
	"github.com/AlreadyKyle/layer-playable-ads/internal/sound"
)

// PhaserScriptTag is the runtime loaded by every template.
const PhaserScriptTag = `<script src="https://cdn.jsdelivr.net/npm/phaser@3.70.0/dist/phaser.min.js"></script>`

var placeholderKey = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Assembler renders playable documents from registered mechanic templates.
type Assembler struct {
	registry *mechanics.Registry
	logger   *infra.Logger
}

// NewAssembler constructs an assembler over the mechanic registry.
func NewAssembler(registry *mechanics.Registry, logger *infra.Logger) *Assembler {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Assembler{registry: registry, logger: logger}
}

// Assemble renders the mechanic's template with the config, parameter
// overrides and asset manifest substituted in. Placeholders outside the
// substitution table stay in place for the validator to report; they are
// never dropped silently.
func (a *Assembler) Assemble(cfg domain.PlayableConfig, mechanicID string, overrides map[string]string, manifest map[string]string) (domain.RenderedArtifact, error) {
	spec, err := a.registry.Get(mechanicID)
	if err != nil {
		return domain.RenderedArtifact{}, err
	}
	template, err := a.registry.Template(spec)
	if err != nil {
		return domain.RenderedArtifact{}, err
	}

	cfg.ApplyDefaults()
	subs, err := buildSubstitutions(cfg, spec, overrides, manifest)
	if err != nil {
		return domain.RenderedArtifact{}, err
	}

	html := substitute(template, subs)
	artifact := domain.RenderedArtifact{
		HTML:           html,
		SizeBytes:      len(html),
		MechanicID:     spec.ID,
		AssetsEmbedded: len(manifest),
	}

	a.logger.Info().
		Str("mechanic", spec.ID).
		Str("game", cfg.GameName).
		Int("assets", artifact.AssetsEmbedded).
		Str("size", artifact.SizeFormatted()).
		Msg("playable assembled")
	return artifact, nil
}

// buildSubstitutions flattens config, mechanic parameters and the manifest
// into one uppercase-keyed table.
func buildSubstitutions(cfg domain.PlayableConfig, spec domain.MechanicSpec, overrides map[string]string, manifest map[string]string) (map[string]string, error) {
	if manifest == nil {
		manifest = map[string]string{}
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("assembly: encode manifest: %w", err)
	}

	subs := map[string]string{
		"TITLE":            cfg.Title,
		"GAME_NAME":        cfg.GameName,
		"BACKGROUND_COLOR": cfg.BackgroundColor,
		"WIDTH":            strconv.Itoa(cfg.Width),
		"HEIGHT":           strconv.Itoa(cfg.Height),

		"STORE_URL":         cfg.PrimaryStoreURL(),
		"STORE_URL_IOS":     firstNonEmpty(cfg.StoreURLIOS, cfg.PrimaryStoreURL()),
		"STORE_URL_ANDROID": firstNonEmpty(cfg.StoreURLAndroid, cfg.PrimaryStoreURL()),

		"HOOK_DURATION":     strconv.Itoa(cfg.HookDuration),
		"GAMEPLAY_DURATION": strconv.Itoa(cfg.GameplayDuration),
		"CTA_DURATION":      strconv.Itoa(cfg.CTADuration),

		"HOOK_TEXT": cfg.HookText,
		"CTA_TEXT":  cfg.CTAText,

		"ASSET_MANIFEST": string(manifestJSON),
		"PHASER_SCRIPT":  PhaserScriptTag,
		"SOUND_SCRIPT":   sound.Script(!cfg.DisableSound),
	}

	for key, value := range spec.DefaultParameters() {
		subs[strings.ToUpper(key)] = value
	}
	for key, value := range overrides {
		upper := strings.ToUpper(strings.TrimSpace(key))
		if placeholderKey.MatchString(upper) {
			subs[upper] = value
		}
	}
	return subs, nil
}

// substitute replaces every ${KEY} in one left-to-right scan. Text brought
// in by a substitution is never rescanned, so a value containing a
// placeholder-shaped string cannot trigger a second substitution.
func substitute(template string, subs map[string]string) string {
	var out strings.Builder
	out.Grow(len(template))

	rest := template
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			out.WriteString(rest)
			return out.String()
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			out.WriteString(rest)
			return out.String()
		}
		end += start

		key := rest[start+2 : end]
		value, known := subs[key]
		if known && placeholderKey.MatchString(key) {
			out.WriteString(rest[:start])
			out.WriteString(value)
		} else {
			// Unknown placeholder: keep it for the validator to flag.
			out.WriteString(rest[:end+1])
		}
		rest = rest[end+1:]
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
