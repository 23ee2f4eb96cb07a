package domain

import "fmt"

// Industry-standard playable timing, in milliseconds: a 3 second hook,
// 15 seconds of gameplay, 5 seconds of call-to-action.
const (
	HookDurationMS     = 3000
	GameplayDurationMS = 15000
	CTADurationMS      = 5000
)

// PlayableConfig carries caller-supplied presentation settings for one build.
// Zero-value fields are filled from classification suggestions or defaults.
type PlayableConfig struct {
	GameName         string `json:"game_name"`
	Title            string `json:"title"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	BackgroundColor  string `json:"background_color"`
	StoreURL         string `json:"store_url"`
	StoreURLIOS      string `json:"store_url_ios"`
	StoreURLAndroid  string `json:"store_url_android"`
	HookText         string `json:"hook_text"`
	CTAText          string `json:"cta_text"`
	HookDuration     int    `json:"hook_duration"`
	GameplayDuration int    `json:"gameplay_duration"`
	CTADuration      int    `json:"cta_duration"`

	// DisableSound turns off the embedded procedural sound effects.
	// Sound is on by default.
	DisableSound bool `json:"disable_sound"`
}

// ApplyDefaults fills unset fields with the standard playable defaults.
func (c *PlayableConfig) ApplyDefaults() {
	if c.GameName == "" {
		c.GameName = "My Game"
	}
	if c.Title == "" {
		c.Title = c.GameName
	}
	if c.Width <= 0 {
		c.Width = 320
	}
	if c.Height <= 0 {
		c.Height = 480
	}
	if c.BackgroundColor == "" {
		c.BackgroundColor = "#1a1a2e"
	}
	if c.HookText == "" {
		c.HookText = "Tap to Play!"
	}
	if c.CTAText == "" {
		c.CTAText = "Download FREE"
	}
	if c.HookDuration <= 0 {
		c.HookDuration = HookDurationMS
	}
	if c.GameplayDuration <= 0 {
		c.GameplayDuration = GameplayDurationMS
	}
	if c.CTADuration <= 0 {
		c.CTADuration = CTADurationMS
	}
}

// PrimaryStoreURL picks the store link embedded behind the bridge hook,
// preferring an explicit URL, then iOS, then Android.
func (c PlayableConfig) PrimaryStoreURL() string {
	if c.StoreURL != "" {
		return c.StoreURL
	}
	if c.StoreURLIOS != "" {
		return c.StoreURLIOS
	}
	if c.StoreURLAndroid != "" {
		return c.StoreURLAndroid
	}
	return "https://apps.apple.com"
}

// RenderedArtifact is the assembled playable plus its validation outcome.
// Validation problems are data, not errors: a partially valid artifact is
// still inspectable. Immutable once produced.
type RenderedArtifact struct {
	HTML           string
	SizeBytes      int
	MechanicID     string
	AssetsEmbedded int
	Valid          bool
	Problems       []string
}

// SizeFormatted renders the artifact size for humans.
func (r RenderedArtifact) SizeFormatted() string {
	mb := float64(r.SizeBytes) / (1024 * 1024)
	if mb >= 1 {
		return fmt.Sprintf("%.2f MB", mb)
	}
	return fmt.Sprintf("%.1f KB", float64(r.SizeBytes)/1024)
}
