package domain

import "time"

// GeneratedAsset is the outcome of generating a single asset. A retry
// produces a fresh value; assets are never mutated after creation.
type GeneratedAsset struct {
	Key      string
	Prompt   string
	ImageURL string
	Data     []byte
	DataURI  string
	Width    int
	Height   int
	Elapsed  time.Duration
	Err      error
}

// Valid reports whether the asset generated successfully: payload present and
// no recorded error.
func (a GeneratedAsset) Valid() bool {
	return len(a.Data) > 0 && a.Err == nil
}

// GeneratedAssetSet collects one batch of assets for a single build. Each set
// is owned exclusively by its requester and is never shared across builds.
type GeneratedAssetSet struct {
	GameName   string
	MechanicID string
	Assets     map[string]GeneratedAsset
	Order      []string
	Elapsed    time.Duration
	StyleID    string
}

// NewGeneratedAssetSet constructs an empty set for one build.
func NewGeneratedAssetSet(gameName, mechanicID, styleID string) *GeneratedAssetSet {
	return &GeneratedAssetSet{
		GameName:   gameName,
		MechanicID: mechanicID,
		StyleID:    styleID,
		Assets:     make(map[string]GeneratedAsset),
	}
}

// Add records an asset under its key, keeping insertion order.
func (s *GeneratedAssetSet) Add(asset GeneratedAsset) {
	if _, ok := s.Assets[asset.Key]; !ok {
		s.Order = append(s.Order, asset.Key)
	}
	s.Assets[asset.Key] = asset
	s.Elapsed += asset.Elapsed
}

// ValidCount counts assets that generated successfully.
func (s *GeneratedAssetSet) ValidCount() int {
	n := 0
	for _, a := range s.Assets {
		if a.Valid() {
			n++
		}
	}
	return n
}

// AllValid reports whether every asset in the set is valid.
func (s *GeneratedAssetSet) AllValid() bool {
	return len(s.Assets) > 0 && s.ValidCount() == len(s.Assets)
}

// Manifest returns key → data URI for every valid asset, in insertion order
// of keys (map iteration order does not matter for the JSON encoding, but the
// Order slice lets callers walk assets deterministically).
func (s *GeneratedAssetSet) Manifest() map[string]string {
	manifest := make(map[string]string, len(s.Assets))
	for key, a := range s.Assets {
		if a.Valid() && a.DataURI != "" {
			manifest[key] = a.DataURI
		}
	}
	return manifest
}
