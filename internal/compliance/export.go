package compliance

import (
	"encoding/json"
	"fmt"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
	"github.com/AlreadyKyle/layer-playable-ads/pkg/zip"
)

// ExportPackage is a playable packaged per one network's container rules.
type ExportPackage struct {
	NetworkID string
	Filename  string
	MIME      string
	Data      []byte
}

type tiktokConfig struct {
	Orientation string   `json:"playable_orientation"`
	Languages   []string `json:"playable_languages"`
}

// ExportForNetwork packages a validated artifact for upload: a bare HTML
// file for single-file networks, a zip for archive networks. TikTok zips
// additionally carry the config.json its review pipeline requires.
func ExportForNetwork(artifact domain.RenderedArtifact, spec NetworkSpec) (ExportPackage, error) {
	switch spec.Format {
	case FormatHTML:
		return ExportPackage{
			NetworkID: spec.ID,
			Filename:  spec.MainFile,
			MIME:      "text/html; charset=utf-8",
			Data:      []byte(artifact.HTML),
		}, nil

	case FormatZip:
		entries := []zip.Entry{{Filename: spec.MainFile, Data: []byte(artifact.HTML)}}
		if spec.ID == "tiktok" {
			cfg, err := json.Marshal(tiktokConfig{Orientation: "portrait", Languages: []string{"en"}})
			if err != nil {
				return ExportPackage{}, fmt.Errorf("compliance: encode tiktok config: %w", err)
			}
			entries = append(entries, zip.Entry{Filename: "config.json", Data: cfg})
		}
		data, err := zip.Archive(entries)
		if err != nil {
			return ExportPackage{}, err
		}
		return ExportPackage{
			NetworkID: spec.ID,
			Filename:  spec.ID + "_playable.zip",
			MIME:      "application/zip",
			Data:      data,
		}, nil

	default:
		return ExportPackage{}, fmt.Errorf("compliance: unknown export format %q", spec.Format)
	}
}
