package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

const maxScreenshots = 5

type analyzeRequest struct {
	Screenshots  []string `json:"screenshots"`
	GameNameHint string   `json:"game_name_hint"`
}

func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	if a.Classifier == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "vision classification is not configured")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if len(req.Screenshots) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "at least one screenshot is required")
		return
	}
	if len(req.Screenshots) > maxScreenshots {
		req.Screenshots = req.Screenshots[:maxScreenshots]
	}

	images := make([][]byte, 0, len(req.Screenshots))
	for _, enc := range req.Screenshots {
		// Accept both raw base64 and data URIs.
		if idx := strings.Index(enc, ";base64,"); idx >= 0 {
			enc = enc[idx+len(";base64,"):]
		}
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil || len(data) == 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "screenshot is not valid base64")
			return
		}
		images = append(images, data)
	}

	cls, err := a.Classifier.Classify(r.Context(), images, req.GameNameHint)
	if err != nil {
		a.Log.Error().Err(err).Msg("classification failed")
		a.error(w, http.StatusBadGateway, "upstream", "classification failed")
		return
	}
	a.json(w, http.StatusOK, cls)
}
