package handlers

import (
	"errors"
	"net/http"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
)

type creditsResponse struct {
	WorkspaceID string `json:"workspace_id"`
	Available   int    `json:"available"`
	HasAccess   bool   `json:"has_access"`
	Sufficient  bool   `json:"sufficient"`
	Minimum     int    `json:"minimum_required"`
}

func (a *App) WorkspaceCredits(w http.ResponseWriter, r *http.Request) {
	credits, err := a.Client.Credits(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrAuthentication) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "generation service rejected the credentials")
			return
		}
		a.error(w, http.StatusBadGateway, "upstream", "failed to fetch workspace credits")
		return
	}
	a.json(w, http.StatusOK, creditsResponse{
		WorkspaceID: credits.WorkspaceID,
		Available:   credits.Available,
		HasAccess:   credits.HasAccess,
		Sufficient:  credits.Sufficient(a.Cfg.MinCreditsRequired),
		Minimum:     a.Cfg.MinCreditsRequired,
	})
}
