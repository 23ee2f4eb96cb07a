package handlers

import (
	"net/http"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
)

type mechanicResponse struct {
	ID           string                   `json:"id"`
	Name         string                   `json:"name"`
	Description  string                   `json:"description"`
	ExampleGames []string                 `json:"example_games,omitempty"`
	Assets       []mechanicAssetResponse  `json:"assets"`
	Parameters   []domain.ConfigParameter `json:"parameters"`
}

type mechanicAssetResponse struct {
	Key          string `json:"key"`
	Description  string `json:"description"`
	Required     bool   `json:"required"`
	Transparency bool   `json:"transparency"`
}

func (a *App) ListMechanics(w http.ResponseWriter, r *http.Request) {
	specs := a.Registry.List()
	out := make([]mechanicResponse, 0, len(specs))
	for _, spec := range specs {
		assets := make([]mechanicAssetResponse, 0, len(spec.Assets))
		for _, asset := range spec.Assets {
			assets = append(assets, mechanicAssetResponse{
				Key:          asset.Key,
				Description:  asset.Description,
				Required:     asset.Required,
				Transparency: asset.Transparency,
			})
		}
		out = append(out, mechanicResponse{
			ID:           spec.ID,
			Name:         spec.Name,
			Description:  spec.Description,
			ExampleGames: spec.ExampleGames,
			Assets:       assets,
			Parameters:   spec.Parameters,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"mechanics": out})
}
