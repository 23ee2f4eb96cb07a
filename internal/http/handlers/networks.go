package handlers

import "net/http"

type networkResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	MaxSizeMB      float64 `json:"max_size_mb"`
	Format         string  `json:"format"`
	MainFile       string  `json:"main_file"`
	RequiresBridge bool    `json:"requires_bridge"`
	Notes          string  `json:"notes,omitempty"`
}

func (a *App) ListNetworks(w http.ResponseWriter, r *http.Request) {
	specs := a.Matrix.List()
	out := make([]networkResponse, 0, len(specs))
	for _, spec := range specs {
		out = append(out, networkResponse{
			ID:             spec.ID,
			Name:           spec.Name,
			MaxSizeMB:      spec.MaxSizeMB,
			Format:         spec.Format,
			MainFile:       spec.MainFile,
			RequiresBridge: spec.RequiresBridge,
			Notes:          spec.Notes,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"networks": out})
}
