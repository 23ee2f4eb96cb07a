package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/AlreadyKyle/layer-playable-ads/internal/assembly"
	"github.com/AlreadyKyle/layer-playable-ads/internal/compliance"
	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
	"github.com/AlreadyKyle/layer-playable-ads/internal/generation"
	"github.com/AlreadyKyle/layer-playable-ads/internal/infra"
	"github.com/AlreadyKyle/layer-playable-ads/internal/mechanics"
	"github.com/AlreadyKyle/layer-playable-ads/internal/storage"
)

// Classifier is the vision dependency, optional at runtime: deployments
// without a model key still serve builds from caller-supplied
// classifications.
type Classifier interface {
	Classify(ctx context.Context, screenshots [][]byte, gameNameHint string) (domain.Classification, error)
}

// App bundles the handler dependencies.
type App struct {
	Cfg          *infra.Config
	Log          *infra.Logger
	Registry     *mechanics.Registry
	Matrix       *compliance.Matrix
	Client       generation.Client
	Orchestrator *generation.Orchestrator
	Assembler    *assembly.Assembler
	Validator    *compliance.Validator
	Classifier   Classifier
	Store        *storage.ArtifactStore
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}
