package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/AlreadyKyle/layer-playable-ads/internal/compliance"
	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
)

type buildRequest struct {
	Classification domain.Classification `json:"classification"`
	StyleID        string                `json:"style_id"`
	Config         domain.PlayableConfig `json:"config"`
	Parameters     map[string]string     `json:"parameters"`
	Networks       []string              `json:"networks"`
}

type buildAssetResult struct {
	Key     string `json:"key"`
	Valid   bool   `json:"valid"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Error   string `json:"error,omitempty"`
	Prompt  string `json:"prompt"`
	Elapsed string `json:"elapsed"`
}

type buildNetworkResult struct {
	NetworkID string   `json:"network_id"`
	Valid     bool     `json:"valid"`
	Problems  []string `json:"problems,omitempty"`
	Filename  string   `json:"filename"`
	Size      int      `json:"size_bytes"`
	StoredAt  string   `json:"stored_at,omitempty"`
}

type buildResponse struct {
	BuildID     string               `json:"build_id"`
	MechanicID  string               `json:"mechanic_id"`
	GameName    string               `json:"game_name"`
	SizeBytes   int                  `json:"size_bytes"`
	Size        string               `json:"size"`
	Valid       bool                 `json:"valid"`
	Problems    []string             `json:"problems,omitempty"`
	AssetsValid int                  `json:"assets_valid"`
	AssetsTotal int                  `json:"assets_total"`
	Assets      []buildAssetResult   `json:"assets"`
	Networks    []buildNetworkResult `json:"networks,omitempty"`
	Elapsed     string               `json:"elapsed"`
}

// CreateBuild runs the full pipeline for one playable: resolve the mechanic,
// generate the asset set, assemble the template, validate, then export and
// persist one package per requested network.
func (a *App) CreateBuild(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Classification.MechanicID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "classification.mechanic_type is required")
		return
	}
	if req.StyleID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "style_id is required")
		return
	}
	for _, id := range req.Networks {
		if !a.Matrix.Known(id) {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown network: "+id)
			return
		}
	}

	spec := a.Registry.Resolve(req.Classification.MechanicID)

	set, err := a.Orchestrator.GenerateSet(r.Context(), spec, req.Classification, req.StyleID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAuthentication):
			a.error(w, http.StatusUnauthorized, "unauthorized", "generation service rejected the credentials")
		case errors.Is(err, domain.ErrInsufficientCredits):
			a.error(w, http.StatusPaymentRequired, "insufficient_credits", err.Error())
		default:
			a.Log.Error().Err(err).Msg("asset generation aborted")
			a.error(w, http.StatusBadGateway, "upstream", "asset generation failed")
		}
		return
	}

	buildID := uuid.NewString()
	cfg := req.Config
	applyClassification(&cfg, req.Classification)

	params := mergeParameters(req.Classification.ParameterHints, req.Parameters)

	artifact, err := a.Assembler.Assemble(cfg, spec.ID, params, set.Manifest())
	if err != nil {
		a.Log.Error().Err(err).Str("build_id", buildID).Msg("assembly failed")
		a.error(w, http.StatusInternalServerError, "assembly", "failed to assemble playable")
		return
	}
	artifact = a.Validator.Validate(artifact, nil)

	resp := buildResponse{
		BuildID:     buildID,
		MechanicID:  spec.ID,
		GameName:    cfg.GameName,
		SizeBytes:   artifact.SizeBytes,
		Size:        artifact.SizeFormatted(),
		Valid:       artifact.Valid,
		Problems:    artifact.Problems,
		AssetsValid: set.ValidCount(),
		AssetsTotal: len(set.Assets),
		Assets:      assetResults(set),
	}

	for _, id := range req.Networks {
		netSpec := a.Matrix.Get(id)
		checked := a.Validator.Validate(artifact, &netSpec)
		result := buildNetworkResult{
			NetworkID: netSpec.ID,
			Valid:     checked.Valid,
			Problems:  checked.Problems,
		}
		pkg, err := a.exportAndStore(r, buildID, checked, netSpec, &result)
		if err != nil {
			a.Log.Error().Err(err).Str("network", netSpec.ID).Msg("export failed")
			result.Problems = append(result.Problems, "export failed: "+err.Error())
			result.Valid = false
		} else {
			result.Filename = pkg.Filename
			result.Size = len(pkg.Data)
		}
		resp.Networks = append(resp.Networks, result)
	}

	resp.Elapsed = time.Since(start).Round(time.Millisecond).String()
	a.json(w, http.StatusCreated, resp)
}

type demoRequest struct {
	Mechanic   string                `json:"mechanic"`
	Config     domain.PlayableConfig `json:"config"`
	Parameters map[string]string     `json:"parameters"`
}

type demoResponse struct {
	MechanicID string   `json:"mechanic_id"`
	SizeBytes  int      `json:"size_bytes"`
	Size       string   `json:"size"`
	Valid      bool     `json:"valid"`
	Problems   []string `json:"problems,omitempty"`
	HTML       string   `json:"html"`
}

// CreateDemoBuild assembles a playable without any generated assets. The
// templates fall back to drawn shapes for missing textures, so the result is
// playable immediately and needs no credits.
func (a *App) CreateDemoBuild(w http.ResponseWriter, r *http.Request) {
	var req demoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	spec := a.Registry.Resolve(req.Mechanic)
	artifact, err := a.Assembler.Assemble(req.Config, spec.ID, req.Parameters, nil)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "assembly", "failed to assemble playable")
		return
	}
	artifact = a.Validator.Validate(artifact, nil)

	a.json(w, http.StatusOK, demoResponse{
		MechanicID: spec.ID,
		SizeBytes:  artifact.SizeBytes,
		Size:       artifact.SizeFormatted(),
		Valid:      artifact.Valid,
		Problems:   artifact.Problems,
		HTML:       artifact.HTML,
	})
}

// applyClassification fills presentation fields the caller left blank from
// the classifier's suggestions. Explicit config always wins.
func applyClassification(cfg *domain.PlayableConfig, cls domain.Classification) {
	if cfg.GameName == "" {
		cfg.GameName = cls.GameName
	}
	if cfg.HookText == "" {
		cfg.HookText = cls.HookSuggestion
	}
	if cfg.CTAText == "" {
		cfg.CTAText = cls.CTASuggestion
	}
}

// mergeParameters layers caller overrides on top of classifier hints.
func mergeParameters(hints, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(hints)+len(overrides))
	for k, v := range hints {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// exportAndStore packages the artifact for one network and, when a store is
// configured, persists it under the build id.
func (a *App) exportAndStore(r *http.Request, buildID string, artifact domain.RenderedArtifact, netSpec compliance.NetworkSpec, result *buildNetworkResult) (compliance.ExportPackage, error) {
	pkg, err := compliance.ExportForNetwork(artifact, netSpec)
	if err != nil {
		return compliance.ExportPackage{}, err
	}
	if a.Store != nil {
		path, err := a.Store.WriteExport(r.Context(), buildID, pkg)
		if err != nil {
			return pkg, err
		}
		result.StoredAt = path
	}
	return pkg, nil
}

func assetResults(set *domain.GeneratedAssetSet) []buildAssetResult {
	out := make([]buildAssetResult, 0, len(set.Order))
	for _, key := range set.Order {
		asset := set.Assets[key]
		result := buildAssetResult{
			Key:     asset.Key,
			Valid:   asset.Valid(),
			Width:   asset.Width,
			Height:  asset.Height,
			Prompt:  asset.Prompt,
			Elapsed: asset.Elapsed.Round(time.Millisecond).String(),
		}
		if asset.Err != nil {
			result.Error = asset.Err.Error()
		}
		out = append(out, result)
	}
	return out
}
