package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/AlreadyKyle/layer-playable-ads/internal/assembly"
	"github.com/AlreadyKyle/layer-playable-ads/internal/compliance"
	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
	"github.com/AlreadyKyle/layer-playable-ads/internal/generation"
	"github.com/AlreadyKyle/layer-playable-ads/internal/infra"
	"github.com/AlreadyKyle/layer-playable-ads/internal/mechanics"
	"github.com/AlreadyKyle/layer-playable-ads/internal/providers/layer"
	"github.com/AlreadyKyle/layer-playable-ads/internal/storage"
)

// playable builds a single ad from the command line. Without -generate it
// produces a demo build that uses the template's drawn-shape fallbacks, so it
// works offline and costs no credits.
func main() {
	_ = godotenv.Load()

	var (
		mechanic = flag.String("mechanic", "tapper", "mechanic id or free-form name")
		gameName = flag.String("game", "My Game", "game name shown in the playable")
		storeURL = flag.String("store-url", "", "store URL opened by the CTA")
		networks = flag.String("networks", "generic", "comma-separated ad network ids")
		outDir   = flag.String("out", "./output", "directory for exported packages")
		generate = flag.Bool("generate", false, "generate assets via the Layer API (needs credentials)")
		styleID  = flag.String("style-id", "", "Layer style id used for asset generation (required with -generate)")
	)
	flag.Parse()

	logger := infra.NewLogger(os.Getenv("APP_ENV"))

	registry, err := mechanics.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load mechanic registry")
	}
	matrix, err := compliance.LoadMatrix()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load network matrix")
	}
	store, err := storage.NewArtifactStore(*outDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare output directory")
	}

	spec := registry.Resolve(*mechanic)
	cfg := domain.PlayableConfig{GameName: *gameName, StoreURL: *storeURL}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var manifest map[string]string
	if *generate {
		if *styleID == "" {
			logger.Fatal().Msg("-style-id is required with -generate")
		}
		set, err := generateAssets(ctx, &logger, spec, *styleID)
		if err != nil {
			logger.Fatal().Err(err).Msg("asset generation failed")
		}
		logger.Info().
			Int("valid", set.ValidCount()).
			Int("total", len(set.Assets)).
			Msg("assets generated")
		manifest = set.Manifest()
	}

	assembler := assembly.NewAssembler(registry, &logger)
	artifact, err := assembler.Assemble(cfg, spec.ID, nil, manifest)
	if err != nil {
		logger.Fatal().Err(err).Msg("assembly failed")
	}

	validator := compliance.NewValidator(compliance.MaxPlayableBytes, &logger)
	buildID := "cli"

	for _, id := range strings.Split(*networks, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		netSpec := matrix.Get(id)
		checked := validator.Validate(artifact, &netSpec)
		for _, problem := range checked.Problems {
			logger.Warn().Str("network", netSpec.ID).Msg(problem)
		}
		pkg, err := compliance.ExportForNetwork(checked, netSpec)
		if err != nil {
			logger.Fatal().Err(err).Str("network", netSpec.ID).Msg("export failed")
		}
		path, err := store.WriteExport(ctx, buildID, pkg)
		if err != nil {
			logger.Fatal().Err(err).Str("network", netSpec.ID).Msg("write failed")
		}
		fmt.Printf("%-12s %-8s %8d bytes  %s\n", netSpec.ID, checkmark(checked.Valid), len(pkg.Data), path)
	}
}

// generateAssets runs the full generation pipeline using credentials from the
// environment. The classification is synthetic: the CLI has no screenshots,
// so default prompts from the mechanic spec drive every asset.
func generateAssets(ctx context.Context, logger *infra.Logger, spec domain.MechanicSpec, styleID string) (*domain.GeneratedAssetSet, error) {
	apiKey := os.Getenv("LAYER_API_KEY")
	workspaceID := os.Getenv("LAYER_WORKSPACE_ID")
	if apiKey == "" || workspaceID == "" {
		return nil, fmt.Errorf("LAYER_API_KEY and LAYER_WORKSPACE_ID are required with -generate")
	}

	client, err := layer.NewClient(layer.Options{
		APIKey:      apiKey,
		WorkspaceID: workspaceID,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	orchestrator, err := generation.NewOrchestrator(generation.OrchestratorOptions{
		Client: client,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	return orchestrator.GenerateSet(ctx, spec, domain.Classification{MechanicID: spec.ID}, styleID)
}

func checkmark(valid bool) string {
	if valid {
		return "ok"
	}
	return "INVALID"
}
