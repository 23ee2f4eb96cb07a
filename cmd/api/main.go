package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/AlreadyKyle/layer-playable-ads/internal/assembly"
	"github.com/AlreadyKyle/layer-playable-ads/internal/compliance"
	"github.com/AlreadyKyle/layer-playable-ads/internal/generation"
	httpapi "github.com/AlreadyKyle/layer-playable-ads/internal/http"
	"github.com/AlreadyKyle/layer-playable-ads/internal/http/handlers"
	"github.com/AlreadyKyle/layer-playable-ads/internal/infra"
	"github.com/AlreadyKyle/layer-playable-ads/internal/mechanics"
	"github.com/AlreadyKyle/layer-playable-ads/internal/providers/layer"
	"github.com/AlreadyKyle/layer-playable-ads/internal/storage"
	"github.com/AlreadyKyle/layer-playable-ads/internal/vision"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	registry, err := mechanics.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load mechanic registry")
	}
	matrix, err := compliance.LoadMatrix()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load network matrix")
	}

	client, err := layer.NewClient(layer.Options{
		APIURL:      cfg.LayerAPIURL,
		APIKey:      cfg.LayerAPIKey,
		WorkspaceID: cfg.LayerWorkspaceID,
		Logger:      &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build generation client")
	}

	poller := generation.NewPoller(generation.PollerOptions{
		Timeout: cfg.PollTimeout,
		Logger:  &logger,
	})
	guard := generation.NewCreditGuard(client, cfg.MinCreditsRequired, &logger)
	orchestrator, err := generation.NewOrchestrator(generation.OrchestratorOptions{
		Client:       client,
		Poller:       poller,
		Guard:        guard,
		MaxDimension: cfg.MaxImageDimension,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Vision classification is optional: without a Gemini key the analyze
	// endpoint reports unavailable and builds accept caller classifications.
	var classifier handlers.Classifier
	if cfg.GeminiAPIKey != "" {
		c, err := vision.NewClassifier(ctx, cfg.GeminiModel, &logger)
		if err != nil {
			logger.Warn().Err(err).Msg("vision classifier disabled")
		} else {
			classifier = c
		}
	}

	store, err := storage.NewArtifactStore(cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare output directory")
	}

	app := &handlers.App{
		Cfg:          cfg,
		Log:          &logger,
		Registry:     registry,
		Matrix:       matrix,
		Client:       client,
		Orchestrator: orchestrator,
		Assembler:    assembly.NewAssembler(registry, &logger),
		Validator:    compliance.NewValidator(int(cfg.MaxPlayableBytes), &logger),
		Classifier:   classifier,
		Store:        store,
	}

	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Msg("api listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("server stopped")
}
