package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
	"github.com/AlreadyKyle/layer-playable-ads/internal/imaging"
	"github.com/AlreadyKyle/layer-playable-ads/internal/infra"
)

const (
	defaultMaxAssetAttempts = 3
	defaultRetryDelay       = 2 * time.Second
)

// DefaultFallbackPrompts maps asset keys to short safe prompts used on
// retries after the remote rejected or mangled the original prompt. Keys
// cover the assets every registered mechanic requires.
var DefaultFallbackPrompts = map[string]string{
	"tile_1":      "simple round colorful game tile",
	"tile_2":      "simple square colorful game tile",
	"tile_3":      "simple star shaped game tile",
	"tile_4":      "simple gem shaped game tile",
	"player":      "simple cartoon game character",
	"obstacle":    "simple game obstacle block",
	"collectible": "shiny golden coin",
	"target":      "colorful round game target",
	"bonus":       "golden star bonus icon",
	"background":  "colorful abstract game background",
}

// Client is the full generation API surface the orchestrator drives.
type Client interface {
	Submit(ctx context.Context, prompt, styleID string) (domain.GenerationTask, error)
	Status(ctx context.Context, taskID string) (domain.GenerationTask, error)
	Credits(ctx context.Context) (domain.WorkspaceCredits, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// OrchestratorOptions configures an Orchestrator. Fallbacks defaults to
// DefaultFallbackPrompts; the Sleep hook exists for tests.
type OrchestratorOptions struct {
	Client       Client
	Poller       *Poller
	Guard        *CreditGuard
	MaxDimension int
	RetryDelay   time.Duration
	Fallbacks    map[string]string
	Logger       *infra.Logger

	Sleep func(ctx context.Context, d time.Duration) error
}

// Orchestrator produces a complete asset set for one build: per required
// asset it guards credits, submits, polls, downloads and optimizes, retrying
// with a degraded prompt before recording a failure. One asset failing never
// aborts the set; only authentication and credit exhaustion do.
type Orchestrator struct {
	client       Client
	poller       *Poller
	guard        *CreditGuard
	maxDimension int
	retryDelay   time.Duration
	fallbacks    map[string]string
	logger       *infra.Logger
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator constructs an orchestrator with sane defaults.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Client == nil {
		return nil, errors.New("generation: client is required")
	}
	poller := opts.Poller
	if poller == nil {
		poller = NewPoller(PollerOptions{Logger: opts.Logger})
	}
	guard := opts.Guard
	if guard == nil {
		guard = NewCreditGuard(opts.Client, 0, opts.Logger)
	}
	maxDimension := opts.MaxDimension
	if maxDimension <= 0 {
		maxDimension = imaging.DefaultMaxDimension
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	fallbacks := opts.Fallbacks
	if fallbacks == nil {
		fallbacks = DefaultFallbackPrompts
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &Orchestrator{
		client:       opts.Client,
		poller:       poller,
		guard:        guard,
		maxDimension: maxDimension,
		retryDelay:   retryDelay,
		fallbacks:    fallbacks,
		logger:       logger,
		sleep:        sleep,
	}, nil
}

// GenerateSet produces every required asset for the mechanic in declaration
// order. The returned set always holds one entry per required key, failed or
// not. A non-nil error means the batch aborted early; the partial set is
// still returned for inspection.
func (o *Orchestrator) GenerateSet(ctx context.Context, spec domain.MechanicSpec, cls domain.Classification, styleID string) (*domain.GeneratedAssetSet, error) {
	resolved := ResolvePrompts(spec, cls)
	set := domain.NewGeneratedAssetSet(cls.GameName, spec.ID, styleID)

	o.logger.Info().
		Str("game", cls.GameName).
		Str("mechanic", spec.ID).
		Int("assets", len(resolved)).
		Msg("starting asset batch")

	for _, rp := range resolved {
		if err := ctx.Err(); err != nil {
			return set, err
		}

		asset, err := o.generateOne(ctx, rp, styleID)
		set.Add(asset)
		if err != nil {
			return set, err
		}
	}

	o.logger.Info().
		Str("game", cls.GameName).
		Int("valid", set.ValidCount()).
		Int("total", len(set.Assets)).
		Dur("elapsed", set.Elapsed).
		Msg("asset batch finished")
	return set, nil
}

// generateOne runs the retry loop for a single asset. The returned error is
// non-nil only for batch-aborting conditions; every other failure comes back
// inside the asset.
func (o *Orchestrator) generateOne(ctx context.Context, rp ResolvedPrompt, styleID string) (domain.GeneratedAsset, error) {
	var lastErr error

	for attempt := 0; attempt < defaultMaxAssetAttempts; attempt++ {
		if attempt > 0 {
			if err := o.sleep(ctx, o.retryDelay); err != nil {
				return failedAsset(rp, err), nil
			}
		}

		prompt := rp.Prompt
		// A degraded prompt only helps when the remote rejected the content
		// or the result would not decode. A timeout says nothing about the
		// prompt, so the original is kept for those retries.
		if attempt > 0 && promptLikelyAtFault(lastErr) {
			if fallback, ok := o.fallbacks[rp.Key]; ok {
				prompt = fallback
			}
		}

		asset, err := o.attempt(ctx, rp.Key, prompt, styleID)
		if err == nil {
			if attempt > 0 {
				o.logger.Info().Str("key", rp.Key).Int("attempt", attempt+1).Msg("asset recovered on retry")
			}
			return asset, nil
		}
		if domain.AbortsBatch(err) {
			return failedAsset(rp, err), err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return failedAsset(rp, err), nil
		}

		lastErr = err
		o.logger.Warn().
			Err(err).
			Str("key", rp.Key).
			Int("attempt", attempt+1).
			Msg("asset generation attempt failed")
	}

	return failedAsset(rp, lastErr), nil
}

// attempt runs one full guard/submit/poll/optimize pass.
func (o *Orchestrator) attempt(ctx context.Context, key, prompt, styleID string) (domain.GeneratedAsset, error) {
	var asset domain.GeneratedAsset

	if _, err := o.guard.Check(ctx); err != nil {
		return asset, err
	}

	task, err := o.client.Submit(ctx, prompt, styleID)
	if err != nil {
		return asset, err
	}

	task, elapsed, err := o.poller.Wait(ctx, o.client, task)
	if err != nil {
		return asset, err
	}
	if task.ImageURL == "" {
		return asset, fmt.Errorf("%w: completed without image url", domain.ErrGenerationFailed)
	}

	raw, err := o.client.Download(ctx, task.ImageURL)
	if err != nil {
		return asset, fmt.Errorf("%w: %v", domain.ErrPostProcessing, err)
	}
	processed, err := imaging.Optimize(raw, o.maxDimension)
	if err != nil {
		return asset, fmt.Errorf("%w: %v", domain.ErrPostProcessing, err)
	}

	return domain.GeneratedAsset{
		Key:      key,
		Prompt:   prompt,
		ImageURL: task.ImageURL,
		Data:     processed.Data,
		DataURI:  imaging.EncodeDataURI(processed.Data),
		Width:    processed.Width,
		Height:   processed.Height,
		Elapsed:  elapsed,
	}, nil
}

func promptLikelyAtFault(err error) bool {
	return errors.Is(err, domain.ErrGenerationFailed) || errors.Is(err, domain.ErrPostProcessing)
}

func failedAsset(rp ResolvedPrompt, err error) domain.GeneratedAsset {
	return domain.GeneratedAsset{Key: rp.Key, Prompt: rp.Prompt, Err: err}
}
