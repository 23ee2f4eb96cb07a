package generation

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
	"github.com/AlreadyKyle/layer-playable-ads/internal/infra"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultPollMax      = 10 * time.Second
	defaultPollTimeout  = 60 * time.Second
	pollGrowthFactor    = 1.5
)

// StatusFetcher is the slice of the generation client the poller needs.
type StatusFetcher interface {
	Status(ctx context.Context, taskID string) (domain.GenerationTask, error)
}

// PollerOptions configures a Poller. Zero values take the defaults; the Now
// and Sleep hooks exist for tests and stay nil in production.
type PollerOptions struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
	Logger      *infra.Logger

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Poller waits for a generation task to reach a terminal state, growing the
// poll interval geometrically so long generations back off the API.
type Poller struct {
	interval    time.Duration
	maxInterval time.Duration
	timeout     time.Duration
	logger      *infra.Logger
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewPoller constructs a poller with sane defaults.
func NewPoller(opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxInterval := opts.MaxInterval
	if maxInterval <= 0 {
		maxInterval = defaultPollMax
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &Poller{
		interval:    interval,
		maxInterval: maxInterval,
		timeout:     timeout,
		logger:      logger,
		now:         now,
		sleep:       sleep,
	}
}

// Wait polls the task until completion, failure or timeout. A task that is
// already terminal short-circuits without any remote call. The returned
// elapsed duration covers the whole wait, including the final fetch.
func (p *Poller) Wait(ctx context.Context, fetcher StatusFetcher, task domain.GenerationTask) (domain.GenerationTask, time.Duration, error) {
	start := p.now()

	if task.Status == domain.TaskStatusCompleted && task.ImageURL != "" {
		return task, 0, nil
	}
	if task.Status == domain.TaskStatusFailed {
		return task, 0, failure(task)
	}
	if task.ID == "" {
		return task, 0, fmt.Errorf("%w: no task id to poll", domain.ErrGenerationFailed)
	}

	interval := p.interval
	for {
		elapsed := p.now().Sub(start)
		if elapsed > p.timeout {
			return task, elapsed, fmt.Errorf("%w: task %s after %s", domain.ErrGenerationTimeout, task.ID, p.timeout)
		}

		current, err := fetcher.Status(ctx, task.ID)
		if err != nil {
			return task, p.now().Sub(start), err
		}
		task = current
		elapsed = p.now().Sub(start)

		switch task.Status {
		case domain.TaskStatusCompleted:
			p.logger.Info().
				Str("task_id", task.ID).
				Dur("elapsed", elapsed).
				Msg("generation completed")
			return task, elapsed, nil
		case domain.TaskStatusFailed:
			return task, elapsed, failure(task)
		}

		p.logger.Debug().
			Str("task_id", task.ID).
			Dur("elapsed", elapsed).
			Msg("generation in progress")

		if err := p.sleep(ctx, interval); err != nil {
			return task, p.now().Sub(start), err
		}
		interval = time.Duration(float64(interval) * pollGrowthFactor)
		if interval > p.maxInterval {
			interval = p.maxInterval
		}
	}
}

func failure(task domain.GenerationTask) error {
	msg := task.ErrorMessage
	if msg == "" {
		msg = "unknown error"
	}
	return fmt.Errorf("%w: %s", domain.ErrGenerationFailed, msg)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
