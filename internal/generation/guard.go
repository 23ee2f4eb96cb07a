package generation

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/AlreadyKyle/layer-playable-ads/internal/domain"
	"github.com/AlreadyKyle/layer-playable-ads/internal/infra"
)

// CreditsFetcher is the slice of the generation client the guard needs.
type CreditsFetcher interface {
	Credits(ctx context.Context) (domain.WorkspaceCredits, error)
}

// CreditGuard blocks submissions when the workspace balance is below the
// configured minimum. The check is advisory: concurrent consumers on one
// workspace can both pass and still overrun the real balance, so the guard
// re-fetches a fresh snapshot on every call and never caches.
type CreditGuard struct {
	client  CreditsFetcher
	minimum int
	logger  *infra.Logger
}

// NewCreditGuard constructs a guard with the configured minimum balance.
func NewCreditGuard(client CreditsFetcher, minimum int, logger *infra.Logger) *CreditGuard {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &CreditGuard{client: client, minimum: minimum, logger: logger}
}

// Check fetches the current balance and returns ErrInsufficientCredits when
// it does not clear the minimum, so batches halt before spending anything.
func (g *CreditGuard) Check(ctx context.Context) (domain.WorkspaceCredits, error) {
	credits, err := g.client.Credits(ctx)
	if err != nil {
		return credits, err
	}
	if !credits.Sufficient(g.minimum) {
		g.logger.Warn().
			Int("available", credits.Available).
			Int("required", g.minimum).
			Bool("has_access", credits.HasAccess).
			Msg("credit check failed")
		return credits, fmt.Errorf("%w: %d available, %d required", domain.ErrInsufficientCredits, credits.Available, g.minimum)
	}
	return credits, nil
}
