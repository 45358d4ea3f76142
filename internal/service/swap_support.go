package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/roomswap-service/internal/config"
	"github.com/spec-kit/roomswap-service/internal/domain"
	"github.com/spec-kit/roomswap-service/internal/events"
	"github.com/spec-kit/roomswap-service/internal/repository"
	apperrors "github.com/spec-kit/roomswap-service/pkg/util/errorutil"
)

// SwapDependencies bundles what the preference, ledger and commit services share.
type SwapDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Config     config.SwapConfig
}

type swapCore struct {
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.SwapConfig
}

func newSwapCore(deps SwapDependencies) swapCore {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return swapCore{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		cfg:        deps.Config,
	}
}

const contentionBackoff = 15 * time.Millisecond

// withTx runs fn in a store transaction bounded by the store timeout. Contention is retried
// up to the configured number of times inside the same deadline.
func (c *swapCore) withTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout())
	defer cancel()

	var err error
	for attempt := 0; ; attempt++ {
		err = c.store.WithinTx(ctx, fn)
		if !errors.Is(err, repository.ErrContention) || attempt >= c.cfg.CommitRetries {
			break
		}
		c.logger.Debug("retrying after store contention", zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return translateStoreError(err)
		case <-time.After(contentionBackoff * time.Duration(attempt+1)):
		}
	}
	return translateStoreError(err)
}

// withStore runs a non-transactional read bounded by the store timeout.
func (c *swapCore) withStore(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.StoreTimeout())
	defer cancel()
	return translateStoreError(fn(ctx, c.store))
}

// publish hands the event to the notifier. Failures are logged only.
func (c *swapCore) publish(ctx context.Context, event events.Event) {
	if c.dispatcher == nil {
		return
	}
	if err := c.dispatcher.Publish(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Warn("notifier publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// translateStoreError maps repository sentinels that escaped a service onto domain errors.
func translateStoreError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrContention),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperrors.NewStoreContention(err)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("resource", nil)
	case errors.Is(err, repository.ErrStaleState):
		return apperrors.NewInvalidState("request is no longer pending", nil)
	}
	return apperrors.NewInternalError(err)
}

// notFoundAs turns repository.ErrNotFound into a NotFound naming the resource.
func notFoundAs(err error, resource string, details map[string]any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, details)
	}
	return err
}

// normalizeRoomCodes validates and canonicalizes an offer/want pair.
func normalizeRoomCodes(available, needed string) (string, string, error) {
	available = domain.NormalizeRoom(available)
	needed = domain.NormalizeRoom(needed)
	if available == "" || needed == "" {
		return "", "", apperrors.NewValidationError("available and needed are required", nil)
	}
	if len(available) > domain.MaxRoomCodeLength || len(needed) > domain.MaxRoomCodeLength {
		return "", "", apperrors.NewValidationError("room codes are limited to 20 characters", map[string]any{
			"max_length": domain.MaxRoomCodeLength,
		})
	}
	return available, needed, nil
}
