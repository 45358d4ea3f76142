package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/roomswap-service/internal/config"
	"github.com/spec-kit/roomswap-service/internal/mq"
	"github.com/spec-kit/roomswap-service/internal/observability"
	"github.com/spec-kit/roomswap-service/internal/persistence"
	"github.com/spec-kit/roomswap-service/internal/repository"
)

// runtimeEnv holds the process-wide connections shared by the subcommands.
type runtimeEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
	store  repository.Store
}

func bootstrap(ctx context.Context) (*runtimeEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, persistence.MigrateUp, logger); err != nil {
			return nil, err
		}
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &runtimeEnv{
		cfg:    cfg,
		logger: logger,
		pg:     pg,
		store:  pg.Store(cfg.Swap, logger),
	}, nil
}

func (r *runtimeEnv) close() {
	r.pg.Close()
	_ = r.logger.Sync()
}

// notificationBackend opens the broker selected by NOTIFY_BACKEND. A nil backend means
// events are only logged.
func notificationBackend(cfg config.NotificationConfig, redis *persistence.Redis) (mq.Backend, error) {
	switch cfg.Backend {
	case config.NotifyBackendRedis:
		return mq.NewRedisBackend(redis.Client), nil
	case config.NotifyBackendRabbitMQ:
		backend, err := mq.NewRabbitMQBackend(cfg.RabbitMQURL)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return backend, nil
	default:
		return nil, nil
	}
}
