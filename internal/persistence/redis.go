package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/roomswap-service/internal/config"
)

const redisDialTimeout = 2 * time.Second

// Redis carries the pub/sub connection used to broadcast swap events.
type Redis struct {
	Client *redis.Client
}

// NewRedis dials the notification broker. Missed notifications never affect swap state, so
// a server that does not answer within the dial timeout is logged and the client kept for
// go-redis to reconnect on the next publish.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: redisDialTimeout,
	})
	r := &Redis{Client: client}

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		logger.Warn("notification broker unreachable", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to notification broker", zap.String("addr", cfg.Addr))
	}
	return r
}

// Close releases the connection pool.
func (r *Redis) Close() {
	if r == nil || r.Client == nil {
		return
	}
	_ = r.Client.Close()
}

// Ping lets the readiness probe report broker reachability.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
