package mq

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBackend broadcasts over Redis pub/sub. Subscribers that are offline miss the message.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an existing client; the caller keeps ownership of it.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

type redisEnvelope struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Data       json.RawMessage   `json:"data"`
}

// Publish sends data to the pub/sub channel wrapped in an envelope carrying id and attributes.
func (r *RedisBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("redis channel is required")
	}
	if r.client == nil {
		return "", errors.New("redis client not configured")
	}

	messageID := uuid.NewString()
	payload, err := json.Marshal(redisEnvelope{ID: messageID, Attributes: attrs, Data: data})
	if err != nil {
		return "", err
	}
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return "", err
	}
	return messageID, nil
}

// Close is a no-op; the shared client is closed by its owner.
func (r *RedisBackend) Close() error {
	return nil
}
