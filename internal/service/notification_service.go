package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/roomswap-service/internal/config"
	"github.com/spec-kit/roomswap-service/internal/events"
	"github.com/spec-kit/roomswap-service/internal/mq"
)

// NotificationService forwards swap events to the push transport.
type NotificationService struct {
	dispatcher events.Dispatcher
	backend    mq.Backend
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. A nil backend only logs events.
func NewNotificationService(dispatcher events.Dispatcher, backend mq.Backend, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		backend:    backend,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.forward)
	}
}

func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	if n.backend == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.Type, err)
	}
	ctx, cancel := context.WithTimeout(ctx, n.cfg.PublishTimeout())
	defer cancel()
	messageID, err := n.backend.Publish(ctx, n.cfg.Channel, data, map[string]string{
		"event_type": string(event.Type),
		"event_id":   event.ID,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	n.logger.Debug("event broadcast", zap.String("event_id", event.ID), zap.String("message_id", messageID))
	return nil
}
