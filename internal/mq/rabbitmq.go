package mq

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQBackend broadcasts through a fanout exchange named after the channel.
type RabbitMQBackend struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	declared map[string]struct{}
}

// NewRabbitMQBackend dials the broker.
func NewRabbitMQBackend(url string) (*RabbitMQBackend, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQBackend{
		conn:     conn,
		channel:  ch,
		declared: make(map[string]struct{}),
	}, nil
}

// Publish sends a transient message to the fanout exchange.
func (r *RabbitMQBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.declareExchange(channel); err != nil {
		return "", err
	}

	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}

	messageID := uuid.NewString()
	err := r.channel.PublishWithContext(ctx, channel, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    messageID,
		Headers:      headers,
		Body:         data,
		DeliveryMode: amqp.Transient,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Close closes the underlying channel and connection.
func (r *RabbitMQBackend) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQBackend) declareExchange(name string) error {
	if _, ok := r.declared[name]; ok {
		return nil
	}
	if err := r.channel.ExchangeDeclare(name, amqp.ExchangeFanout, false, false, false, false, nil); err != nil {
		return err
	}
	r.declared[name] = struct{}{}
	return nil
}
