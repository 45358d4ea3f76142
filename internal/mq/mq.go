// Package mq carries swap events to the real-time push transport over a broker.
package mq

import "context"

// Backend defines the broker-agnostic operations used by the notifier.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}
