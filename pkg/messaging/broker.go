package messaging

import (
	"context"
	"errors"
)

// ErrClosed is returned by a broker after Close.
var ErrClosed = errors.New("broker closed")

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe delivers payloads until ctx is cancelled or the broker closes.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Handler processes one delivered payload.
type Handler func(ctx context.Context, payload []byte) error

// Consume subscribes to channel and runs handler for every payload until the
// subscription ends. Handler errors are passed to onError and do not stop
// the loop.
func Consume(ctx context.Context, broker Broker, channel string, handler Handler, onError func(error)) error {
	msgs, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return err
	}
	for msg := range msgs {
		if err := handler(ctx, msg); err != nil && onError != nil {
			onError(err)
		}
	}
	return ctx.Err()
}
