package kafka

import (
	"context"
	"log/slog"
)

// Sink is where drained messages go. The Producer satisfies this.
type Sink interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type message struct {
	key   string
	value []byte
}

// Relay decouples activity emission from broker round trips. Publish
// enqueues without blocking the caller; Run drains the inbox into the sink.
// A full inbox drops the message, which is acceptable for the mirror: the
// store append is the durable write.
type Relay struct {
	sink   Sink
	logger *slog.Logger
	inbox  chan message
}

func NewRelay(sink Sink, buffer int, logger *slog.Logger) *Relay {
	return &Relay{
		sink:   sink,
		logger: logger,
		inbox:  make(chan message, buffer),
	}
}

// Publish enqueues one message. Never blocks and never returns an error:
// when the inbox is full the message is dropped and logged.
func (r *Relay) Publish(ctx context.Context, key string, value []byte) error {
	select {
	case r.inbox <- message{key: key, value: value}:
	default:
		r.logger.WarnContext(ctx, "activity relay inbox full, dropping message", "key", key)
	}
	return nil
}

// Run drains the inbox until ctx is cancelled. Publish failures are logged
// and the loop keeps going.
func (r *Relay) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-r.inbox:
			if err := r.sink.Publish(ctx, msg.key, msg.value); err != nil {
				r.logger.WarnContext(ctx, "activity relay publish failed",
					"key", msg.key,
					"error", err,
				)
			}
		}
	}
}
