package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=publisher.go -destination=mocks/mocks.go -package=mocks Store

// Store persists the activity stream. Append-only: there is no update or
// delete surface.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Entry, error)
}

// Broker fans an entry out to an external stream. The Kafka producer
// satisfies this; it is optional wiring.
type Broker interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Publisher appends activity entries to the store and, when configured,
// mirrors them to the broker. The store write is the durable one; broker
// failures are logged and swallowed so workflow operations never fail on the
// side channel.
type Publisher struct {
	store  Store
	broker Broker
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithBroker mirrors entries to an external stream.
func WithBroker(b Broker) Option {
	return func(p *Publisher) { p.broker = b }
}

func NewPublisher(store Store, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records one activity entry. The entry gets an ID and timestamp if the
// caller left them zero.
func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := p.store.Append(ctx, entry); err != nil {
		return err
	}
	p.mirror(ctx, entry)
	return nil
}

func (p *Publisher) mirror(ctx context.Context, entry Entry) {
	if p.broker == nil {
		return
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal activity entry", "error", err)
		return
	}
	if err := p.broker.Publish(ctx, entry.UserID.String(), payload); err != nil {
		p.logger.WarnContext(ctx, "activity broker publish failed",
			"action", entry.Action,
			"error", err,
		)
	}
}

// Recent returns the most recent entries for the audit view.
func (p *Publisher) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return p.store.ListRecent(ctx, limit)
}

// ByUser returns a user's recent entries for the per-user activity view.
func (p *Publisher) ByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Entry, error) {
	return p.store.ListByUser(ctx, userID, limit)
}
