// Package publisher drains the candidacy outbox to the outbound stream.
package publisher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/internal/candidacy/store"
	"dialogmotekandidat/pkg/domain"
)

const batchSize = 200

// Outbox is the slice of the outbox store the relay drains.
type Outbox interface {
	ListUnpublished(ctx context.Context, limit int) ([]store.OutboxEntry, error)
	MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error
}

// Sender delivers one record to a topic.
type Sender interface {
	Send(ctx context.Context, topic string, key, value []byte) error
}

// Metrics is the relay's metrics sink.
type Metrics interface {
	EventPublished()
	PublishFailed()
}

// Publisher relays committed events to the candidacy topic. It runs on the
// leader only; one relay at a time keeps the stream in per-person order.
type Publisher struct {
	outbox  Outbox
	sender  Sender
	topic   string
	metrics Metrics
	logger  *slog.Logger
	clock   func() time.Time
}

type Option func(*Publisher)

// WithClock overrides wall-clock time in tests.
func WithClock(clock func() time.Time) Option {
	return func(p *Publisher) {
		p.clock = clock
	}
}

func New(outbox Outbox, sender Sender, topic string, metrics Metrics, logger *slog.Logger, opts ...Option) (*Publisher, error) {
	if outbox == nil || sender == nil {
		return nil, fmt.Errorf("outbox and sender are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("metrics sink is required")
	}

	p := &Publisher{
		outbox:  outbox,
		sender:  sender,
		topic:   topic,
		metrics: metrics,
		logger:  logger,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PublishPending sends unpublished entries in creation order. The pass stops
// at the first delivery failure: continuing past it could reorder a person's
// events on the stream. The failed entry stays unpublished and the next pass
// retries it; consumers dedupe on event id.
func (p *Publisher) PublishPending(ctx context.Context) error {
	entries, err := p.outbox.ListUnpublished(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("list unpublished entries: %w", err)
	}

	for _, entry := range entries {
		if err := p.sender.Send(ctx, p.topic, PersonKey(entry.Personident), entry.Payload); err != nil {
			p.metrics.PublishFailed()
			return fmt.Errorf("publish outbox entry %s: %w", entry.ID, err)
		}
		if err := p.outbox.MarkPublished(ctx, entry.ID, p.clock()); err != nil {
			// The record is on the stream; the redelivery on next pass is the
			// at-least-once cost of failing here.
			return fmt.Errorf("mark entry %s published: %w", entry.ID, err)
		}
		p.metrics.EventPublished()
	}

	if len(entries) > 0 {
		p.logger.Info("published candidacy events", "count", len(entries))
	}
	return nil
}

// PersonKey is the stable per-person record key. Hashing keeps the raw
// identifier off the stream's partitioning metadata while preserving
// per-person ordering.
func PersonKey(personident domain.Personident) []byte {
	sum := sha256.Sum256([]byte(personident.String()))
	return []byte(hex.EncodeToString(sum[:]))
}
