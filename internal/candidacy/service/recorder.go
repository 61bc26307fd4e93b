package service

import (
	"context"
	"fmt"

	"dialogmotekandidat/internal/candidacy/models"
)

// EventAppender appends to the persisted history.
type EventAppender interface {
	Append(ctx context.Context, event models.Event) error
}

// OutboxAppender appends the stream-bound copy of an event.
type OutboxAppender interface {
	Append(ctx context.Context, event models.Event) error
}

// Recorder appends a candidacy event together with its outbox row. Both
// writes join the ambient transaction in ctx, so an event can never commit
// without its outbox entry.
type Recorder struct {
	events EventAppender
	outbox OutboxAppender
}

func NewRecorder(events EventAppender, outbox OutboxAppender) *Recorder {
	return &Recorder{events: events, outbox: outbox}
}

// Append writes the event and its outbox row through the ambient queryer.
func (r *Recorder) Append(ctx context.Context, event models.Event) error {
	if err := r.events.Append(ctx, event); err != nil {
		return fmt.Errorf("append candidacy event: %w", err)
	}
	if err := r.outbox.Append(ctx, event); err != nil {
		return fmt.Errorf("append outbox entry: %w", err)
	}
	return nil
}
