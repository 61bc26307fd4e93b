package service

import (
	"context"
	"fmt"

	"dialogmotekandidat/internal/candidacy/models"
	"dialogmotekandidat/pkg/domain"
)

// HistorySource lists a person's full event history in fold order.
type HistorySource interface {
	ListByPersonident(ctx context.Context, personident domain.Personident) ([]models.Event, error)
}

// Reader answers the read-only query surface: current derived candidacy and
// full history. No side effects.
type Reader struct {
	events HistorySource
}

func NewReader(events HistorySource) *Reader {
	return &Reader{events: events}
}

// CurrentState derives the person's candidacy from the stored history.
func (r *Reader) CurrentState(ctx context.Context, personident domain.Personident) (models.State, error) {
	events, err := r.events.ListByPersonident(ctx, personident)
	if err != nil {
		return models.State{}, fmt.Errorf("list candidacy events: %w", err)
	}
	return models.CurrentState(events), nil
}

// History returns the person's events, oldest first.
func (r *Reader) History(ctx context.Context, personident domain.Personident) ([]models.Event, error) {
	events, err := r.events.ListByPersonident(ctx, personident)
	if err != nil {
		return nil, fmt.Errorf("list candidacy events: %w", err)
	}
	return events, nil
}
