// Package service schedules candidacy checkpoints from timeline facts.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/internal/checkpoint/models"
	"dialogmotekandidat/internal/timeline"
	timelinemodels "dialogmotekandidat/internal/timeline/models"
	"dialogmotekandidat/pkg/domain"
	"dialogmotekandidat/pkg/platform/sentinel"
)

// Store is the slice of the checkpoint store the scheduler needs.
type Store interface {
	Create(ctx context.Context, checkpoint models.Checkpoint) error
	HasPlanned(ctx context.Context, personident domain.Personident, windowStart time.Time) (bool, error)
}

// Metrics is the scheduling metrics sink, passed in explicitly.
type Metrics interface {
	CheckpointScheduled()
}

type Service struct {
	store   Store
	metrics Metrics
	logger  *slog.Logger
	clock   func() time.Time
}

type Option func(*Service)

// WithClock overrides wall-clock time in tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func New(store Store, metrics Metrics, logger *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("checkpoint metrics sink is required")
	}

	svc := &Service{
		store:   store,
		metrics: metrics,
		logger:  logger,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Schedule creates the Planned checkpoint for the person's current window, if
// the window qualifies and none exists yet. Re-invocation with the same
// window is a no-op; the idempotency key is (personident, window start).
func (s *Service) Schedule(ctx context.Context, personident domain.Personident, windows []timelinemodels.FollowUpWindow) error {
	today := timelinemodels.Date(s.clock())

	window, found := timeline.CurrentWindow(windows, today)
	if !found || !Qualifies(window) {
		return nil
	}

	exists, err := s.store.HasPlanned(ctx, personident, window.Start)
	if err != nil {
		return fmt.Errorf("check planned checkpoint: %w", err)
	}
	if exists {
		return nil
	}

	checkpoint := models.Checkpoint{
		ID:          uuid.New(),
		CreatedAt:   s.clock(),
		Personident: personident,
		Status:      models.StatusPlanned,
		DueDate:     DueDate(window, today),
		WindowStart: timelinemodels.Date(window.Start),
	}
	if err := s.store.Create(ctx, checkpoint); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// A concurrent scheduler won the unique index; same outcome.
			return nil
		}
		return fmt.Errorf("create checkpoint: %w", err)
	}

	s.metrics.CheckpointScheduled()
	s.logger.Info("scheduled candidacy checkpoint",
		"checkpoint_id", checkpoint.ID,
		"due_date", checkpoint.DueDate.Format("2006-01-02"),
	)
	return nil
}
