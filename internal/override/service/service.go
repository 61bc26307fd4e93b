// Package service applies case-worker overrides: exceptions that suppress a
// candidacy and not-applicable closures that end it. Every override commits
// its audit row, its history event and the outbox row in one transaction.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	candidacymodels "dialogmotekandidat/internal/candidacy/models"
	candidacyservice "dialogmotekandidat/internal/candidacy/service"
	"dialogmotekandidat/internal/override/models"
	"dialogmotekandidat/internal/platform/database"
	"dialogmotekandidat/pkg/domain"
	dErrors "dialogmotekandidat/pkg/domain-errors"
)

// ExceptionStore persists exception audit rows.
type ExceptionStore interface {
	Create(ctx context.Context, exception models.Exception) error
}

// ClosureStore persists not-applicable closure audit rows.
type ClosureStore interface {
	Create(ctx context.Context, closure models.NotApplicableClosure) error
}

// HistorySource lists a person's candidacy events; the read joins the
// ambient transaction so the candidacy check and the closure write see the
// same history.
type HistorySource interface {
	ListByPersonident(ctx context.Context, personident domain.Personident) ([]candidacymodels.Event, error)
}

// Metrics is the override service's metrics sink.
type Metrics interface {
	ExceptionCreated()
	NotApplicableCreated()
}

// Service validates and persists overrides.
type Service struct {
	exceptions ExceptionStore
	closures   ClosureStore
	history    HistorySource
	recorder   *candidacyservice.Recorder
	tx         database.Transactor
	metrics    Metrics
	logger     *slog.Logger
	clock      func() time.Time
}

type Option func(*Service)

// WithClock overrides wall-clock time in tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func New(
	exceptions ExceptionStore,
	closures ClosureStore,
	history HistorySource,
	recorder *candidacyservice.Recorder,
	tx database.Transactor,
	metrics Metrics,
	logger *slog.Logger,
	opts ...Option,
) (*Service, error) {
	if exceptions == nil || closures == nil || history == nil || recorder == nil {
		return nil, fmt.Errorf("override service dependencies are required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transactor is required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("metrics sink is required")
	}

	service := &Service{
		exceptions: exceptions,
		closures:   closures,
		history:    history,
		recorder:   recorder,
		tx:         tx,
		metrics:    metrics,
		logger:     logger,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// NewException is the validated input for CreateException.
type NewException struct {
	Personident domain.Personident
	Reason      models.ExceptionReason
	Note        string
	CreatedBy   string
}

// CreateException records a case-worker exception. Reserved legacy reasons
// are rejected regardless of the person's current state.
func (s *Service) CreateException(ctx context.Context, input NewException) (models.Exception, error) {
	if input.Reason.IsReserved() {
		return models.Exception{}, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("reserved exception reason %q", input.Reason))
	}
	if !input.Reason.Valid() {
		return models.Exception{}, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("unknown exception reason %q", input.Reason))
	}

	now := s.clock()
	exception := models.Exception{
		ID:          uuid.New(),
		CreatedAt:   now,
		CreatedBy:   input.CreatedBy,
		Personident: input.Personident,
		Reason:      input.Reason,
		Note:        input.Note,
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.exceptions.Create(ctx, exception); err != nil {
			return err
		}
		return s.recorder.Append(ctx,
			candidacymodels.NewExceptionEvent(input.Personident, now, string(input.Reason)))
	})
	if err != nil {
		return models.Exception{}, dErrors.Wrap(err, dErrors.CodeInternal, "create exception")
	}

	s.metrics.ExceptionCreated()
	s.logger.Info("exception created", "reason", exception.Reason, "created_by", exception.CreatedBy)
	return exception, nil
}

// NewNotApplicable is the validated input for CreateNotApplicable.
type NewNotApplicable struct {
	Personident domain.Personident
	Reason      models.NotApplicableReason
	Note        string
	CreatedBy   string
}

// CreateNotApplicable closes the person's candidacy as not applicable. Only
// valid while the derived state is candidate; the check runs inside the
// write transaction so a concurrent close cannot slip between read and write.
func (s *Service) CreateNotApplicable(ctx context.Context, input NewNotApplicable) (models.NotApplicableClosure, error) {
	if !input.Reason.Valid() {
		return models.NotApplicableClosure{}, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("unknown not-applicable reason %q", input.Reason))
	}

	now := s.clock()
	closure := models.NotApplicableClosure{
		ID:          uuid.New(),
		CreatedAt:   now,
		CreatedBy:   input.CreatedBy,
		Personident: input.Personident,
		Reason:      input.Reason,
		Note:        input.Note,
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		events, err := s.history.ListByPersonident(ctx, input.Personident)
		if err != nil {
			return fmt.Errorf("list candidacy events: %w", err)
		}
		if !candidacymodels.CurrentState(events).IsCandidate() {
			return dErrors.New(dErrors.CodeConflict, "person is not a candidate")
		}
		if err := s.closures.Create(ctx, closure); err != nil {
			return err
		}
		return s.recorder.Append(ctx,
			candidacymodels.NewNotApplicableEvent(input.Personident, now, string(input.Reason)))
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return models.NotApplicableClosure{}, err
		}
		return models.NotApplicableClosure{}, dErrors.Wrap(err, dErrors.CodeInternal, "create not-applicable closure")
	}

	s.metrics.NotApplicableCreated()
	s.logger.Info("not-applicable closure created", "reason", closure.Reason, "created_by", closure.CreatedBy)
	return closure, nil
}
