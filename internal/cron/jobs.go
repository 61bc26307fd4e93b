package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	candidacymodels "dialogmotekandidat/internal/candidacy/models"
	candidacyservice "dialogmotekandidat/internal/candidacy/service"
	checkpointmodels "dialogmotekandidat/internal/checkpoint/models"
	"dialogmotekandidat/internal/platform/database"
	timelinemodels "dialogmotekandidat/internal/timeline/models"
	timelinestore "dialogmotekandidat/internal/timeline/store"
	"dialogmotekandidat/pkg/domain"
)

const signalBatchSize = 500

// SignalSource drains the timeline dirty-flag queue.
type SignalSource interface {
	ListPending(ctx context.Context, limit int) ([]timelinestore.Signal, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error
}

// WindowSource fetches a person's follow-up windows.
type WindowSource interface {
	FollowUpWindows(ctx context.Context, personident domain.Personident) ([]timelinemodels.FollowUpWindow, error)
}

// Scheduler plans checkpoints from fresh windows.
type Scheduler interface {
	Schedule(ctx context.Context, personident domain.Personident, windows []timelinemodels.FollowUpWindow) error
}

// SchedulingSweep drains pending timeline signals: each person's windows are
// re-fetched and run through the scheduler. A failed person keeps their
// signal pending for the next pass.
type SchedulingSweep struct {
	signals   SignalSource
	windows   WindowSource
	scheduler Scheduler
	logger    *slog.Logger
	clock     func() time.Time
}

func NewSchedulingSweep(signals SignalSource, windows WindowSource, scheduler Scheduler, logger *slog.Logger) *SchedulingSweep {
	return &SchedulingSweep{
		signals:   signals,
		windows:   windows,
		scheduler: scheduler,
		logger:    logger,
		clock:     time.Now,
	}
}

func (s *SchedulingSweep) Run(ctx context.Context) error {
	signals, err := s.signals.ListPending(ctx, signalBatchSize)
	if err != nil {
		return fmt.Errorf("list pending timeline signals: %w", err)
	}

	for _, signal := range signals {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.processSignal(ctx, signal); err != nil {
			s.logger.Error("scheduling pass failed, signal stays pending",
				"signal_id", signal.ID,
				"error", err,
			)
		}
	}
	return nil
}

func (s *SchedulingSweep) processSignal(ctx context.Context, signal timelinestore.Signal) error {
	windows, err := s.windows.FollowUpWindows(ctx, signal.Personident)
	if err != nil {
		return err
	}
	if err := s.scheduler.Schedule(ctx, signal.Personident, windows); err != nil {
		return err
	}
	return s.signals.MarkProcessed(ctx, signal.ID, s.clock())
}

// DueSource lists planned checkpoints whose due date has arrived.
type DueSource interface {
	ListDue(ctx context.Context, today time.Time) ([]checkpointmodels.Checkpoint, error)
}

// CheckpointProcessor evaluates one due checkpoint.
type CheckpointProcessor interface {
	ProcessCheckpoint(ctx context.Context, checkpoint checkpointmodels.Checkpoint) error
}

// EvaluationMetrics counts sweep-level failures.
type EvaluationMetrics interface {
	EvaluationFailed()
}

// CheckpointSweep evaluates every due checkpoint. A failed item is logged
// and counted but stays Planned; the next sweep retries it.
type CheckpointSweep struct {
	checkpoints DueSource
	evaluator   CheckpointProcessor
	metrics     EvaluationMetrics
	logger      *slog.Logger
	clock       func() time.Time
}

func NewCheckpointSweep(checkpoints DueSource, evaluator CheckpointProcessor, metrics EvaluationMetrics, logger *slog.Logger) *CheckpointSweep {
	return &CheckpointSweep{
		checkpoints: checkpoints,
		evaluator:   evaluator,
		metrics:     metrics,
		logger:      logger,
		clock:       time.Now,
	}
}

func (s *CheckpointSweep) Run(ctx context.Context) error {
	due, err := s.checkpoints.ListDue(ctx, timelinemodels.Date(s.clock()))
	if err != nil {
		return fmt.Errorf("list due checkpoints: %w", err)
	}

	for _, checkpoint := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.evaluator.ProcessCheckpoint(ctx, checkpoint); err != nil {
			s.metrics.EvaluationFailed()
			s.logger.Error("checkpoint evaluation failed, left for retry",
				"checkpoint_id", checkpoint.ID,
				"error", err,
			)
		}
	}
	return nil
}

// OutdatedSource lists the latest candidate event per person older than the
// cutoff.
type OutdatedSource interface {
	ListOutdatedCandidates(ctx context.Context, cutoff time.Time) ([]candidacymodels.Event, error)
}

// OutdatedMetrics counts closed stale candidacies.
type OutdatedMetrics interface {
	OutdatedClosed()
}

// OutdatedSweep closes candidacies that have been open past the cutoff
// without a meeting ever happening. Leader-only; each close is its own
// transaction so one failure does not roll back the batch.
type OutdatedSweep struct {
	events   OutdatedSource
	recorder *candidacyservice.Recorder
	tx       database.Transactor
	metrics  OutdatedMetrics
	logger   *slog.Logger
	cutoff   time.Duration
	clock    func() time.Time
}

func NewOutdatedSweep(
	events OutdatedSource,
	recorder *candidacyservice.Recorder,
	tx database.Transactor,
	metrics OutdatedMetrics,
	logger *slog.Logger,
	cutoff time.Duration,
) *OutdatedSweep {
	return &OutdatedSweep{
		events:   events,
		recorder: recorder,
		tx:       tx,
		metrics:  metrics,
		logger:   logger,
		cutoff:   cutoff,
		clock:    time.Now,
	}
}

func (s *OutdatedSweep) Run(ctx context.Context) error {
	now := s.clock()
	stale, err := s.events.ListOutdatedCandidates(ctx, now.Add(-s.cutoff))
	if err != nil {
		return fmt.Errorf("list outdated candidates: %w", err)
	}

	for _, event := range stale {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.tx.InTx(ctx, func(ctx context.Context) error {
			return s.recorder.Append(ctx,
				candidacymodels.NewClosedEvent(event.Personident, now, candidacymodels.ClosedOutdated))
		})
		if err != nil {
			s.logger.Error("closing outdated candidacy failed", "error", err)
			continue
		}
		s.metrics.OutdatedClosed()
	}
	return nil
}

// PendingPublisher drains the outbox.
type PendingPublisher interface {
	PublishPending(ctx context.Context) error
}

// OutboxRelay adapts the publisher to a cron job. Leader-only; per-person
// ordering is the publisher's concern.
type OutboxRelay struct {
	publisher PendingPublisher
}

func NewOutboxRelay(publisher PendingPublisher) *OutboxRelay {
	return &OutboxRelay{publisher: publisher}
}

func (r *OutboxRelay) Run(ctx context.Context) error {
	return r.publisher.PublishPending(ctx)
}
