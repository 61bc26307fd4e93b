// Package service evaluates due checkpoints into candidacy decisions and
// maintains the derived state read path.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/internal/candidacy/models"
	checkpointmodels "dialogmotekandidat/internal/checkpoint/models"
	checkpointrules "dialogmotekandidat/internal/checkpoint/service"
	"dialogmotekandidat/internal/platform/database"
	"dialogmotekandidat/internal/timeline"
	timelinemodels "dialogmotekandidat/internal/timeline/models"
	"dialogmotekandidat/pkg/domain"
	"dialogmotekandidat/pkg/platform/sentinel"
)

// WindowSource fetches follow-up windows at evaluation time. Windows are
// facts, not cache: every evaluation re-fetches.
type WindowSource interface {
	FollowUpWindows(ctx context.Context, personident domain.Personident) ([]timelinemodels.FollowUpWindow, error)
}

// CheckpointFinisher moves a checkpoint to its terminal status with the
// processed_at compare-and-set as the exactly-once guard.
type CheckpointFinisher interface {
	Finish(ctx context.Context, id uuid.UUID, status checkpointmodels.Status, processedAt time.Time) error
}

// LatestEventSource reads the newest history entry for the override check,
// locking it for the transaction so the check and the append are atomic.
type LatestEventSource interface {
	LatestByPersonidentForUpdate(ctx context.Context, personident domain.Personident) (models.Event, error)
}

// MeetingSource answers "when did this person's most recent completed
// dialogue meeting happen", if ever.
type MeetingSource interface {
	LatestCompletedTime(ctx context.Context, personident domain.Personident) (*time.Time, error)
}

// Metrics is the evaluator's metrics sink.
type Metrics interface {
	CandidateConfirmed()
	CheckpointDismissed()
}

// Evaluator runs the candidacy state machine once per due checkpoint.
type Evaluator struct {
	windows     WindowSource
	checkpoints CheckpointFinisher
	events      LatestEventSource
	meetings    MeetingSource
	recorder    *Recorder
	tx          database.Transactor
	metrics     Metrics
	logger      *slog.Logger
	clock       func() time.Time
}

type EvaluatorOption func(*Evaluator)

// WithClock overrides wall-clock time in tests.
func WithClock(clock func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		e.clock = clock
	}
}

func NewEvaluator(
	windows WindowSource,
	checkpoints CheckpointFinisher,
	events LatestEventSource,
	meetings MeetingSource,
	recorder *Recorder,
	tx database.Transactor,
	metrics Metrics,
	logger *slog.Logger,
	opts ...EvaluatorOption,
) (*Evaluator, error) {
	if windows == nil || checkpoints == nil || events == nil || meetings == nil || recorder == nil {
		return nil, fmt.Errorf("evaluator dependencies are required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transactor is required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("metrics sink is required")
	}

	evaluator := &Evaluator{
		windows:     windows,
		checkpoints: checkpoints,
		events:      events,
		meetings:    meetings,
		recorder:    recorder,
		tx:          tx,
		metrics:     metrics,
		logger:      logger,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(evaluator)
	}
	return evaluator, nil
}

// ProcessCheckpoint decides candidacy for one due checkpoint. The decision
// is a pure function of (current window, override history, meeting history);
// the processed_at compare-and-set makes event emission exactly-once even
// when two sweeps race on the same checkpoint.
func (e *Evaluator) ProcessCheckpoint(ctx context.Context, checkpoint checkpointmodels.Checkpoint) error {
	now := e.clock()
	today := timelinemodels.Date(now)

	windows, err := e.windows.FollowUpWindows(ctx, checkpoint.Personident)
	if err != nil {
		return fmt.Errorf("fetch follow-up windows: %w", err)
	}

	window, found := timeline.CurrentWindow(windows, today)
	if !found || !checkpointrules.Qualifies(window) {
		// Scheduling false positive: the window shrank or closed since the
		// checkpoint was planned. Finish silently, no state change.
		return e.finish(ctx, checkpoint, checkpointmodels.StatusNotCandidate, now)
	}

	eligible := window.WorkerAtEnd && !timelinemodels.Date(window.End).Before(checkpointrules.DueDate(window, today))

	if !eligible {
		return e.finish(ctx, checkpoint, checkpointmodels.StatusNotCandidate, now)
	}

	// The suppression reads share the confirming transaction, with the
	// latest event locked: an override committing concurrently either lands
	// before the lock and vetoes the confirmation, or waits for it.
	var confirmed bool
	err = e.tx.InTx(ctx, func(ctx context.Context) error {
		confirmed = false
		suppressed, err := e.suppressed(ctx, checkpoint.Personident, window)
		if err != nil {
			return err
		}
		if suppressed {
			return e.checkpoints.Finish(ctx, checkpoint.ID, checkpointmodels.StatusNotCandidate, now)
		}
		if err := e.checkpoints.Finish(ctx, checkpoint.ID, checkpointmodels.StatusConfirmedCandidate, now); err != nil {
			return err
		}
		confirmed = true
		return e.recorder.Append(ctx, models.NewFromCheckpointEvent(checkpoint.Personident, now, window.Start))
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyProcessed) {
			// Another sweep got here first; its event is the only one.
			return nil
		}
		return fmt.Errorf("confirm candidate: %w", err)
	}
	if !confirmed {
		e.metrics.CheckpointDismissed()
		return nil
	}

	e.metrics.CandidateConfirmed()
	e.logger.Info("candidacy confirmed",
		"checkpoint_id", checkpoint.ID,
		"window_start", window.Start.Format("2006-01-02"),
	)
	return nil
}

// suppressed checks the two facts that veto an otherwise eligible window: a
// dialogue meeting already completed within it, or a manual override placed
// during it.
func (e *Evaluator) suppressed(ctx context.Context, personident domain.Personident, window timelinemodels.FollowUpWindow) (bool, error) {
	completed, err := e.meetings.LatestCompletedTime(ctx, personident)
	if err != nil {
		return false, fmt.Errorf("fetch latest completed meeting: %w", err)
	}
	if completed != nil && !timelinemodels.Date(*completed).Before(timelinemodels.Date(window.Start)) {
		return true, nil
	}

	latest, err := e.events.LatestByPersonidentForUpdate(ctx, personident)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("fetch latest candidacy event: %w", err)
	}
	if latest.IsManualOverride() && !timelinemodels.Date(latest.CreatedAt).Before(timelinemodels.Date(window.Start)) {
		return true, nil
	}
	return false, nil
}

func (e *Evaluator) finish(ctx context.Context, checkpoint checkpointmodels.Checkpoint, status checkpointmodels.Status, now time.Time) error {
	err := e.tx.InTx(ctx, func(ctx context.Context) error {
		return e.checkpoints.Finish(ctx, checkpoint.ID, status, now)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyProcessed) {
			return nil
		}
		return fmt.Errorf("finish checkpoint: %w", err)
	}
	e.metrics.CheckpointDismissed()
	return nil
}
