package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"dialogmotekandidat/internal/candidacy/models"
	candidacystore "dialogmotekandidat/internal/candidacy/store"
	checkpointmodels "dialogmotekandidat/internal/checkpoint/models"
	checkpointstore "dialogmotekandidat/internal/checkpoint/store"
	"dialogmotekandidat/internal/platform/database"
	timelinemodels "dialogmotekandidat/internal/timeline/models"
	"dialogmotekandidat/pkg/domain"
)

const testIdent = domain.Personident("12345678910")

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type fakeWindows struct {
	windows []timelinemodels.FollowUpWindow
	err     error
}

func (f *fakeWindows) FollowUpWindows(context.Context, domain.Personident) ([]timelinemodels.FollowUpWindow, error) {
	return f.windows, f.err
}

type fakeMeetings struct {
	completed *time.Time
}

func (f *fakeMeetings) LatestCompletedTime(context.Context, domain.Personident) (*time.Time, error) {
	return f.completed, nil
}

type fakeMetrics struct {
	confirmed, dismissed int
}

func (m *fakeMetrics) CandidateConfirmed()  { m.confirmed++ }
func (m *fakeMetrics) CheckpointDismissed() { m.dismissed++ }

// Justification for unit tests: the evaluation state machine combines four
// inputs (window, due date, meeting history, override history); each branch
// deserves a precise check that an end-to-end run would blur.
type EvaluatorSuite struct {
	suite.Suite
	windows     *fakeWindows
	meetings    *fakeMeetings
	metrics     *fakeMetrics
	checkpoints *checkpointstore.MemoryStore
	events      *candidacystore.MemoryStore
	outbox      *candidacystore.MemoryOutbox
	evaluator   *Evaluator
	today       time.Time
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.windows = &fakeWindows{}
	s.meetings = &fakeMeetings{}
	s.metrics = &fakeMetrics{}
	s.checkpoints = checkpointstore.NewMemory()
	s.events = candidacystore.NewMemory()
	s.outbox = candidacystore.NewMemoryOutbox()
	s.today = date("2024-04-29")

	recorder := NewRecorder(s.events, s.outbox)
	var err error
	s.evaluator, err = NewEvaluator(
		s.windows, s.checkpoints, s.events, s.meetings, recorder,
		database.PassthroughTransactor{}, s.metrics, slog.New(slog.DiscardHandler),
		WithClock(func() time.Time { return s.today }),
	)
	s.Require().NoError(err)
}

func (s *EvaluatorSuite) plannedCheckpoint(windowStart, dueDate string) checkpointmodels.Checkpoint {
	cp := checkpointmodels.Checkpoint{
		ID:          uuid.New(),
		CreatedAt:   date(windowStart).Add(12 * time.Hour),
		Personident: testIdent,
		Status:      checkpointmodels.StatusPlanned,
		DueDate:     date(dueDate),
		WindowStart: date(windowStart),
	}
	s.Require().NoError(s.checkpoints.Create(context.Background(), cp))
	return cp
}

func (s *EvaluatorSuite) qualifyingWindow() timelinemodels.FollowUpWindow {
	return timelinemodels.FollowUpWindow{
		Personident: testIdent,
		Start:       date("2024-01-01"),
		End:         date("2024-05-05"),
		WorkerAtEnd: true,
	}
}

func (s *EvaluatorSuite) TestConfirmsCandidate() {
	ctx := context.Background()
	s.windows.windows = []timelinemodels.FollowUpWindow{s.qualifyingWindow()}
	cp := s.plannedCheckpoint("2024-01-01", "2024-04-29")

	s.Require().NoError(s.evaluator.ProcessCheckpoint(ctx, cp))

	stored, ok := s.checkpoints.Get(cp.ID)
	s.Require().True(ok)
	s.Equal(checkpointmodels.StatusConfirmedCandidate, stored.Status)
	s.NotNil(stored.ProcessedAt)

	events, err := s.events.ListByPersonident(ctx, testIdent)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.True(events[0].IsCandidate)
	s.Equal(models.ReasonFromCheckpoint, events[0].Kind)
	s.Require().NotNil(events[0].WindowStart)
	s.Equal(date("2024-01-01"), *events[0].WindowStart)

	s.Len(s.outbox.All(), 1)
	s.Equal(1, s.metrics.confirmed)
}

func (s *EvaluatorSuite) TestNoWindowFinishesSilently() {
	ctx := context.Background()
	cp := s.plannedCheckpoint("2024-01-01", "2024-04-29")

	s.Require().NoError(s.evaluator.ProcessCheckpoint(ctx, cp))

	stored, _ := s.checkpoints.Get(cp.ID)
	s.Equal(checkpointmodels.StatusNotCandidate, stored.Status)
	s.NotNil(stored.ProcessedAt)

	events, _ := s.events.ListByPersonident(ctx, testIdent)
	s.Empty(events)
	s.Equal(1, s.metrics.dismissed)
}

func (s *EvaluatorSuite) TestWindowNoLongerQualifies() {
	ctx := context.Background()
	short := s.qualifyingWindow()
	short.End = date("2024-02-01")
	s.windows.windows = []timelinemodels.FollowUpWindow{short}
	s.today = date("2024-01-20")
	cp := s.plannedCheckpoint("2024-01-01", "2024-01-15")

	s.Require().NoError(s.evaluator.ProcessCheckpoint(ctx, cp))

	stored, _ := s.checkpoints.Get(cp.ID)
	s.Equal(checkpointmodels.StatusNotCandidate, stored.Status)
	events, _ := s.events.ListByPersonident(ctx, testIdent)
	s.Empty(events)
}

func (s *EvaluatorSuite) TestWindowEndingBeforeDueDateIsNotEligible() {
	ctx := context.Background()
	// 115 days: long enough to qualify, but the window closes before the due
	// date arrives, so no meeting obligation materializes.
	window := s.qualifyingWindow()
	window.End = date("2024-04-25")
	s.windows.windows = []timelinemodels.FollowUpWindow{window}
	s.today = date("2024-04-20")
	cp := s.plannedCheckpoint("2024-01-01", "2024-04-20")

	s.Require().NoError(s.evaluator.ProcessCheckpoint(ctx, cp))

	stored, _ := s.checkpoints.Get(cp.ID)
	s.Equal(checkpointmodels.StatusNotCandidate, stored.Status)
	events, _ := s.events.ListByPersonident(ctx, testIdent)
	s.Empty(events)
}

func (s *EvaluatorSuite) TestCompletedMeetingSuppresses() {
	ctx := context.Background()
	s.windows.windows = []timelinemodels.FollowUpWindow{s.qualifyingWindow()}
	completed := date("2024-03-01").Add(10 * time.Hour)
	s.meetings.completed = &completed
	cp := s.plannedCheckpoint("2024-01-01", "2024-04-29")

	s.Require().NoError(s.evaluator.ProcessCheckpoint(ctx, cp))

	stored, _ := s.checkpoints.Get(cp.ID)
	s.Equal(checkpointmodels.StatusNotCandidate, stored.Status)
	events, _ := s.events.ListByPersonident(ctx, testIdent)
	s.Empty(events)
}

func (s *EvaluatorSuite) TestMeetingBeforeWindowDoesNotSuppress() {
	ctx := context.Background()
	s.windows.windows = []timelinemodels.FollowUpWindow{s.qualifyingWindow()}
	completed := date("2023-06-01")
	s.meetings.completed = &completed
	cp := s.plannedCheckpoint("2024-01-01", "2024-04-29")

	s.Require().NoError(s.evaluator.ProcessCheckpoint(ctx, cp))

	stored, _ := s.checkpoints.Get(cp.ID)
	s.Equal(checkpointmodels.StatusConfirmedCandidate, stored.Status)
}

func (s *EvaluatorSuite) TestManualOverrideInWindowIsSticky() {
	ctx := context.Background()
	s.windows.windows = []timelinemodels.FollowUpWindow{s.qualifyingWindow()}
	s.Require().NoError(s.events.Append(ctx,
		models.NewExceptionEvent(testIdent, date("2024-03-15"), "MEDISINSKE_GRUNNER")))
	cp := s.plannedCheckpoint("2024-01-01", "2024-04-29")

	s.Require().NoError(s.evaluator.ProcessCheckpoint(ctx, cp))

	stored, _ := s.checkpoints.Get(cp.ID)
	s.Equal(checkpointmodels.StatusNotCandidate, stored.Status)

	events, _ := s.events.ListByPersonident(ctx, testIdent)
	s.Len(events, 1) // only the override, nothing new
}

func (s *EvaluatorSuite) TestOverrideFromEarlierWindowDoesNotSuppress() {
	ctx := context.Background()
	s.windows.windows = []timelinemodels.FollowUpWindow{s.qualifyingWindow()}
	s.Require().NoError(s.events.Append(ctx,
		models.NewExceptionEvent(testIdent, date("2023-05-01"), "MEDISINSKE_GRUNNER")))
	cp := s.plannedCheckpoint("2024-01-01", "2024-04-29")

	s.Require().NoError(s.evaluator.ProcessCheckpoint(ctx, cp))

	stored, _ := s.checkpoints.Get(cp.ID)
	s.Equal(checkpointmodels.StatusConfirmedCandidate, stored.Status)
}

// interposeTransactor runs a callback before the transaction body, standing
// in for work that commits just ahead of it.
type interposeTransactor struct {
	before func(ctx context.Context) error
}

func (t interposeTransactor) InTx(ctx context.Context, fn func(context.Context) error) error {
	if t.before != nil {
		if err := t.before(ctx); err != nil {
			return err
		}
	}
	return fn(ctx)
}

func (s *EvaluatorSuite) TestOverrideLandingAtConfirmationTimeIsSticky() {
	ctx := context.Background()
	s.windows.windows = []timelinemodels.FollowUpWindow{s.qualifyingWindow()}
	cp := s.plannedCheckpoint("2024-01-01", "2024-04-29")

	// The exception only becomes visible once the confirming transaction is
	// open: the in-transaction suppression read must still see it and keep
	// the override as the latest word.
	tx := interposeTransactor{before: func(ctx context.Context) error {
		return s.events.Append(ctx,
			models.NewExceptionEvent(testIdent, s.today, "MEDISINSKE_GRUNNER"))
	}}
	recorder := NewRecorder(s.events, s.outbox)
	evaluator, err := NewEvaluator(
		s.windows, s.checkpoints, s.events, s.meetings, recorder,
		tx, s.metrics, slog.New(slog.DiscardHandler),
		WithClock(func() time.Time { return s.today }),
	)
	s.Require().NoError(err)

	s.Require().NoError(evaluator.ProcessCheckpoint(ctx, cp))

	stored, _ := s.checkpoints.Get(cp.ID)
	s.Equal(checkpointmodels.StatusNotCandidate, stored.Status)

	events, _ := s.events.ListByPersonident(ctx, testIdent)
	s.Len(events, 1)
	s.True(events[0].IsManualOverride(), "the override must stay the latest event")
	s.Empty(s.outbox.All())
	s.Equal(1, s.metrics.dismissed)
}

func (s *EvaluatorSuite) TestProcessedCheckpointNeverEmitsTwice() {
	ctx := context.Background()
	s.windows.windows = []timelinemodels.FollowUpWindow{s.qualifyingWindow()}
	cp := s.plannedCheckpoint("2024-01-01", "2024-04-29")

	s.Require().NoError(s.evaluator.ProcessCheckpoint(ctx, cp))
	s.Require().NoError(s.evaluator.ProcessCheckpoint(ctx, cp))

	events, _ := s.events.ListByPersonident(ctx, testIdent)
	s.Len(events, 1)
	s.Len(s.outbox.All(), 1)
	s.Equal(1, s.metrics.confirmed)
}
