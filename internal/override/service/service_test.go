package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	candidacymodels "dialogmotekandidat/internal/candidacy/models"
	candidacyservice "dialogmotekandidat/internal/candidacy/service"
	candidacystore "dialogmotekandidat/internal/candidacy/store"
	"dialogmotekandidat/internal/override/models"
	"dialogmotekandidat/internal/override/store"
	"dialogmotekandidat/internal/platform/database"
	"dialogmotekandidat/pkg/domain"
	dErrors "dialogmotekandidat/pkg/domain-errors"
)

const testIdent = domain.Personident("12345678910")

type fakeMetrics struct {
	exceptions, closures int
}

func (m *fakeMetrics) ExceptionCreated()     { m.exceptions++ }
func (m *fakeMetrics) NotApplicableCreated() { m.closures++ }

type ServiceSuite struct {
	suite.Suite
	exceptions *store.MemoryExceptionStore
	closures   *store.MemoryClosureStore
	events     *candidacystore.MemoryStore
	outbox     *candidacystore.MemoryOutbox
	metrics    *fakeMetrics
	service    *Service
	now        time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.exceptions = store.NewMemoryExceptions()
	s.closures = store.NewMemoryClosures()
	s.events = candidacystore.NewMemory()
	s.outbox = candidacystore.NewMemoryOutbox()
	s.metrics = &fakeMetrics{}
	s.now = time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	recorder := candidacyservice.NewRecorder(s.events, s.outbox)
	var err error
	s.service, err = New(
		s.exceptions, s.closures, s.events, recorder,
		database.PassthroughTransactor{}, s.metrics, slog.New(slog.DiscardHandler),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
}

func (s *ServiceSuite) makeCandidate() {
	windowStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.events.Append(context.Background(),
		candidacymodels.NewFromCheckpointEvent(testIdent, s.now.Add(-24*time.Hour), windowStart)))
}

func (s *ServiceSuite) TestCreateException() {
	s.makeCandidate()

	exception, err := s.service.CreateException(context.Background(), NewException{
		Personident: testIdent,
		Reason:      models.ExceptionMedicalReasons,
		Note:        "hospitalized until further notice",
		CreatedBy:   "Z999999",
	})
	s.Require().NoError(err)
	s.Equal(models.ExceptionMedicalReasons, exception.Reason)

	s.Require().Len(s.exceptions.All(), 1)

	events, err := s.events.ListByPersonident(context.Background(), testIdent)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	latest := events[len(events)-1]
	s.False(latest.IsCandidate)
	s.Equal(candidacymodels.ReasonException, latest.Kind)
	s.Equal("MEDISINSKE_GRUNNER", latest.Detail)

	s.Len(s.outbox.All(), 1)
	s.Equal(1, s.metrics.exceptions)
	s.False(candidacymodels.CurrentState(events).IsCandidate())
}

func (s *ServiceSuite) TestExceptionReservedReasonRejected() {
	s.makeCandidate()

	for _, reason := range []models.ExceptionReason{
		models.ReservedMeetingHeld,
		models.ReservedNotApplicable,
	} {
		_, err := s.service.CreateException(context.Background(), NewException{
			Personident: testIdent,
			Reason:      reason,
			CreatedBy:   "Z999999",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	}
	s.Empty(s.exceptions.All())
	s.Empty(s.outbox.All())
}

func (s *ServiceSuite) TestExceptionReservedReasonRejectedWithoutHistory() {
	_, err := s.service.CreateException(context.Background(), NewException{
		Personident: testIdent,
		Reason:      models.ReservedMeetingHeld,
		CreatedBy:   "Z999999",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestExceptionUnknownReasonRejected() {
	_, err := s.service.CreateException(context.Background(), NewException{
		Personident: testIdent,
		Reason:      models.ExceptionReason("VET_IKKE"),
		CreatedBy:   "Z999999",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestNotApplicableClosesCandidate() {
	s.makeCandidate()

	closure, err := s.service.CreateNotApplicable(context.Background(), NewNotApplicable{
		Personident: testIdent,
		Reason:      models.NotApplicableFriskmeldt,
		CreatedBy:   "Z999999",
	})
	s.Require().NoError(err)
	s.Equal(models.NotApplicableFriskmeldt, closure.Reason)

	s.Require().Len(s.closures.All(), 1)

	events, err := s.events.ListByPersonident(context.Background(), testIdent)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.False(candidacymodels.CurrentState(events).IsCandidate())
	s.Equal(candidacymodels.ReasonNotApplicable, events[1].Kind)
	s.Len(s.outbox.All(), 1)
	s.Equal(1, s.metrics.closures)
}

func (s *ServiceSuite) TestNotApplicableConflictsWhenNotCandidate() {
	// No history at all.
	_, err := s.service.CreateNotApplicable(context.Background(), NewNotApplicable{
		Personident: testIdent,
		Reason:      models.NotApplicableWorkerDead,
		CreatedBy:   "Z999999",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	// Candidacy already closed.
	s.makeCandidate()
	s.Require().NoError(s.events.Append(context.Background(),
		candidacymodels.NewClosedEvent(testIdent, s.now.Add(-time.Hour), candidacymodels.ClosedMeetingHeld)))

	_, err = s.service.CreateNotApplicable(context.Background(), NewNotApplicable{
		Personident: testIdent,
		Reason:      models.NotApplicableWorkerDead,
		CreatedBy:   "Z999999",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Empty(s.closures.All())
	s.Empty(s.outbox.All())
}

func (s *ServiceSuite) TestNotApplicableUnknownReasonRejected() {
	s.makeCandidate()
	_, err := s.service.CreateNotApplicable(context.Background(), NewNotApplicable{
		Personident: testIdent,
		Reason:      models.NotApplicableReason("ANNET"),
		CreatedBy:   "Z999999",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}
