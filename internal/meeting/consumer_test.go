package meeting_test

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"dialogmotekandidat/internal/meeting"
	"dialogmotekandidat/internal/meeting/store"
	"dialogmotekandidat/internal/platform/kafka/consumer"
)

type StatusHandlerSuite struct {
	suite.Suite
	meetings *store.MemoryStore
	handler  *meeting.StatusHandler
}

func TestStatusHandlerSuite(t *testing.T) {
	suite.Run(t, new(StatusHandlerSuite))
}

func (s *StatusHandlerSuite) SetupTest() {
	s.meetings = store.NewMemory()
	s.handler = meeting.NewStatusHandler(s.meetings, slog.New(slog.DiscardHandler))
}

func (s *StatusHandlerSuite) message(fact map[string]any) *consumer.Message {
	value, err := json.Marshal(fact)
	s.Require().NoError(err)
	return &consumer.Message{Topic: "teamsykefravr.isdialogmote-dialogmote-statusendring", Value: value}
}

func (s *StatusHandlerSuite) TestCompletedStatusIsStored() {
	meetingID := uuid.New()
	held := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	completed := time.Date(2024, 5, 2, 13, 0, 0, 0, time.UTC)
	msg := s.message(map[string]any{
		"dialogmoteUuid":      meetingID.String(),
		"personIdent":         "12345678901",
		"statusEndringType":   "FERDIGSTILT",
		"dialogmoteTidspunkt": held,
		"statusTidspunkt":     completed,
	})

	s.Require().NoError(s.handler.Handle(s.T().Context(), msg))

	all := s.meetings.All()
	s.Require().Len(all, 1)
	s.Equal(meetingID, all[0].MeetingID)
	s.Equal("12345678901", all[0].Personident.String())
	s.True(all[0].MeetingTime.Equal(held))
	s.True(all[0].CompletedTime.Equal(completed))
}

func (s *StatusHandlerSuite) TestOtherStatusesAreDropped() {
	for _, status := range []string{"INNKALT", "AVLYST", "NYTT_TID_STED", "LUKKET"} {
		msg := s.message(map[string]any{
			"dialogmoteUuid":    uuid.New().String(),
			"personIdent":       "12345678901",
			"statusEndringType": status,
			"statusTidspunkt":   time.Now().UTC(),
		})
		s.Require().NoError(s.handler.Handle(s.T().Context(), msg))
	}
	s.Empty(s.meetings.All())
}

func (s *StatusHandlerSuite) TestMalformedPayloadIsSkipped() {
	msg := &consumer.Message{Value: []byte("not json")}
	s.Require().NoError(s.handler.Handle(s.T().Context(), msg))
	s.Empty(s.meetings.All())
}

func (s *StatusHandlerSuite) TestInvalidPersonidentIsSkipped() {
	msg := s.message(map[string]any{
		"dialogmoteUuid":    uuid.New().String(),
		"personIdent":       "123",
		"statusEndringType": "FERDIGSTILT",
		"statusTidspunkt":   time.Now().UTC(),
	})
	s.Require().NoError(s.handler.Handle(s.T().Context(), msg))
	s.Empty(s.meetings.All())
}

func (s *StatusHandlerSuite) TestRedeliveryCollapses() {
	meetingID := uuid.New()
	msg := s.message(map[string]any{
		"dialogmoteUuid":    meetingID.String(),
		"personIdent":       "12345678901",
		"statusEndringType": "FERDIGSTILT",
		"statusTidspunkt":   time.Now().UTC(),
	})
	s.Require().NoError(s.handler.Handle(s.T().Context(), msg))
	s.Require().NoError(s.handler.Handle(s.T().Context(), msg))
	s.Len(s.meetings.All(), 1)
}
