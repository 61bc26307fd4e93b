// Package meeting retains completed dialogue meetings from the meeting
// service's status-change stream. Every other status is dropped on the
// floor; only FERDIGSTILT matters for candidacy suppression.
package meeting

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/internal/meeting/models"
	"dialogmotekandidat/internal/platform/kafka/consumer"
	"dialogmotekandidat/pkg/domain"
)

// MeetingRecorder is the slice of the meeting store the consumer needs.
type MeetingRecorder interface {
	Create(ctx context.Context, meeting models.CompletedMeeting) error
}

// StatusHandler consumes meeting status-change facts.
type StatusHandler struct {
	meetings MeetingRecorder
	logger   *slog.Logger
}

func NewStatusHandler(meetings MeetingRecorder, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{meetings: meetings, logger: logger}
}

type statusFact struct {
	DialogmoteUUID      string    `json:"dialogmoteUuid"`
	Personident         string    `json:"personIdent"`
	StatusEndringType   string    `json:"statusEndringType"`
	DialogmoteTidspunkt time.Time `json:"dialogmoteTidspunkt"`
	StatusTidspunkt     time.Time `json:"statusTidspunkt"`
}

// Handle stores completed meetings and skips everything else. Malformed
// records are logged and skipped; store failures abort the batch for
// redelivery.
func (h *StatusHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var fact statusFact
	if err := json.Unmarshal(msg.Value, &fact); err != nil {
		h.logger.Warn("skipping malformed meeting status fact",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	if fact.StatusEndringType != models.StatusCompleted {
		return nil
	}

	personident, err := domain.ParsePersonident(fact.Personident)
	if err != nil {
		h.logger.Warn("skipping meeting status fact with invalid personident",
			"topic", msg.Topic,
			"offset", msg.Offset,
		)
		return nil
	}

	meetingID, err := uuid.Parse(fact.DialogmoteUUID)
	if err != nil {
		h.logger.Warn("skipping meeting status fact with invalid meeting uuid",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	return h.meetings.Create(ctx, models.CompletedMeeting{
		ID:            uuid.New(),
		CreatedAt:     time.Now().UTC(),
		MeetingID:     meetingID,
		Personident:   personident,
		MeetingTime:   fact.DialogmoteTidspunkt,
		CompletedTime: fact.StatusTidspunkt,
	})
}
