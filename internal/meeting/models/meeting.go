package models

import (
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/pkg/domain"
)

// StatusCompleted is the only meeting status this service retains. A
// completed dialogue meeting suppresses later candidacy confirmations within
// the same follow-up window.
const StatusCompleted = "FERDIGSTILT"

// CompletedMeeting records that a dialogue meeting was held for a person.
// MeetingTime is when the meeting took place, CompletedTime when the status
// change was registered; suppression reads only CompletedTime.
type CompletedMeeting struct {
	ID            uuid.UUID
	CreatedAt     time.Time
	MeetingID     uuid.UUID
	Personident   domain.Personident
	MeetingTime   time.Time
	CompletedTime time.Time
}
