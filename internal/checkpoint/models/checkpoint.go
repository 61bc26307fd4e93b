package models

import (
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/pkg/domain"
)

// Status is the lifecycle of a checkpoint. Planned rows are outstanding work;
// the two terminal values record the evaluation verdict and never change.
type Status string

const (
	StatusPlanned            Status = "PLANNED"
	StatusConfirmedCandidate Status = "CONFIRMED_CANDIDATE"
	StatusNotCandidate       Status = "NOT_CANDIDATE"
)

// Checkpoint is a scheduled date on which candidacy must be evaluated for one
// follow-up window. ProcessedAt is set exactly once, together with the
// terminal status; the row is immutable afterwards. At most one Planned
// checkpoint exists per (personident, window start).
type Checkpoint struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	Personident domain.Personident
	ProcessedAt *time.Time
	Status      Status
	DueDate     time.Time
	WindowStart time.Time
}

// IsProcessed reports whether the checkpoint carries a terminal status.
func (c Checkpoint) IsProcessed() bool {
	return c.ProcessedAt != nil
}
