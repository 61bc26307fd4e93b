package models

import (
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/pkg/domain"
)

// ReasonKind tags the event variant. The wire values are stable: downstream
// consumers branch on them.
type ReasonKind string

const (
	// ReasonFromCheckpoint marks candidacy confirmed by a due checkpoint.
	ReasonFromCheckpoint ReasonKind = "STOPPUNKT"
	// ReasonException marks a case-worker exception suppressing candidacy.
	ReasonException ReasonKind = "UNNTAK"
	// ReasonNotApplicable marks a terminal not-applicable closure.
	ReasonNotApplicable ReasonKind = "IKKE_AKTUELL"
	// ReasonClosed marks candidacy closed by the system.
	ReasonClosed ReasonKind = "LUKKET"
)

// ClosedCause narrows ReasonClosed.
type ClosedCause string

const (
	ClosedMeetingHeld ClosedCause = "DIALOGMOTE_FERDIGSTILT"
	ClosedOutdated    ClosedCause = "UTDATERT"
)

// Event is one immutable entry in a person's candidacy history. The variant
// is a tagged union: Kind selects which payload fields are meaningful
// (WindowStart for FromCheckpoint, Detail for the override and closed kinds).
// Current candidacy is always derived from the newest event, never stored.
type Event struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	Personident domain.Personident
	IsCandidate bool
	Kind        ReasonKind
	// Detail carries the variant payload: the exception reason, the closure
	// reason, or the closed cause. Empty for FromCheckpoint.
	Detail string
	// WindowStart is the triggering follow-up window's start date; only set
	// for FromCheckpoint events.
	WindowStart *time.Time
}

// NewFromCheckpointEvent records candidacy confirmed for a window.
func NewFromCheckpointEvent(personident domain.Personident, createdAt, windowStart time.Time) Event {
	start := windowStart
	return Event{
		ID:          uuid.New(),
		CreatedAt:   createdAt,
		Personident: personident,
		IsCandidate: true,
		Kind:        ReasonFromCheckpoint,
		WindowStart: &start,
	}
}

// NewExceptionEvent records candidacy suppressed by a case-worker exception.
func NewExceptionEvent(personident domain.Personident, createdAt time.Time, reason string) Event {
	return Event{
		ID:          uuid.New(),
		CreatedAt:   createdAt,
		Personident: personident,
		IsCandidate: false,
		Kind:        ReasonException,
		Detail:      reason,
	}
}

// NewNotApplicableEvent records a terminal not-applicable closure.
func NewNotApplicableEvent(personident domain.Personident, createdAt time.Time, reason string) Event {
	return Event{
		ID:          uuid.New(),
		CreatedAt:   createdAt,
		Personident: personident,
		IsCandidate: false,
		Kind:        ReasonNotApplicable,
		Detail:      reason,
	}
}

// NewClosedEvent records a system-driven close.
func NewClosedEvent(personident domain.Personident, createdAt time.Time, cause ClosedCause) Event {
	return Event{
		ID:          uuid.New(),
		CreatedAt:   createdAt,
		Personident: personident,
		IsCandidate: false,
		Kind:        ReasonClosed,
		Detail:      string(cause),
	}
}

// IsManualOverride reports whether the event came from a case worker rather
// than automatic evaluation. Overrides are sticky for their window: the
// evaluator must not overwrite them.
func (e Event) IsManualOverride() bool {
	return !e.IsCandidate && (e.Kind == ReasonException || e.Kind == ReasonNotApplicable)
}
