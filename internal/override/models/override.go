package models

import (
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/pkg/domain"
)

// ExceptionReason classifies a case-worker exception. The two meeting
// outcomes that used to live here are reserved: a held meeting is recorded
// by the meeting stream, and "not applicable" has its own closure type.
type ExceptionReason string

const (
	ExceptionMedicalReasons     ExceptionReason = "MEDISINSKE_GRUNNER"
	ExceptionInstitutionalized  ExceptionReason = "INNLEGGELSE_INSTITUSJON"
	ExceptionFriskmeldt         ExceptionReason = "FRISKMELDT"
	ExceptionExpectedRecovery   ExceptionReason = "FORVENTET_FRISKMELDING_INNEN_28UKER"
	ExceptionDocumentedMeasures ExceptionReason = "DOKUMENTERT_TILTAK_FRISKMELDING"
	ExceptionEmploymentEnded    ExceptionReason = "ARBEIDSFORHOLD_OPPHORT"
)

// Reserved legacy values rejected at the trust boundary.
const (
	ReservedMeetingHeld   ExceptionReason = "DIALOGMOTE_GJENNOMFORT"
	ReservedNotApplicable ExceptionReason = "IKKE_AKTUELT"
)

// IsReserved reports whether the reason is one of the legacy values that
// must be rejected.
func (r ExceptionReason) IsReserved() bool {
	return r == ReservedMeetingHeld || r == ReservedNotApplicable
}

// Valid reports whether the reason is an accepted exception reason.
func (r ExceptionReason) Valid() bool {
	switch r {
	case ExceptionMedicalReasons, ExceptionInstitutionalized, ExceptionFriskmeldt,
		ExceptionExpectedRecovery, ExceptionDocumentedMeasures, ExceptionEmploymentEnded:
		return true
	}
	return false
}

// Exception is a case-worker decision that the person, though a candidate by
// the temporal rule, should not be called to a dialogue meeting now.
type Exception struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	CreatedBy   string
	Personident domain.Personident
	Reason      ExceptionReason
	Note        string
}

// NotApplicableReason classifies a terminal not-applicable closure.
type NotApplicableReason string

const (
	NotApplicableWorkerDead      NotApplicableReason = "ARBEIDSTAKER_DOD"
	NotApplicableFriskmeldt      NotApplicableReason = "FRISKMELDT"
	NotApplicableEmploymentEnded NotApplicableReason = "ARBEIDSFORHOLD_OPPHORT"
	NotApplicableMeetingHeld     NotApplicableReason = "DIALOGMOTE_AVHOLDT"
)

// Valid reports whether the reason is an accepted closure reason.
func (r NotApplicableReason) Valid() bool {
	switch r {
	case NotApplicableWorkerDead, NotApplicableFriskmeldt,
		NotApplicableEmploymentEnded, NotApplicableMeetingHeld:
		return true
	}
	return false
}

// NotApplicableClosure is a case-worker decision that candidacy no longer
// applies to the person at all. Only valid while the person is a candidate.
type NotApplicableClosure struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	CreatedBy   string
	Personident domain.Personident
	Reason      NotApplicableReason
	Note        string
}
