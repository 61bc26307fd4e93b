package service

import (
	"time"

	timelinemodels "dialogmotekandidat/internal/timeline/models"
)

// The legal deadline behind these constants: a dialogue meeting must be held
// within 26 weeks of sick leave, and candidacy is assessed once the follow-up
// window has lasted 16 weeks. The due date lands one week past that mark so
// the window facts have settled.
const (
	// CandidacyThresholdDays is the minimum window duration that qualifies.
	CandidacyThresholdDays = 112
	// DueDateOffsetDays is the distance from window start to the evaluation
	// due date.
	DueDateOffsetDays = 119
)

// Qualifies reports whether the window can produce a candidacy at all: the
// person is still employed at window end and the window spans the threshold.
func Qualifies(window timelinemodels.FollowUpWindow) bool {
	return window.WorkerAtEnd && window.DurationDays() >= CandidacyThresholdDays
}

// DueDate computes when the window's checkpoint falls due. Windows discovered
// late, where start+offset already passed while the window is still open, are
// re-armed to tomorrow instead of producing a due date in the past.
func DueDate(window timelinemodels.FollowUpWindow, today time.Time) time.Time {
	today = timelinemodels.Date(today)
	due := timelinemodels.Date(window.Start).AddDate(0, 0, DueDateOffsetDays)
	if due.Before(today) && today.Before(timelinemodels.Date(window.End)) {
		return today.AddDate(0, 0, 1)
	}
	return due
}
