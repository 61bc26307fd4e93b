package models

import (
	"time"

	"dialogmotekandidat/pkg/domain"
)

// FollowUpWindow is one continuous sick-leave follow-up period for a person.
// Windows are owned by the external case service and never persisted here:
// every evaluation re-fetches them so decisions ride on current facts.
type FollowUpWindow struct {
	Personident domain.Personident
	Start       time.Time
	End         time.Time
	WorkerAtEnd bool
	DeathDate   *time.Time
}

// Covers reports whether day falls inside [Start, End], compared at date
// precision.
func (w FollowUpWindow) Covers(day time.Time) bool {
	d := Date(day)
	return !d.Before(Date(w.Start)) && !d.After(Date(w.End))
}

// DurationDays is the window length in whole days.
func (w FollowUpWindow) DurationDays() int {
	return int(Date(w.End).Sub(Date(w.Start)).Hours() / 24)
}

// Date truncates t to midnight UTC. All window arithmetic happens at date
// precision; mixing wall-clock instants in causes off-by-one due dates.
func Date(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
