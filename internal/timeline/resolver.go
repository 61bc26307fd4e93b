// Package timeline normalizes a person's raw follow-up windows and answers
// which window covers a given date.
package timeline

import (
	"time"

	"dialogmotekandidat/internal/timeline/models"
)

// CurrentWindow returns the window covering asOf. When upstream data
// overlaps (it should not), the earliest-starting covering window wins so
// the answer stays deterministic.
func CurrentWindow(windows []models.FollowUpWindow, asOf time.Time) (models.FollowUpWindow, bool) {
	var current models.FollowUpWindow
	found := false
	for _, window := range windows {
		if !window.Covers(asOf) {
			continue
		}
		if !found || window.Start.Before(current.Start) {
			current = window
			found = true
		}
	}
	return current, found
}
