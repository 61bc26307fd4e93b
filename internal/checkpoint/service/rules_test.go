package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	timelinemodels "dialogmotekandidat/internal/timeline/models"
	"dialogmotekandidat/pkg/domain"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func window(start, end string, workerAtEnd bool) timelinemodels.FollowUpWindow {
	return timelinemodels.FollowUpWindow{
		Personident: domain.Personident("12345678910"),
		Start:       date(start),
		End:         date(end),
		WorkerAtEnd: workerAtEnd,
	}
}

func TestDueDate(t *testing.T) {
	t.Run("120 day window due 119 days after start", func(t *testing.T) {
		w := window("2024-01-01", "2024-04-30", true)
		due := DueDate(w, date("2024-01-05"))
		assert.Equal(t, date("2024-04-29"), due)
	})

	t.Run("past due date on open window clamps to tomorrow", func(t *testing.T) {
		w := window("2023-01-01", "2024-06-01", true)
		due := DueDate(w, date("2024-05-01"))
		assert.Equal(t, date("2024-05-02"), due)
	})

	t.Run("past due date on closed window is not clamped", func(t *testing.T) {
		w := window("2023-01-01", "2023-06-01", true)
		due := DueDate(w, date("2024-05-01"))
		assert.Equal(t, date("2023-01-01").AddDate(0, 0, DueDateOffsetDays), due)
	})

	t.Run("due date equal to today is not clamped", func(t *testing.T) {
		w := window("2024-01-01", "2024-06-01", true)
		due := DueDate(w, date("2024-04-29"))
		assert.Equal(t, date("2024-04-29"), due)
	})
}

func TestQualifies(t *testing.T) {
	t.Run("exactly threshold days qualifies", func(t *testing.T) {
		w := window("2024-01-01", date("2024-01-01").AddDate(0, 0, CandidacyThresholdDays).Format("2006-01-02"), true)
		assert.True(t, Qualifies(w))
	})

	t.Run("one day short does not qualify", func(t *testing.T) {
		w := window("2024-01-01", date("2024-01-01").AddDate(0, 0, CandidacyThresholdDays-1).Format("2006-01-02"), true)
		assert.False(t, Qualifies(w))
	})

	t.Run("not a worker at window end does not qualify", func(t *testing.T) {
		w := window("2024-01-01", "2024-06-01", false)
		assert.False(t, Qualifies(w))
	})
}
