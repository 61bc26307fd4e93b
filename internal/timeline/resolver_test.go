package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dialogmotekandidat/internal/timeline/models"
	"dialogmotekandidat/pkg/domain"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func window(start, end string) models.FollowUpWindow {
	return models.FollowUpWindow{
		Personident: domain.Personident("12345678910"),
		Start:       date(start),
		End:         date(end),
		WorkerAtEnd: true,
	}
}

func TestCurrentWindow(t *testing.T) {
	t.Run("no windows", func(t *testing.T) {
		_, found := CurrentWindow(nil, date("2024-02-01"))
		assert.False(t, found)
	})

	t.Run("date outside every window", func(t *testing.T) {
		windows := []models.FollowUpWindow{window("2024-01-01", "2024-03-01")}
		_, found := CurrentWindow(windows, date("2024-03-02"))
		assert.False(t, found)
	})

	t.Run("boundary dates are inclusive", func(t *testing.T) {
		windows := []models.FollowUpWindow{window("2024-01-01", "2024-03-01")}

		w, found := CurrentWindow(windows, date("2024-01-01"))
		assert.True(t, found)
		assert.Equal(t, date("2024-01-01"), w.Start)

		_, found = CurrentWindow(windows, date("2024-03-01"))
		assert.True(t, found)
	})

	t.Run("picks covering window among several", func(t *testing.T) {
		windows := []models.FollowUpWindow{
			window("2023-01-01", "2023-02-01"),
			window("2024-01-01", "2024-03-01"),
		}
		w, found := CurrentWindow(windows, date("2024-02-15"))
		assert.True(t, found)
		assert.Equal(t, date("2024-01-01"), w.Start)
	})

	t.Run("earliest start wins on overlap", func(t *testing.T) {
		windows := []models.FollowUpWindow{
			window("2024-01-15", "2024-04-01"),
			window("2024-01-01", "2024-03-01"),
		}
		w, found := CurrentWindow(windows, date("2024-02-01"))
		assert.True(t, found)
		assert.Equal(t, date("2024-01-01"), w.Start)
	})
}
