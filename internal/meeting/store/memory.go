package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/internal/meeting/models"
	"dialogmotekandidat/pkg/domain"
)

// MemoryStore is the in-memory meeting store used by service tests.
type MemoryStore struct {
	mu       sync.Mutex
	meetings map[uuid.UUID]models.CompletedMeeting
}

func NewMemory() *MemoryStore {
	return &MemoryStore{meetings: make(map[uuid.UUID]models.CompletedMeeting)}
}

func (s *MemoryStore) Create(_ context.Context, meeting models.CompletedMeeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.meetings {
		if m.MeetingID == meeting.MeetingID {
			return nil
		}
	}
	s.meetings[meeting.ID] = meeting
	return nil
}

func (s *MemoryStore) LatestCompletedTime(_ context.Context, personident domain.Personident) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *time.Time
	for _, m := range s.meetings {
		if m.Personident != personident {
			continue
		}
		if latest == nil || m.CompletedTime.After(*latest) {
			at := m.CompletedTime
			latest = &at
		}
	}
	return latest, nil
}

func (s *MemoryStore) UpdatePersonident(_ context.Context, inactive []domain.Personident, active domain.Personident) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for id, m := range s.meetings {
		for _, ident := range inactive {
			if m.Personident == ident {
				m.Personident = active
				s.meetings[id] = m
				updated++
				break
			}
		}
	}
	return updated, nil
}

func (s *MemoryStore) CountForPersonidents(_ context.Context, idents []domain.Personident) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, m := range s.meetings {
		for _, ident := range idents {
			if m.Personident == ident {
				count++
				break
			}
		}
	}
	return count, nil
}

// All returns every stored meeting; test helper.
func (s *MemoryStore) All() []models.CompletedMeeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CompletedMeeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		out = append(out, m)
	}
	return out
}
