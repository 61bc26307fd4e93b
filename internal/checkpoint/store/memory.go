package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/internal/checkpoint/models"
	timelinemodels "dialogmotekandidat/internal/timeline/models"
	"dialogmotekandidat/pkg/domain"
	"dialogmotekandidat/pkg/platform/sentinel"
)

// MemoryStore is the in-memory checkpoint store used by service tests.
type MemoryStore struct {
	mu          sync.Mutex
	checkpoints map[uuid.UUID]models.Checkpoint
}

func NewMemory() *MemoryStore {
	return &MemoryStore{checkpoints: make(map[uuid.UUID]models.Checkpoint)}
}

func (s *MemoryStore) Create(_ context.Context, checkpoint models.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cp := range s.checkpoints {
		if cp.Personident == checkpoint.Personident &&
			cp.WindowStart.Equal(checkpoint.WindowStart) &&
			cp.Status == models.StatusPlanned {
			return sentinel.ErrConflict
		}
	}
	s.checkpoints[checkpoint.ID] = checkpoint
	return nil
}

func (s *MemoryStore) HasPlanned(_ context.Context, personident domain.Personident, windowStart time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cp := range s.checkpoints {
		if cp.Personident == personident &&
			cp.WindowStart.Equal(timelinemodels.Date(windowStart)) &&
			cp.Status == models.StatusPlanned {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListDue(_ context.Context, today time.Time) ([]models.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.Checkpoint
	for _, cp := range s.checkpoints {
		if cp.Status == models.StatusPlanned && !cp.DueDate.After(today) {
			due = append(due, cp)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].DueDate.Equal(due[j].DueDate) {
			return due[i].DueDate.Before(due[j].DueDate)
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})
	return due, nil
}

func (s *MemoryStore) Finish(_ context.Context, id uuid.UUID, status models.Status, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.checkpoints[id]
	if !ok || cp.ProcessedAt != nil {
		return sentinel.ErrAlreadyProcessed
	}
	at := processedAt
	cp.ProcessedAt = &at
	cp.Status = status
	s.checkpoints[id] = cp
	return nil
}

func (s *MemoryStore) UpdatePersonident(_ context.Context, inactive []domain.Personident, active domain.Personident) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for id, cp := range s.checkpoints {
		for _, ident := range inactive {
			if cp.Personident == ident {
				cp.Personident = active
				s.checkpoints[id] = cp
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
	for _, cp := range s.checkpoints {
		for _, ident := range idents {
			if cp.Personident == ident {
				count++
				break
			}
		}
	}
	return count, nil
}

// Get returns a checkpoint by id; test helper.
func (s *MemoryStore) Get(id uuid.UUID) (models.Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.checkpoints[id]
	return cp, ok
}

// All returns every checkpoint; test helper.
func (s *MemoryStore) All() []models.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Checkpoint, 0, len(s.checkpoints))
	for _, cp := range s.checkpoints {
		out = append(out, cp)
	}
	return out
}
