package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/pkg/domain"
)

// MemoryStore is the in-memory signal store used by service and sweep tests.
type MemoryStore struct {
	mu      sync.Mutex
	signals []Signal
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(_ context.Context, personident domain.Personident, receivedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sig := range s.signals {
		if sig.Personident == personident && sig.ProcessedAt == nil {
			return nil
		}
	}
	s.signals = append(s.signals, Signal{
		ID:          uuid.New(),
		Personident: personident,
		ReceivedAt:  receivedAt,
	})
	return nil
}

func (s *MemoryStore) ListPending(_ context.Context, limit int) ([]Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []Signal
	for _, sig := range s.signals {
		if sig.ProcessedAt == nil {
			pending = append(pending, sig)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (s *MemoryStore) MarkProcessed(_ context.Context, id uuid.UUID, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.signals {
		if s.signals[i].ID == id && s.signals[i].ProcessedAt == nil {
			at := processedAt
			s.signals[i].ProcessedAt = &at
		}
	}
	return nil
}
