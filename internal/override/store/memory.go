package store

import (
	"context"
	"sort"
	"sync"

	"dialogmotekandidat/internal/override/models"
	"dialogmotekandidat/pkg/domain"
)

// MemoryExceptionStore is the in-memory exception store used by service tests.
type MemoryExceptionStore struct {
	mu         sync.Mutex
	exceptions []models.Exception
}

func NewMemoryExceptions() *MemoryExceptionStore {
	return &MemoryExceptionStore{}
}

func (s *MemoryExceptionStore) Create(_ context.Context, exception models.Exception) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exceptions = append(s.exceptions, exception)
	return nil
}

func (s *MemoryExceptionStore) ListByPersonident(_ context.Context, personident domain.Personident) ([]models.Exception, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Exception
	for _, e := range s.exceptions {
		if e.Personident == personident {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryExceptionStore) UpdatePersonident(_ context.Context, inactive []domain.Personident, active domain.Personident) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for i, e := range s.exceptions {
		for _, ident := range inactive {
			if e.Personident == ident {
				s.exceptions[i].Personident = active
				updated++
				break
			}
		}
	}
	return updated, nil
}

func (s *MemoryExceptionStore) CountForPersonidents(_ context.Context, idents []domain.Personident) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, e := range s.exceptions {
		for _, ident := range idents {
			if e.Personident == ident {
				count++
				break
			}
		}
	}
	return count, nil
}

// All returns every stored exception; test helper.
func (s *MemoryExceptionStore) All() []models.Exception {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Exception, len(s.exceptions))
	copy(out, s.exceptions)
	return out
}

// MemoryClosureStore is the in-memory closure store used by service tests.
type MemoryClosureStore struct {
	mu       sync.Mutex
	closures []models.NotApplicableClosure
}

func NewMemoryClosures() *MemoryClosureStore {
	return &MemoryClosureStore{}
}

func (s *MemoryClosureStore) Create(_ context.Context, closure models.NotApplicableClosure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closures = append(s.closures, closure)
	return nil
}

func (s *MemoryClosureStore) UpdatePersonident(_ context.Context, inactive []domain.Personident, active domain.Personident) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for i, c := range s.closures {
		for _, ident := range inactive {
			if c.Personident == ident {
				s.closures[i].Personident = active
				updated++
				break
			}
		}
	}
	return updated, nil
}

func (s *MemoryClosureStore) CountForPersonidents(_ context.Context, idents []domain.Personident) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, c := range s.closures {
		for _, ident := range idents {
			if c.Personident == ident {
				count++
				break
			}
		}
	}
	return count, nil
}

// All returns every stored closure; test helper.
func (s *MemoryClosureStore) All() []models.NotApplicableClosure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.NotApplicableClosure, len(s.closures))
	copy(out, s.closures)
	return out
}
