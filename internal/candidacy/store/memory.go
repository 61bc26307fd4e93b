package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/internal/candidacy/models"
	"dialogmotekandidat/pkg/domain"
	"dialogmotekandidat/pkg/platform/sentinel"
)

// MemoryStore is the in-memory event store used by service and handler tests.
// Insertion order stands in for the seq column.
type MemoryStore struct {
	mu     sync.Mutex
	events []models.Event
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByPersonident(_ context.Context, personident domain.Personident) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, event := range s.events {
		if event.Personident == personident {
			out = append(out, event)
		}
	}
	sortStable(out)
	return out, nil
}

func (s *MemoryStore) LatestByPersonident(ctx context.Context, personident domain.Personident) (models.Event, error) {
	events, _ := s.ListByPersonident(ctx, personident)
	if len(events) == 0 {
		return models.Event{}, sentinel.ErrNotFound
	}
	return events[len(events)-1], nil
}

func (s *MemoryStore) LatestByPersonidentForUpdate(ctx context.Context, personident domain.Personident) (models.Event, error) {
	return s.LatestByPersonident(ctx, personident)
}

func (s *MemoryStore) ListOutdatedCandidates(_ context.Context, cutoff time.Time) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := make(map[domain.Personident]models.Event)
	for _, event := range s.events {
		current, ok := latest[event.Personident]
		if !ok || !event.CreatedAt.Before(current.CreatedAt) {
			latest[event.Personident] = event
		}
	}
	var out []models.Event
	for _, event := range latest {
		if event.IsCandidate && event.CreatedAt.Before(cutoff) {
			out = append(out, event)
		}
	}
	sortStable(out)
	return out, nil
}

func (s *MemoryStore) UpdatePersonident(_ context.Context, inactive []domain.Personident, active domain.Personident) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for i := range s.events {
		for _, ident := range inactive {
			if s.events[i].Personident == ident {
				s.events[i].Personident = active
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
	for _, event := range s.events {
		for _, ident := range idents {
			if event.Personident == ident {
				count++
				break
			}
		}
	}
	return count, nil
}

func sortStable(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
}

// MemoryOutbox collects outbox entries in memory.
type MemoryOutbox struct {
	mu      sync.Mutex
	entries []OutboxEntry
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{}
}

func (s *MemoryOutbox) Append(_ context.Context, event models.Event) error {
	payload, err := marshalOutboxPayload(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, OutboxEntry{
		ID:          uuid.New(),
		EventID:     event.ID,
		Personident: event.Personident,
		Payload:     payload,
		CreatedAt:   event.CreatedAt,
	})
	return nil
}

func (s *MemoryOutbox) ListUnpublished(_ context.Context, limit int) ([]OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OutboxEntry
	for _, entry := range s.entries {
		if entry.PublishedAt == nil {
			out = append(out, entry)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryOutbox) MarkPublished(_ context.Context, id uuid.UUID, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id && s.entries[i].PublishedAt == nil {
			at := publishedAt
			s.entries[i].PublishedAt = &at
		}
	}
	return nil
}

// All returns every entry; test helper.
func (s *MemoryOutbox) All() []OutboxEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OutboxEntry(nil), s.entries...)
}
