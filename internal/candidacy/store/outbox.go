package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/internal/candidacy/models"
	"dialogmotekandidat/internal/platform/database"
	"dialogmotekandidat/pkg/domain"
)

// OutboxEntry is one unpublished candidacy change. The row is written in the
// same transaction as its event; the relay drains it afterwards, giving
// at-least-once delivery without a commit-then-publish gap.
type OutboxEntry struct {
	ID          uuid.UUID
	EventID     uuid.UUID
	Personident domain.Personident
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// outboxPayload is the JSON record published to the candidacy topic.
// Downstream consumers dedupe on UUID.
type outboxPayload struct {
	UUID          string  `json:"uuid"`
	CreatedAt     string  `json:"createdAt"`
	Personident   string  `json:"personident"`
	Kandidat      bool    `json:"kandidat"`
	Arsak         string  `json:"arsak"`
	ArsakDetalj   string  `json:"arsakDetalj,omitempty"`
	TilfelleStart *string `json:"tilfelleStart,omitempty"`
}

// PostgresOutbox persists outbox entries.
type PostgresOutbox struct {
	db database.Queryer
}

func NewPostgresOutbox(db database.Queryer) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

// Append serializes the event and inserts its outbox row. Must run inside
// the same transaction as the event insert.
func (s *PostgresOutbox) Append(ctx context.Context, event models.Event) error {
	payload, err := marshalOutboxPayload(event)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO kandidat_endring_outbox (id, event_id, personident, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = database.QueryerFrom(ctx, s.db).Exec(ctx, query,
		uuid.New(), event.ID, event.Personident.String(), payload, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListUnpublished returns unpublished entries oldest first. Per-person
// ordering on the stream follows from this order plus single-partition keys.
func (s *PostgresOutbox) ListUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, event_id, personident, payload, created_at, published_at
		FROM kandidat_endring_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC, seq ASC
		LIMIT $1
	`
	rows, err := database.QueryerFrom(ctx, s.db).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		var ident string
		if err := rows.Scan(&entry.ID, &entry.EventID, &ident, &entry.Payload, &entry.CreatedAt, &entry.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entry.Personident = domain.Personident(ident)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkPublished records successful delivery of one entry.
func (s *PostgresOutbox) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	query := `UPDATE kandidat_endring_outbox SET published_at = $2 WHERE id = $1 AND published_at IS NULL`
	_, err := database.QueryerFrom(ctx, s.db).Exec(ctx, query, id, publishedAt)
	if err != nil {
		return fmt.Errorf("mark outbox entry published: %w", err)
	}
	return nil
}

func marshalOutboxPayload(event models.Event) ([]byte, error) {
	payload := outboxPayload{
		UUID:        event.ID.String(),
		CreatedAt:   event.CreatedAt.Format(time.RFC3339Nano),
		Personident: event.Personident.String(),
		Kandidat:    event.IsCandidate,
		Arsak:       string(event.Kind),
		ArsakDetalj: event.Detail,
	}
	if event.WindowStart != nil {
		start := event.WindowStart.Format("2006-01-02")
		payload.TilfelleStart = &start
	}
	bytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}
	return bytes, nil
}
