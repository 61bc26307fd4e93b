// Package store persists timeline signals: per-person dirty flags written by
// the timeline-fact consumer and drained by the scheduling sweep. No window
// data lives here; windows are always re-fetched from the case service.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dialogmotekandidat/internal/platform/database"
	"dialogmotekandidat/pkg/domain"
)

// Signal marks a person whose timeline changed and awaits a scheduling pass.
type Signal struct {
	ID          uuid.UUID
	Personident domain.Personident
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}

// PostgresStore persists signals in PostgreSQL.
type PostgresStore struct {
	db database.Queryer
}

// NewPostgres constructs a PostgreSQL-backed signal store.
func NewPostgres(db database.Queryer) *PostgresStore {
	return &PostgresStore{db: db}
}

// Record registers a pending signal for the person. At most one open signal
// exists per person (partial unique index); redelivered facts collapse into
// it, which keeps the consumer idempotent.
func (s *PostgresStore) Record(ctx context.Context, personident domain.Personident, receivedAt time.Time) error {
	query := `
		INSERT INTO timeline_signal (id, personident, received_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (personident) WHERE processed_at IS NULL DO NOTHING
	`
	_, err := database.QueryerFrom(ctx, s.db).Exec(ctx, query, uuid.New(), personident.String(), receivedAt)
	if err != nil {
		return fmt.Errorf("record timeline signal: %w", err)
	}
	return nil
}

// ListPending returns open signals oldest first, capped at limit.
func (s *PostgresStore) ListPending(ctx context.Context, limit int) ([]Signal, error) {
	query := `
		SELECT id, personident, received_at, processed_at
		FROM timeline_signal
		WHERE processed_at IS NULL
		ORDER BY received_at ASC
		LIMIT $1
	`
	rows, err := database.QueryerFrom(ctx, s.db).Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending timeline signals: %w", err)
	}
	defer rows.Close()

	var signals []Signal
	for rows.Next() {
		var sig Signal
		var ident string
		if err := rows.Scan(&sig.ID, &ident, &sig.ReceivedAt, &sig.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan timeline signal: %w", err)
		}
		sig.Personident = domain.Personident(ident)
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline signals: %w", err)
	}
	return signals, nil
}

// MarkProcessed closes a signal after the scheduling pass succeeded.
func (s *PostgresStore) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	query := `UPDATE timeline_signal SET processed_at = $2 WHERE id = $1 AND processed_at IS NULL`
	if _, err := database.QueryerFrom(ctx, s.db).Exec(ctx, query, id, processedAt); err != nil {
		return fmt.Errorf("mark timeline signal processed: %w", err)
	}
	return nil
}
