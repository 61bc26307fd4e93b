// Package store persists candidacy checkpoints.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"dialogmotekandidat/internal/checkpoint/models"
	"dialogmotekandidat/internal/platform/database"
	"dialogmotekandidat/pkg/domain"
	"dialogmotekandidat/pkg/platform/sentinel"
)

const uniqueViolationCode = "23505"

// PostgresStore persists checkpoints in PostgreSQL.
type PostgresStore struct {
	db database.Queryer
}

// NewPostgres constructs a PostgreSQL-backed checkpoint store.
func NewPostgres(db database.Queryer) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a Planned checkpoint. The partial unique index on
// (personident, window_start) WHERE status = 'PLANNED' backstops concurrent
// schedulers; a duplicate surfaces as sentinel.ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, checkpoint models.Checkpoint) error {
	query := `
		INSERT INTO dialogmotekandidat_stoppunkt (id, created_at, personident, status, due_date, window_start)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := database.QueryerFrom(ctx, s.db).Exec(ctx, query,
		checkpoint.ID,
		checkpoint.CreatedAt,
		checkpoint.Personident.String(),
		string(checkpoint.Status),
		checkpoint.DueDate,
		checkpoint.WindowStart,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

// HasPlanned reports whether an outstanding checkpoint exists for the window.
func (s *PostgresStore) HasPlanned(ctx context.Context, personident domain.Personident, windowStart time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM dialogmotekandidat_stoppunkt
			WHERE personident = $1 AND window_start = $2 AND status = $3
		)
	`
	var exists bool
	err := database.QueryerFrom(ctx, s.db).QueryRow(ctx, query,
		personident.String(), windowStart, string(models.StatusPlanned),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check planned checkpoint: %w", err)
	}
	return exists, nil
}

// ListDue returns Planned checkpoints whose due date has arrived, oldest
// first so long-waiting persons are evaluated before fresh ones.
func (s *PostgresStore) ListDue(ctx context.Context, today time.Time) ([]models.Checkpoint, error) {
	query := `
		SELECT id, created_at, personident, processed_at, status, due_date, window_start
		FROM dialogmotekandidat_stoppunkt
		WHERE status = $1 AND due_date <= $2
		ORDER BY due_date ASC, created_at ASC
	`
	rows, err := database.QueryerFrom(ctx, s.db).Query(ctx, query, string(models.StatusPlanned), today)
	if err != nil {
		return nil, fmt.Errorf("list due checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []models.Checkpoint
	for rows.Next() {
		var cp models.Checkpoint
		var ident, status string
		if err := rows.Scan(&cp.ID, &cp.CreatedAt, &ident, &cp.ProcessedAt, &status, &cp.DueDate, &cp.WindowStart); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cp.Personident = domain.Personident(ident)
		cp.Status = models.Status(status)
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return checkpoints, nil
}

// Finish moves a Planned checkpoint to its terminal status. The compare-and-
// set on processed_at is the exactly-once guard for event emission: losing
// the race returns sentinel.ErrAlreadyProcessed and the caller must not emit.
func (s *PostgresStore) Finish(ctx context.Context, id uuid.UUID, status models.Status, processedAt time.Time) error {
	query := `
		UPDATE dialogmotekandidat_stoppunkt
		SET status = $2, processed_at = $3
		WHERE id = $1 AND processed_at IS NULL
	`
	tag, err := database.QueryerFrom(ctx, s.db).Exec(ctx, query, id, string(status), processedAt)
	if err != nil {
		return fmt.Errorf("finish checkpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrAlreadyProcessed
	}
	return nil
}

// UpdatePersonident rewrites ownership of all rows under the inactive
// identifiers. Used only by the identity merge, inside its transaction.
func (s *PostgresStore) UpdatePersonident(ctx context.Context, inactive []domain.Personident, active domain.Personident) (int64, error) {
	tag, err := database.QueryerFrom(ctx, s.db).Exec(ctx,
		`UPDATE dialogmotekandidat_stoppunkt SET personident = $1 WHERE personident = ANY($2)`,
		active.String(), identStrings(inactive),
	)
	if err != nil {
		return 0, fmt.Errorf("update checkpoint personident: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountForPersonidents counts rows owned by any of the identifiers.
func (s *PostgresStore) CountForPersonidents(ctx context.Context, idents []domain.Personident) (int64, error) {
	var count int64
	err := database.QueryerFrom(ctx, s.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM dialogmotekandidat_stoppunkt WHERE personident = ANY($1)`,
		identStrings(idents),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count checkpoints: %w", err)
	}
	return count, nil
}

func identStrings(idents []domain.Personident) []string {
	out := make([]string, len(idents))
	for i, ident := range idents {
		out[i] = ident.String()
	}
	return out
}
