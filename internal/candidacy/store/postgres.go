// Package store persists the append-only candidacy event history and the
// outbox rows that feed the outbound stream.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"dialogmotekandidat/internal/candidacy/models"
	"dialogmotekandidat/internal/platform/database"
	"dialogmotekandidat/pkg/domain"
	"dialogmotekandidat/pkg/platform/sentinel"
)

// PostgresStore persists candidacy events in PostgreSQL. The bigserial seq
// column orders events inserted in the same instant, so the derived-state
// fold is deterministic.
type PostgresStore struct {
	db database.Queryer
}

// NewPostgres constructs a PostgreSQL-backed event store.
func NewPostgres(db database.Queryer) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts one event. Events are never updated or deleted except by
// the identity merge, which only rewrites ownership.
func (s *PostgresStore) Append(ctx context.Context, event models.Event) error {
	query := `
		INSERT INTO dialogmotekandidat_endring (id, created_at, personident, kandidat, reason_kind, reason_detail, window_start)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := database.QueryerFrom(ctx, s.db).Exec(ctx, query,
		event.ID,
		event.CreatedAt,
		event.Personident.String(),
		event.IsCandidate,
		string(event.Kind),
		event.Detail,
		event.WindowStart,
	)
	if err != nil {
		return fmt.Errorf("insert candidacy event: %w", err)
	}
	return nil
}

const eventColumns = `id, created_at, personident, kandidat, reason_kind, reason_detail, window_start`

// ListByPersonident returns the person's full history, oldest first.
func (s *PostgresStore) ListByPersonident(ctx context.Context, personident domain.Personident) ([]models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM dialogmotekandidat_endring
		WHERE personident = $1
		ORDER BY created_at ASC, seq ASC
	`
	rows, err := database.QueryerFrom(ctx, s.db).Query(ctx, query, personident.String())
	if err != nil {
		return nil, fmt.Errorf("list candidacy events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// LatestByPersonident returns the newest event, or sentinel.ErrNotFound for
// an empty history.
func (s *PostgresStore) LatestByPersonident(ctx context.Context, personident domain.Personident) (models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM dialogmotekandidat_endring
		WHERE personident = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`
	row := database.QueryerFrom(ctx, s.db).QueryRow(ctx, query, personident.String())
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Event{}, sentinel.ErrNotFound
		}
		return models.Event{}, fmt.Errorf("get latest candidacy event: %w", err)
	}
	return event, nil
}

// LatestByPersonidentForUpdate is LatestByPersonident with the returned row
// locked until the enclosing transaction ends. Callers deciding on the
// latest event and appending in the same transaction use this form so the
// two cannot be separated by a concurrent append.
func (s *PostgresStore) LatestByPersonidentForUpdate(ctx context.Context, personident domain.Personident) (models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM dialogmotekandidat_endring
		WHERE personident = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
		FOR UPDATE
	`
	row := database.QueryerFrom(ctx, s.db).QueryRow(ctx, query, personident.String())
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Event{}, sentinel.ErrNotFound
		}
		return models.Event{}, fmt.Errorf("lock latest candidacy event: %w", err)
	}
	return event, nil
}

// ListOutdatedCandidates returns, per person, the latest event where that
// event still says candidate and predates the cutoff. These are the stale
// candidacies the cleanup sweep closes.
func (s *PostgresStore) ListOutdatedCandidates(ctx context.Context, cutoff time.Time) ([]models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM (
			SELECT ` + eventColumns + `,
			       ROW_NUMBER() OVER (PARTITION BY personident ORDER BY created_at DESC, seq DESC) AS rn
			FROM dialogmotekandidat_endring
		) latest
		WHERE rn = 1 AND kandidat AND created_at < $1
	`
	rows, err := database.QueryerFrom(ctx, s.db).Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list outdated candidates: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// UpdatePersonident rewrites ownership for the identity merge.
func (s *PostgresStore) UpdatePersonident(ctx context.Context, inactive []domain.Personident, active domain.Personident) (int64, error) {
	tag, err := database.QueryerFrom(ctx, s.db).Exec(ctx,
		`UPDATE dialogmotekandidat_endring SET personident = $1 WHERE personident = ANY($2)`,
		active.String(), identStrings(inactive),
	)
	if err != nil {
		return 0, fmt.Errorf("update candidacy event personident: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountForPersonidents counts rows owned by any of the identifiers.
func (s *PostgresStore) CountForPersonidents(ctx context.Context, idents []domain.Personident) (int64, error) {
	var count int64
	err := database.QueryerFrom(ctx, s.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM dialogmotekandidat_endring WHERE personident = ANY($1)`,
		identStrings(idents),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count candidacy events: %w", err)
	}
	return count, nil
}

func scanEvents(rows pgx.Rows) ([]models.Event, error) {
	var events []models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidacy event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidacy events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (models.Event, error) {
	var event models.Event
	var ident, kind string
	if err := row.Scan(&event.ID, &event.CreatedAt, &ident, &event.IsCandidate, &kind, &event.Detail, &event.WindowStart); err != nil {
		return models.Event{}, err
	}
	event.Personident = domain.Personident(ident)
	event.Kind = models.ReasonKind(kind)
	return event, nil
}

func identStrings(idents []domain.Personident) []string {
	out := make([]string, len(idents))
	for i, ident := range idents {
		out[i] = ident.String()
	}
	return out
}
