// Package store persists case-worker overrides: exceptions and
// not-applicable closures. Override rows are the audit record; the
// candidacy effect lives in the event history written in the same
// transaction.
package store

import (
	"context"
	"fmt"

	"dialogmotekandidat/internal/override/models"
	"dialogmotekandidat/internal/platform/database"
	"dialogmotekandidat/pkg/domain"
)

type PostgresExceptionStore struct {
	db database.Queryer
}

func NewPostgresExceptions(db database.Queryer) *PostgresExceptionStore {
	return &PostgresExceptionStore{db: db}
}

func (s *PostgresExceptionStore) Create(ctx context.Context, exception models.Exception) error {
	query := `
		INSERT INTO dialogmotekandidat_unntak (id, created_at, created_by, personident, arsak, beskrivelse)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := database.QueryerFrom(ctx, s.db).Exec(ctx, query,
		exception.ID, exception.CreatedAt, exception.CreatedBy,
		exception.Personident.String(), string(exception.Reason), exception.Note)
	if err != nil {
		return fmt.Errorf("insert exception: %w", err)
	}
	return nil
}

func (s *PostgresExceptionStore) ListByPersonident(ctx context.Context, personident domain.Personident) ([]models.Exception, error) {
	query := `
		SELECT id, created_at, created_by, personident, arsak, beskrivelse
		FROM dialogmotekandidat_unntak
		WHERE personident = $1
		ORDER BY created_at ASC
	`
	rows, err := database.QueryerFrom(ctx, s.db).Query(ctx, query, personident.String())
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	defer rows.Close()

	var exceptions []models.Exception
	for rows.Next() {
		var e models.Exception
		var ident, reason string
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.CreatedBy, &ident, &reason, &e.Note); err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		e.Personident = domain.Personident(ident)
		e.Reason = models.ExceptionReason(reason)
		exceptions = append(exceptions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exceptions: %w", err)
	}
	return exceptions, nil
}

func (s *PostgresExceptionStore) UpdatePersonident(ctx context.Context, inactive []domain.Personident, active domain.Personident) (int64, error) {
	idents := make([]string, 0, len(inactive))
	for _, p := range inactive {
		idents = append(idents, p.String())
	}
	query := `UPDATE dialogmotekandidat_unntak SET personident = $2 WHERE personident = ANY($1)`
	tag, err := database.QueryerFrom(ctx, s.db).Exec(ctx, query, idents, active.String())
	if err != nil {
		return 0, fmt.Errorf("update exception personident: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresExceptionStore) CountForPersonidents(ctx context.Context, personidents []domain.Personident) (int64, error) {
	idents := make([]string, 0, len(personidents))
	for _, p := range personidents {
		idents = append(idents, p.String())
	}
	query := `SELECT COUNT(*) FROM dialogmotekandidat_unntak WHERE personident = ANY($1)`
	var count int64
	if err := database.QueryerFrom(ctx, s.db).QueryRow(ctx, query, idents).Scan(&count); err != nil {
		return 0, fmt.Errorf("count exceptions: %w", err)
	}
	return count, nil
}

type PostgresClosureStore struct {
	db database.Queryer
}

func NewPostgresClosures(db database.Queryer) *PostgresClosureStore {
	return &PostgresClosureStore{db: db}
}

func (s *PostgresClosureStore) Create(ctx context.Context, closure models.NotApplicableClosure) error {
	query := `
		INSERT INTO dialogmotekandidat_ikke_aktuell (id, created_at, created_by, personident, arsak, beskrivelse)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := database.QueryerFrom(ctx, s.db).Exec(ctx, query,
		closure.ID, closure.CreatedAt, closure.CreatedBy,
		closure.Personident.String(), string(closure.Reason), closure.Note)
	if err != nil {
		return fmt.Errorf("insert not-applicable closure: %w", err)
	}
	return nil
}

func (s *PostgresClosureStore) UpdatePersonident(ctx context.Context, inactive []domain.Personident, active domain.Personident) (int64, error) {
	idents := make([]string, 0, len(inactive))
	for _, p := range inactive {
		idents = append(idents, p.String())
	}
	query := `UPDATE dialogmotekandidat_ikke_aktuell SET personident = $2 WHERE personident = ANY($1)`
	tag, err := database.QueryerFrom(ctx, s.db).Exec(ctx, query, idents, active.String())
	if err != nil {
		return 0, fmt.Errorf("update closure personident: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresClosureStore) CountForPersonidents(ctx context.Context, personidents []domain.Personident) (int64, error) {
	idents := make([]string, 0, len(personidents))
	for _, p := range personidents {
		idents = append(idents, p.String())
	}
	query := `SELECT COUNT(*) FROM dialogmotekandidat_ikke_aktuell WHERE personident = ANY($1)`
	var count int64
	if err := database.QueryerFrom(ctx, s.db).QueryRow(ctx, query, idents).Scan(&count); err != nil {
		return 0, fmt.Errorf("count not-applicable closures: %w", err)
	}
	return count, nil
}
