// Package store persists completed dialogue meetings. Only FERDIGSTILT
// status changes reach this table; the candidacy evaluator consults it to
// suppress confirmations after a meeting was already held in the window.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"dialogmotekandidat/internal/meeting/models"
	"dialogmotekandidat/internal/platform/database"
	"dialogmotekandidat/pkg/domain"
)

type PostgresStore struct {
	db database.Queryer
}

func NewPostgres(db database.Queryer) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create records a completed meeting. Redelivered status facts carry the
// same meeting id and collapse into the existing row.
func (s *PostgresStore) Create(ctx context.Context, meeting models.CompletedMeeting) error {
	query := `
		INSERT INTO dialogmote_ferdigstilt (id, created_at, meeting_id, personident, meeting_time, completed_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (meeting_id) DO NOTHING
	`
	_, err := database.QueryerFrom(ctx, s.db).Exec(ctx, query,
		meeting.ID, meeting.CreatedAt, meeting.MeetingID, meeting.Personident.String(),
		meeting.MeetingTime, meeting.CompletedTime)
	if err != nil {
		return fmt.Errorf("insert completed meeting: %w", err)
	}
	return nil
}

// LatestCompletedTime returns when the person's most recent meeting was
// completed, or nil when none is on record.
func (s *PostgresStore) LatestCompletedTime(ctx context.Context, personident domain.Personident) (*time.Time, error) {
	query := `
		SELECT completed_time
		FROM dialogmote_ferdigstilt
		WHERE personident = $1
		ORDER BY completed_time DESC
		LIMIT 1
	`
	var completed time.Time
	err := database.QueryerFrom(ctx, s.db).QueryRow(ctx, query, personident.String()).Scan(&completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest completed meeting: %w", err)
	}
	return &completed, nil
}

// UpdatePersonident repoints rows from the inactive identifiers to the
// active one and returns the number moved. Runs inside the merge transaction.
func (s *PostgresStore) UpdatePersonident(ctx context.Context, inactive []domain.Personident, active domain.Personident) (int64, error) {
	idents := make([]string, 0, len(inactive))
	for _, p := range inactive {
		idents = append(idents, p.String())
	}
	query := `UPDATE dialogmote_ferdigstilt SET personident = $2 WHERE personident = ANY($1)`
	tag, err := database.QueryerFrom(ctx, s.db).Exec(ctx, query, idents, active.String())
	if err != nil {
		return 0, fmt.Errorf("update meeting personident: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountForPersonidents counts meeting rows across the given identifiers.
func (s *PostgresStore) CountForPersonidents(ctx context.Context, personidents []domain.Personident) (int64, error) {
	idents := make([]string, 0, len(personidents))
	for _, p := range personidents {
		idents = append(idents, p.String())
	}
	query := `SELECT COUNT(*) FROM dialogmote_ferdigstilt WHERE personident = ANY($1)`
	var count int64
	if err := database.QueryerFrom(ctx, s.db).QueryRow(ctx, query, idents).Scan(&count); err != nil {
		return 0, fmt.Errorf("count meetings: %w", err)
	}
	return count, nil
}
