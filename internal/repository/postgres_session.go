package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/database"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// PostgresSessionStore implements SessionStore for PostgreSQL
type PostgresSessionStore struct {
	db *database.DB
}

// NewPostgresSessionStore creates a new session store
func NewPostgresSessionStore(db *database.DB) SessionStore {
	return &PostgresSessionStore{db: db}
}

// CreateSession inserts a new search session in RUNNING state
func (s *PostgresSessionStore) CreateSession(ctx context.Context, session *models.SearchSession) error {
	query := `
		INSERT INTO search_sessions (session_id, date_from, date_to, n_trials,
		                             initial_bankroll, random_seed, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Pool().Exec(ctx, query,
		session.ID, session.DateFrom, session.DateTo, session.RequestedTrials,
		session.InitialBankroll, session.RandomSeed, session.Status, session.StartedAt,
	)
	if isUniqueViolation(err) {
		return models.ErrSessionExists
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID
func (s *PostgresSessionStore) GetSession(ctx context.Context, sessionID string) (*models.SearchSession, error) {
	query := `
		SELECT session_id, date_from, date_to, n_trials, initial_bankroll, random_seed,
		       status, COALESCE(best_trial_id, ''), started_at, completed_at,
		       COALESCE(total_elapsed_seconds, 0)
		FROM search_sessions WHERE session_id = $1
	`

	session := &models.SearchSession{}
	var elapsedSeconds float64
	err := s.db.Pool().QueryRow(ctx, query, sessionID).Scan(
		&session.ID, &session.DateFrom, &session.DateTo, &session.RequestedTrials,
		&session.InitialBankroll, &session.RandomSeed, &session.Status,
		&session.BestTrialID, &session.StartedAt, &session.CompletedAt, &elapsedSeconds,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	session.Elapsed = time.Duration(elapsedSeconds * float64(time.Second))

	return session, nil
}

// UpdateSession updates a session's status, best trial and timing fields
func (s *PostgresSessionStore) UpdateSession(ctx context.Context, session *models.SearchSession) error {
	query := `
		UPDATE search_sessions
		SET status = $2, best_trial_id = $3, completed_at = $4, total_elapsed_seconds = $5
		WHERE session_id = $1
	`

	tag, err := s.db.Pool().Exec(ctx, query,
		session.ID, session.Status, session.BestTrialID,
		session.CompletedAt, session.Elapsed.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ListSessions retrieves all sessions, most recently started first
func (s *PostgresSessionStore) ListSessions(ctx context.Context) ([]*models.SearchSession, error) {
	query := `
		SELECT session_id, date_from, date_to, n_trials, initial_bankroll, random_seed,
		       status, COALESCE(best_trial_id, ''), started_at, completed_at,
		       COALESCE(total_elapsed_seconds, 0)
		FROM search_sessions
		ORDER BY started_at DESC
	`

	rows, err := s.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.SearchSession
	for rows.Next() {
		session := &models.SearchSession{}
		var elapsedSeconds float64
		err := rows.Scan(
			&session.ID, &session.DateFrom, &session.DateTo, &session.RequestedTrials,
			&session.InitialBankroll, &session.RandomSeed, &session.Status,
			&session.BestTrialID, &session.StartedAt, &session.CompletedAt, &elapsedSeconds,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session.Elapsed = time.Duration(elapsedSeconds * float64(time.Second))
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
