// Package repository persists search sessions and trial results.
package repository

import (
	"context"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// SessionStore defines the interface for search session persistence
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.SearchSession) error
	GetSession(ctx context.Context, sessionID string) (*models.SearchSession, error)
	UpdateSession(ctx context.Context, session *models.SearchSession) error
	ListSessions(ctx context.Context) ([]*models.SearchSession, error)
}

// TrialStore defines the interface for trial result persistence. Trial
// writes are append-only; a trial id is never re-written.
type TrialStore interface {
	SaveTrial(ctx context.Context, sessionID string, result *models.TrialResult) error
	GetTrials(ctx context.Context, sessionID string) ([]*models.TrialResult, error)
	CompletedCount(ctx context.Context, sessionID string) (int, error)
	TopTrials(ctx context.Context, sessionID string, limit int) ([]*models.TrialResult, error)
	MedianScore(ctx context.Context, sessionID string) (float64, error)
}

// Store bundles both persistence concerns behind one handle.
type Store interface {
	SessionStore
	TrialStore
}
