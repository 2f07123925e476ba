package repository

import (
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/database"
)

// PostgresStore bundles the session and trial stores over one pool.
type PostgresStore struct {
	SessionStore
	TrialStore
}

// NewPostgresStore creates the combined store.
func NewPostgresStore(db *database.DB) Store {
	return &PostgresStore{
		SessionStore: NewPostgresSessionStore(db),
		TrialStore:   NewPostgresTrialStore(db),
	}
}
