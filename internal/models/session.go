package models

import (
	"time"
)

// SessionStatus is the lifecycle state of a search session
type SessionStatus string

const (
	SessionRunning   SessionStatus = "RUNNING"
	SessionCompleted SessionStatus = "COMPLETED"
)

// SearchSession owns one autonomous search run. Trials are appended per
// trial id and never re-opened after persistence.
type SearchSession struct {
	ID              string        `json:"session_id"`
	DateFrom        time.Time     `json:"date_from"`
	DateTo          time.Time     `json:"date_to"`
	RequestedTrials int           `json:"n_trials"`
	InitialBankroll int64         `json:"initial_bankroll"`
	RandomSeed      int64         `json:"random_seed"`
	Status          SessionStatus `json:"status"`
	BestTrialID     string        `json:"best_trial_id"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	Elapsed         time.Duration `json:"elapsed"`
}
