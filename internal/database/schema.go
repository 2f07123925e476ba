package database

import (
	"context"
	"fmt"
)

// searchSchemaDDL creates the tables the search engine writes to. Event and
// rule tables are owned by the ingestion pipeline and are not created here.
var searchSchemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS search_sessions (
		session_id TEXT PRIMARY KEY,
		date_from DATE NOT NULL,
		date_to DATE NOT NULL,
		n_trials INTEGER NOT NULL,
		initial_bankroll BIGINT NOT NULL,
		random_seed BIGINT,
		status TEXT NOT NULL DEFAULT 'RUNNING',
		best_trial_id TEXT,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		total_elapsed_seconds DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS search_trials (
		trial_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES search_sessions(session_id),
		train_window_months INTEGER,
		ev_threshold DOUBLE PRECISION,
		regularization DOUBLE PRECISION,
		target_rank INTEGER,
		calibration_method TEXT,
		staking_method TEXT,
		wf_n_windows INTEGER,
		max_bets_per_event INTEGER,
		factor_selection TEXT,
		wf_avg_test_roi DOUBLE PRECISION,
		wf_avg_train_roi DOUBLE PRECISION,
		wf_overfitting_ratio DOUBLE PRECISION,
		total_bets INTEGER,
		roi DOUBLE PRECISION,
		sharpe_ratio DOUBLE PRECISION,
		max_drawdown DOUBLE PRECISION,
		win_rate DOUBLE PRECISION,
		profit_factor DOUBLE PRECISION,
		calmar_ratio DOUBLE PRECISION,
		edge DOUBLE PRECISION,
		mc_roi_5th DOUBLE PRECISION,
		mc_roi_95th DOUBLE PRECISION,
		mc_ruin_probability DOUBLE PRECISION,
		composite_score DOUBLE PRECISION,
		n_factors_used INTEGER,
		elapsed_seconds DOUBLE PRECISION,
		error TEXT NOT NULL DEFAULT '',
		completed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_search_trials_session ON search_trials(session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_search_trials_score ON search_trials(composite_score DESC)`,
}

// InitSchema creates the search result tables when they do not exist yet.
func (db *DB) InitSchema(ctx context.Context) error {
	for _, ddl := range searchSchemaDDL {
		if _, err := db.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to apply search schema: %w", err)
		}
	}
	return nil
}
