package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/database"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// PostgresTrialStore implements TrialStore for PostgreSQL
type PostgresTrialStore struct {
	db *database.DB
}

// NewPostgresTrialStore creates a new trial store
func NewPostgresTrialStore(db *database.DB) TrialStore {
	return &PostgresTrialStore{db: db}
}

const trialColumns = `
	trial_id, session_id, train_window_months, ev_threshold, regularization,
	target_rank, calibration_method, staking_method, wf_n_windows,
	max_bets_per_event, factor_selection, wf_avg_test_roi, wf_avg_train_roi,
	wf_overfitting_ratio, total_bets, roi, sharpe_ratio, max_drawdown,
	win_rate, profit_factor, calmar_ratio, edge, mc_roi_5th, mc_roi_95th,
	mc_ruin_probability, composite_score, n_factors_used, elapsed_seconds, error`

// SaveTrial appends a trial result. Trial rows are never updated.
func (s *PostgresTrialStore) SaveTrial(ctx context.Context, sessionID string, result *models.TrialResult) error {
	query := `
		INSERT INTO search_trials (` + trialColumns + `, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30)
	`

	c := result.Config
	_, err := s.db.Pool().Exec(ctx, query,
		c.TrialID, sessionID, c.TrainWindowMonths, c.EVThreshold, c.Regularization,
		c.TargetRank, c.CalibrationMethod, c.StakingMethod, c.WFNumWindows,
		c.MaxBetsPerEvent, c.FactorSelection, result.WFAvgTestROI, result.WFAvgTrainROI,
		result.WFOverfittingRatio, result.TotalBets, result.ROI, result.SharpeRatio,
		result.MaxDrawdown, result.WinRate, result.ProfitFactor, result.CalmarRatio,
		result.Edge, result.MCROI5th, result.MCROI95th, result.MCRuinProbability,
		result.CompositeScore, result.FactorsUsed, result.Elapsed.Seconds(), result.Error,
		time.Now().UTC(),
	)
	if isUniqueViolation(err) {
		return models.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to save trial: %w", err)
	}

	return nil
}

// GetTrials retrieves a session's trials in completion order
func (s *PostgresTrialStore) GetTrials(ctx context.Context, sessionID string) ([]*models.TrialResult, error) {
	query := `SELECT ` + trialColumns + ` FROM search_trials WHERE session_id = $1 ORDER BY completed_at`
	return s.queryTrials(ctx, query, sessionID)
}

// CompletedCount counts persisted trials for a session, failed ones included
func (s *PostgresTrialStore) CompletedCount(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.Pool().QueryRow(ctx,
		"SELECT COUNT(*) FROM search_trials WHERE session_id = $1", sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trials: %w", err)
	}
	return count, nil
}

// TopTrials retrieves the highest-scoring non-failed trials
func (s *PostgresTrialStore) TopTrials(ctx context.Context, sessionID string, limit int) ([]*models.TrialResult, error) {
	query := `
		SELECT ` + trialColumns + `
		FROM search_trials
		WHERE session_id = $1 AND error = ''
		ORDER BY composite_score DESC
		LIMIT $2
	`
	return s.queryTrials(ctx, query, sessionID, limit)
}

// MedianScore returns the median composite score over non-failed trials
func (s *PostgresTrialStore) MedianScore(ctx context.Context, sessionID string) (float64, error) {
	var median *float64
	err := s.db.Pool().QueryRow(ctx, `
		SELECT percentile_cont(0.5) WITHIN GROUP (ORDER BY composite_score)
		FROM search_trials
		WHERE session_id = $1 AND error = ''
	`, sessionID).Scan(&median)
	if err != nil {
		return 0, fmt.Errorf("failed to compute median score: %w", err)
	}
	if median == nil {
		return 0, nil
	}
	return *median, nil
}

func (s *PostgresTrialStore) queryTrials(ctx context.Context, query string, args ...any) ([]*models.TrialResult, error) {
	rows, err := s.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trials: %w", err)
	}
	defer rows.Close()

	var trials []*models.TrialResult
	for rows.Next() {
		trial, err := scanTrial(rows)
		if err != nil {
			return nil, err
		}
		trials = append(trials, trial)
	}

	return trials, rows.Err()
}

func scanTrial(row pgx.Row) (*models.TrialResult, error) {
	result := &models.TrialResult{}
	c := &result.Config
	var sessionID string
	var elapsedSeconds float64
	err := row.Scan(
		&c.TrialID, &sessionID, &c.TrainWindowMonths, &c.EVThreshold, &c.Regularization,
		&c.TargetRank, &c.CalibrationMethod, &c.StakingMethod, &c.WFNumWindows,
		&c.MaxBetsPerEvent, &c.FactorSelection, &result.WFAvgTestROI, &result.WFAvgTrainROI,
		&result.WFOverfittingRatio, &result.TotalBets, &result.ROI, &result.SharpeRatio,
		&result.MaxDrawdown, &result.WinRate, &result.ProfitFactor, &result.CalmarRatio,
		&result.Edge, &result.MCROI5th, &result.MCROI95th, &result.MCRuinProbability,
		&result.CompositeScore, &result.FactorsUsed, &elapsedSeconds, &result.Error,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan trial: %w", err)
	}
	result.Elapsed = time.Duration(elapsedSeconds * float64(time.Second))
	return result, nil
}
