package models

import "time"

// Calibration method names accepted by TrialConfig.
const (
	CalibrationPlatt    = "platt"
	CalibrationIsotonic = "isotonic"
	CalibrationNone     = "none"
)

// Staking method names accepted by TrialConfig.
const (
	StakingQuarterKelly   = "quarter_kelly"
	StakingEqual          = "equal"
	StakingEVProportional = "ev_proportional"
)

// Factor selection policy names accepted by TrialConfig.
const (
	FactorSelectionAll      = "all"
	FactorSelectionTop10AUC = "top10_auc"
	FactorSelectionTop15AUC = "top15_auc"
	FactorSelectionCategory = "category_filtered"
)

// TrialConfig is one full hyperparameter point. Immutable once sampled.
type TrialConfig struct {
	TrialID           string  `json:"trial_id"`
	TrainWindowMonths int     `json:"train_window_months"`
	EVThreshold       float64 `json:"ev_threshold"`
	Regularization    float64 `json:"regularization"`
	TargetRank        int     `json:"target_rank"` // 1 = win, 3 = top-3 place
	CalibrationMethod string  `json:"calibration_method"`
	StakingMethod     string  `json:"staking_method"`
	WFNumWindows      int     `json:"wf_n_windows"`
	MaxBetsPerEvent   int     `json:"max_bets_per_event"`
	FactorSelection   string  `json:"factor_selection"`
}

// TrialResult carries the config plus every aggregate produced by a trial.
// A trial with a non-empty Error has undefined metric fields and is excluded
// from ranking.
type TrialResult struct {
	Config TrialConfig `json:"config"`

	// Walk-forward aggregates
	WFAvgTestROI       float64 `json:"wf_avg_test_roi"`
	WFAvgTrainROI      float64 `json:"wf_avg_train_roi"`
	WFOverfittingRatio float64 `json:"wf_overfitting_ratio"`

	// Out-of-sample metrics over all test-range bets
	TotalBets    int     `json:"total_bets"`
	ROI          float64 `json:"roi"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	CalmarRatio  float64 `json:"calmar_ratio"`
	Edge         float64 `json:"edge"`

	// Monte Carlo aggregates
	MCROI5th          float64 `json:"mc_roi_5th"`
	MCROI95th         float64 `json:"mc_roi_95th"`
	MCRuinProbability float64 `json:"mc_ruin_probability"`

	CompositeScore float64       `json:"composite_score"`
	FactorsUsed    int           `json:"n_factors_used"`
	Elapsed        time.Duration `json:"elapsed"`
	Error          string        `json:"error,omitempty"`
}

// Failed reports whether the trial ended in an error state.
func (r *TrialResult) Failed() bool {
	return r.Error != ""
}
