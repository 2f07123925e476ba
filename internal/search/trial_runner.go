package search

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/backtest"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/bankroll"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/factors"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/scoring"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/strategy"
)

// wfTrainRatio is the train share inside each walk-forward window.
const wfTrainRatio = 0.7

// mcSeed keeps Monte Carlo results comparable across trials of a session.
const mcSeed = 42

// mcMinPnLs is the smallest bet history worth bootstrapping.
const mcMinPnLs = 5

// auc floor below which a factor is considered uninformative.
const minFactorAUC = 0.50

// categoryPriority is the rule category allowlist for the
// category_filtered selection policy.
var categoryPriority = map[string]bool{
	"odds":   true,
	"speed":  true,
	"pace":   true,
	"weight": true,
	"form":   true,
}

// Params carries the session-level settings every trial shares.
type Params struct {
	SessionID          string
	DateFrom           time.Time
	DateTo             time.Time
	NTrials            int
	InitialBankroll    int64
	MCSimulations      int
	RandomSeed         int64
	EarlyStopThreshold float64 // failed-trial fraction that triggers a warning
}

// TrialRunner executes one hyperparameter configuration end to end:
// factor selection, per-window weight and calibration fitting, walk-forward
// validation, Monte Carlo simulation and the composite score. It never
// writes anything; persistence is the orchestrator's concern.
type TrialRunner struct {
	provider factors.RuleProvider
	logger   *logrus.Logger
}

// NewTrialRunner creates a trial runner over a rule registry view.
func NewTrialRunner(provider factors.RuleProvider, logger *logrus.Logger) *TrialRunner {
	if logger == nil {
		logger = logrus.New()
	}
	return &TrialRunner{provider: provider, logger: logger}
}

// Run executes one trial over preloaded events. Domain failures land in
// TrialResult.Error; only context cancellation escapes as a Go error.
func (r *TrialRunner) Run(ctx context.Context, cfg models.TrialConfig, params Params, events []*models.RaceEvent) (*models.TrialResult, error) {
	started := time.Now()
	result := &models.TrialResult{Config: cfg}

	err := r.execute(ctx, cfg, params, events, result)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.Error = err.Error()
		r.logger.WithFields(logrus.Fields{
			"trial_id": cfg.TrialID,
			"error":    result.Error,
		}).Warn("trial failed")
	}

	result.Elapsed = time.Since(started)
	return result, nil
}

func (r *TrialRunner) execute(ctx context.Context, cfg models.TrialConfig, params Params, events []*models.RaceEvent, result *models.TrialResult) error {
	if len(events) == 0 {
		return models.NewDataInsufficiencyError("no event data in range")
	}

	rules, err := r.selectFactors(ctx, cfg, params.DateTo, events)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return models.NewDataInsufficiencyError("no active factors")
	}
	result.FactorsUsed = len(rules)

	windows, err := backtest.GenerateWindows(params.DateFrom, params.DateTo, cfg.WFNumWindows, wfTrainRatio)
	if err != nil {
		return fmt.Errorf("window generation: %w", err)
	}

	factory := func(ctx context.Context, trainEvents []*models.RaceEvent) (strategy.Strategy, error) {
		return r.buildStrategy(cfg, rules, trainEvents)
	}
	engine := backtest.NewWalkForwardEngine(factory, r.logger)

	wf, err := engine.Run(ctx, events, windows, params.InitialBankroll)
	if err != nil {
		return err
	}
	if len(wf.TestBets) == 0 {
		return models.NewDataInsufficiencyError("no bets in test period")
	}

	m := wf.AggregateMetrics
	result.TotalBets = m.TotalBets
	result.ROI = m.ROI
	result.SharpeRatio = m.SharpeRatio
	result.MaxDrawdown = m.MaxDrawdown
	result.WinRate = m.WinRate
	result.ProfitFactor = m.ProfitFactor
	result.CalmarRatio = m.CalmarRatio
	result.Edge = m.Edge

	result.WFAvgTrainROI = wf.AvgTrainROI
	result.WFAvgTestROI = wf.AvgTestROI
	result.WFOverfittingRatio = overfittingRatio(wf.AvgTrainROI, wf.AvgTestROI)

	if err := r.simulate(wf.TestBets, params, result); err != nil {
		return err
	}

	result.CompositeScore = CompositeScore(result)
	return nil
}

// buildStrategy fits weights and calibration on the train events only and
// assembles the per-window value strategy.
func (r *TrialRunner) buildStrategy(cfg models.TrialConfig, rules []models.FactorRule, trainEvents []*models.RaceEvent) (strategy.Strategy, error) {
	evaluator, err := factors.NewEvaluator(rules)
	if err != nil {
		return nil, err
	}

	matrix := scoring.BuildFactorMatrix(trainEvents, rules, evaluator, cfg.TargetRank)

	// Too few positive outcomes in the train range means the fit would be
	// noise; the incoming registry weights stand.
	fitted := rules
	if weights, err := scoring.FitWeights(matrix, cfg.Regularization); err == nil {
		fitted = scoring.ApplyWeights(rules, weights)
	} else if !models.IsValidationError(err) {
		return nil, err
	}

	calibrator := scoring.NewCalibrator(cfg.CalibrationMethod, r.logger)
	if cfg.CalibrationMethod != models.CalibrationNone {
		weightMap := make(map[string]float64, len(fitted))
		for _, rule := range fitted {
			weightMap[rule.Name] = rule.Weight
		}
		scores := matrix.WeightedScores(weightMap)
		if err := calibrator.Fit(scores, matrix.Labels); err != nil {
			if !models.IsValidationError(err) {
				return nil, err
			}
			// Not enough samples to calibrate; the linear fallback is the
			// documented degraded mode.
			calibrator = scoring.NewLinearCalibrator(r.logger)
		}
	}

	scorer := scoring.NewScorer(fitted, evaluator, calibrator, cfg.EVThreshold)
	return strategy.NewValueStrategy(strategy.Config{
		Name:            "trial_value",
		Scorer:          scorer,
		EVThreshold:     cfg.EVThreshold,
		MaxBetsPerEvent: cfg.MaxBetsPerEvent,
		StakingMethod:   bankroll.MethodFromString(cfg.StakingMethod),
		BankrollOpts:    bankroll.DefaultOptions(),
		TargetRank:      cfg.TargetRank,
		Logger:          r.logger,
	}), nil
}

// selectFactors applies the trial's factor-subset-selection policy to the
// active rule registry snapshot.
func (r *TrialRunner) selectFactors(ctx context.Context, cfg models.TrialConfig, asOf time.Time, events []*models.RaceEvent) ([]models.FactorRule, error) {
	all, err := r.provider.ActiveRules(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("loading active rules: %w", err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	switch cfg.FactorSelection {
	case models.FactorSelectionCategory:
		filtered := make([]models.FactorRule, 0, len(all))
		for _, rule := range all {
			if categoryPriority[rule.Category] {
				filtered = append(filtered, rule)
			}
		}
		if len(filtered) == 0 {
			return all, nil
		}
		return filtered, nil

	case models.FactorSelectionTop10AUC, models.FactorSelectionTop15AUC:
		k := 10
		if cfg.FactorSelection == models.FactorSelectionTop15AUC {
			k = 15
		}
		evaluator, err := factors.NewEvaluator(all)
		if err != nil {
			return nil, err
		}
		matrix := scoring.BuildFactorMatrix(events, all, evaluator, cfg.TargetRank)
		ranked := scoring.RankFactorsByAUC(matrix, minFactorAUC)
		return scoring.SelectTopFactors(all, ranked, k), nil

	default:
		return all, nil
	}
}

// simulate bootstraps the trial's EV-implied bet PnLs. Histories too small
// to resample leave the Monte Carlo fields at their zero values.
func (r *TrialRunner) simulate(bets []*models.Bet, params Params, result *models.TrialResult) error {
	pnls := make([]float64, 0, len(bets))
	for _, bet := range bets {
		pnls = append(pnls, bet.ImpliedPnL())
	}
	if len(pnls) < mcMinPnLs {
		return nil
	}

	sims := params.MCSimulations
	if sims <= 0 {
		sims = 1000
	}
	mc := backtest.NewMonteCarloSimulator(mcSeed, r.logger)
	mcResult, err := mc.Run(pnls, sims, 0, params.InitialBankroll)
	if err != nil {
		return err
	}
	result.MCROI5th = mcResult.ROI5th
	result.MCROI95th = mcResult.ROI95th
	result.MCRuinProbability = mcResult.RuinProbability
	return nil
}

// overfittingRatio is average train ROI over average test ROI with the
// documented sentinels for a flat test side.
func overfittingRatio(avgTrain, avgTest float64) float64 {
	if avgTest == 0 {
		if avgTrain > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return avgTrain / avgTest
}
