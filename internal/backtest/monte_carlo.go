package backtest

import (
	"math"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// MonteCarloResult describes the bootstrapped return distribution of a bet
// history.
type MonteCarloResult struct {
	NSimulations    int
	NBets           int
	InitialBankroll int64

	PnLMean   float64
	PnLMedian float64
	PnLStd    float64
	PnL5th    float64
	PnL95th   float64

	ROIMean   float64
	ROIMedian float64
	ROI5th    float64
	ROI95th   float64

	MaxDrawdownMean float64
	MaxDrawdown95th float64
	RuinProbability float64 // fraction of simulations whose equity touched zero

	FinalPnLs    []float64
	MaxDrawdowns []float64
}

// MonteCarloSimulator bootstraps bet PnLs with replacement to estimate the
// distribution of final outcomes. Runs with the same seed and inputs are
// deterministic.
type MonteCarloSimulator struct {
	rng    *rand.Rand
	logger *logrus.Logger
}

// NewMonteCarloSimulator creates a simulator seeded for reproducible runs.
func NewMonteCarloSimulator(seed int64, logger *logrus.Logger) *MonteCarloSimulator {
	if logger == nil {
		logger = logrus.New()
	}
	return &MonteCarloSimulator{rng: rand.New(rand.NewSource(seed)), logger: logger}
}

// Run resamples betPnLs nBetsPerSim at a time (pass 0 to match the input
// length), walks the equity curve per simulation and summarizes the
// distribution. An empty input is a ValidationError.
func (s *MonteCarloSimulator) Run(betPnLs []float64, nSimulations, nBetsPerSim int, initialBankroll int64) (*MonteCarloResult, error) {
	if len(betPnLs) == 0 {
		return nil, models.NewValidationError("monte carlo input is empty")
	}
	if nSimulations < 1 {
		return nil, models.NewValidationError("simulation count must be at least 1, got %d", nSimulations)
	}

	nBets := nBetsPerSim
	if nBets <= 0 {
		nBets = len(betPnLs)
	}

	s.logger.WithFields(logrus.Fields{
		"simulations":  nSimulations,
		"bets_per_sim": nBets,
		"bankroll":     initialBankroll,
	}).Debug("starting monte carlo simulation")

	finalPnLs := make([]float64, 0, nSimulations)
	maxDrawdowns := make([]float64, 0, nSimulations)
	ruinCount := 0

	for i := 0; i < nSimulations; i++ {
		cumulative := 0.0
		peak := float64(initialBankroll)
		maxDD := 0.0
		ruined := false

		for j := 0; j < nBets; j++ {
			cumulative += betPnLs[s.rng.Intn(len(betPnLs))]
			equity := float64(initialBankroll) + cumulative
			if equity > peak {
				peak = equity
			}
			denom := peak
			if denom < 1 {
				denom = 1
			}
			if dd := (peak - equity) / denom; dd > maxDD {
				maxDD = dd
			}
			if equity <= 0 {
				ruined = true
			}
		}

		finalPnLs = append(finalPnLs, cumulative)
		maxDrawdowns = append(maxDrawdowns, maxDD)
		if ruined {
			ruinCount++
		}
	}

	// ROI denominator: total stake estimated from the loss side of the
	// input; a loss equals its stake. Falls back to nBets x 1000 when no
	// bet lost.
	stakeEstimate := 0.0
	for _, pnl := range betPnLs {
		if pnl < 0 {
			stakeEstimate += -pnl
		}
	}
	if stakeEstimate == 0 {
		stakeEstimate = float64(nBets * 1000)
	}
	if stakeEstimate < 1 {
		stakeEstimate = 1
	}

	rois := make([]float64, len(finalPnLs))
	for i, pnl := range finalPnLs {
		rois[i] = pnl / stakeEstimate
	}

	pnlMean, pnlStd := meanStd(finalPnLs)
	roiMean, _ := meanStd(rois)
	ddMean, _ := meanStd(maxDrawdowns)

	result := &MonteCarloResult{
		NSimulations:    nSimulations,
		NBets:           nBets,
		InitialBankroll: initialBankroll,
		PnLMean:         pnlMean,
		PnLMedian:       percentile(finalPnLs, 50),
		PnLStd:          pnlStd,
		PnL5th:          percentile(finalPnLs, 5),
		PnL95th:         percentile(finalPnLs, 95),
		ROIMean:         roiMean,
		ROIMedian:       percentile(rois, 50),
		ROI5th:          percentile(rois, 5),
		ROI95th:         percentile(rois, 95),
		MaxDrawdownMean: ddMean,
		MaxDrawdown95th: percentile(maxDrawdowns, 95),
		RuinProbability: float64(ruinCount) / float64(nSimulations),
		FinalPnLs:       finalPnLs,
		MaxDrawdowns:    maxDrawdowns,
	}

	s.logger.WithFields(logrus.Fields{
		"pnl_mean":   math.Round(result.PnLMean),
		"pnl_median": math.Round(result.PnLMedian),
		"ruin_prob":  result.RuinProbability,
	}).Debug("monte carlo simulation finished")

	return result, nil
}
