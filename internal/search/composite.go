package search

import (
	"math"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// CompositeScore folds a trial's risk, return, generalization and
// tail-risk aggregates into a single 0..100 fitness number.
//
// Point allocation:
//
//	Sharpe ratio          30 pts  (0 or below = 0, 1.0 or above = 30)
//	ROI                   25 pts  (0% = 0, 10% or above = 25)
//	Max drawdown          15 pts  (30% or above = 0, 0% = 15)
//	Overfitting restraint 15 pts  (ratio 1.0 = 15, 3.0 or infinite = 0)
//	Monte Carlo stability 10 pts  (ruin 0% = 10, 10% or above = 0)
//	Bet count sufficiency  5 pts  (0 bets = 0, 100 or more = 5)
//
// Every contribution is clamped, so the result stays inside [0, 100] for
// any metric combination including infinities.
func CompositeScore(result *models.TrialResult) float64 {
	score := 0.0

	sharpe := math.Max(0, result.SharpeRatio)
	score += math.Min(30.0, sharpe*30.0)

	roiPct := math.Max(0, result.ROI*100)
	score += math.Min(25.0, roiPct*2.5)

	dd := math.Min(0.30, math.Max(0, result.MaxDrawdown))
	score += 15.0 * (1.0 - dd/0.30)

	of := result.WFOverfittingRatio
	if math.IsInf(of, 1) {
		of = 3.0
	} else {
		of = math.Max(1.0, math.Min(3.0, of))
	}
	score += 15.0 * (1.0 - (of-1.0)/2.0)

	ruin := math.Min(0.10, math.Max(0, result.MCRuinProbability))
	score += 10.0 * (1.0 - ruin/0.10)

	bets := result.TotalBets
	if bets > 100 {
		bets = 100
	}
	if bets < 0 {
		bets = 0
	}
	score += 5.0 * float64(bets) / 100.0

	return math.Round(score*100) / 100
}
