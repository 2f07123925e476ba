package scoring

import (
	"math"
	"sort"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/factors"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// BaseScore is the constant every candidate's total score starts from.
const BaseScore = 100.0

// ScoredCandidate is the derived, transient scoring output for one entrant.
type ScoredCandidate struct {
	Number          string             `json:"number"`
	TotalScore      float64            `json:"total_score"`
	FactorBreakdown map[string]float64 `json:"factor_breakdown"`
	EstimatedProb   float64            `json:"estimated_prob"`
	FairOdds        float64            `json:"fair_odds"`
	MarketOdds      float64            `json:"market_odds"`
	ExpectedValue   float64            `json:"expected_value"`
	IsValueBet      bool               `json:"is_value_bet"`
}

// Scorer converts a weighted rule set plus a per-candidate context into a
// total score, a calibrated probability and an expected value.
type Scorer struct {
	rules       []models.FactorRule
	evaluator   *factors.Evaluator
	calibrator  Calibrator
	evThreshold float64
}

// NewScorer builds a scorer over an immutable rule snapshot. The calibrator
// must not be nil; pass a LinearCalibrator for the uncalibrated fallback.
func NewScorer(rules []models.FactorRule, evaluator *factors.Evaluator, calibrator Calibrator, evThreshold float64) *Scorer {
	return &Scorer{
		rules:       rules,
		evaluator:   evaluator,
		calibrator:  calibrator,
		evThreshold: evThreshold,
	}
}

// ScoreRace scores every candidate in the event. Candidates without an
// observable market price (odds <= 0) are excluded. The result is sorted by
// expected value descending.
func (s *Scorer) ScoreRace(race *models.RaceEvent) ([]ScoredCandidate, error) {
	results := make([]ScoredCandidate, 0, len(race.Candidates))

	for _, candidate := range race.Candidates {
		if candidate.Odds <= 0 {
			continue
		}

		env := factors.BuildContext(candidate, race)
		total := BaseScore
		breakdown := make(map[string]float64, len(s.rules))
		for _, rule := range s.rules {
			weighted := rule.Weight * s.evaluator.Evaluate(rule.Name, env)
			total += weighted
			breakdown[rule.Name] = weighted
		}

		prob, err := s.calibrator.Predict(total)
		if err != nil {
			return nil, err
		}

		fairOdds := math.Inf(1)
		if prob > 0 {
			fairOdds = 1.0 / prob
		}
		ev := prob * candidate.Odds

		results = append(results, ScoredCandidate{
			Number:          candidate.Number,
			TotalScore:      total,
			FactorBreakdown: breakdown,
			EstimatedProb:   prob,
			FairOdds:        fairOdds,
			MarketOdds:      candidate.Odds,
			ExpectedValue:   ev,
			IsValueBet:      ev > s.evThreshold,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ExpectedValue > results[j].ExpectedValue
	})
	return results, nil
}
