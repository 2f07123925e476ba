package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/factors"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

func scorerFixture(t *testing.T) (*Scorer, []models.FactorRule) {
	t.Helper()
	rules := []models.FactorRule{
		{Name: "favourite", Category: "odds", Expression: "popularity_rank <= 2", Weight: 2.0},
		{Name: "short_price", Category: "odds", Expression: "odds < 5.0", Weight: 1.0},
	}
	evaluator, err := factors.NewEvaluator(rules)
	require.NoError(t, err)
	return NewScorer(rules, evaluator, NewLinearCalibrator(nil), 1.05), rules
}

func testEvent() *models.RaceEvent {
	return &models.RaceEvent{
		Key:      "202406010511",
		Date:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Venue:    "05",
		Number:   11,
		Distance: 1600,
		Candidates: []*models.Candidate{
			{Number: "1", Odds: 2.5, PopularityRank: 1},
			{Number: "2", Odds: 8.0, PopularityRank: 4},
			{Number: "3", Odds: 0, PopularityRank: 2}, // no observable price
		},
	}
}

func TestScoreRaceExcludesUnpriced(t *testing.T) {
	scorer, _ := scorerFixture(t)
	scored, err := scorer.ScoreRace(testEvent())
	require.NoError(t, err)

	require.Len(t, scored, 2)
	for _, sc := range scored {
		assert.NotEqual(t, "3", sc.Number)
	}
}

func TestScoreRaceOrderingAndEV(t *testing.T) {
	scorer, _ := scorerFixture(t)
	scored, err := scorer.ScoreRace(testEvent())
	require.NoError(t, err)
	require.Len(t, scored, 2)

	for i := 1; i < len(scored); i++ {
		assert.GreaterOrEqual(t, scored[i-1].ExpectedValue, scored[i].ExpectedValue)
	}
	for _, sc := range scored {
		assert.InDelta(t, sc.EstimatedProb*sc.MarketOdds, sc.ExpectedValue, 1e-9)
		assert.Equal(t, sc.ExpectedValue > 1.05, sc.IsValueBet)
	}

	// Candidate 1 matches both rules: 100 + 2.0 + 1.0.
	var first ScoredCandidate
	for _, sc := range scored {
		if sc.Number == "1" {
			first = sc
		}
	}
	assert.InDelta(t, 103.0, first.TotalScore, 1e-9)
	assert.InDelta(t, 2.0, first.FactorBreakdown["favourite"], 1e-9)
	assert.InDelta(t, 1.0, first.FactorBreakdown["short_price"], 1e-9)
}

func TestBuildFactorMatrixExclusions(t *testing.T) {
	_, rules := scorerFixture(t)
	evaluator, err := factors.NewEvaluator(rules)
	require.NoError(t, err)

	event := testEvent()
	event.Candidates[0].FinishRank = 1
	event.Candidates[1].FinishRank = 5
	// candidate 3 keeps FinishRank 0 and stays out of the matrix

	matrix := BuildFactorMatrix([]*models.RaceEvent{event}, rules, evaluator, 3)
	require.Len(t, matrix.X, 2)
	assert.Equal(t, []int{1, 0}, matrix.Labels)
	assert.Equal(t, 1, matrix.Positives())

	// Row for candidate 1: both rules fire.
	assert.Equal(t, []float64{1, 1}, matrix.X[0])
}

func TestWeightedScoresMirrorsScorer(t *testing.T) {
	_, rules := scorerFixture(t)
	evaluator, err := factors.NewEvaluator(rules)
	require.NoError(t, err)

	event := testEvent()
	event.Candidates[0].FinishRank = 1
	event.Candidates[1].FinishRank = 5

	matrix := BuildFactorMatrix([]*models.RaceEvent{event}, rules, evaluator, 1)
	scores := matrix.WeightedScores(map[string]float64{"favourite": 2.0, "short_price": 1.0})

	require.Len(t, scores, 2)
	assert.InDelta(t, 103.0, scores[0], 1e-9)
	assert.InDelta(t, 100.0, scores[1], 1e-9)
}
