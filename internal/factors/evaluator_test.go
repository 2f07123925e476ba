package factors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

func TestNewEvaluatorRejectsUnknownIdentifier(t *testing.T) {
	_, err := NewEvaluator([]models.FactorRule{
		{Name: "bad", Expression: "finish_rank == 1"},
	})
	require.Error(t, err, "identifiers outside the namespace must fail at compile time")
	assert.Contains(t, err.Error(), "bad")
}

func TestNewEvaluatorRejectsSyntaxError(t *testing.T) {
	_, err := NewEvaluator([]models.FactorRule{
		{Name: "broken", Expression: "odds <"},
	})
	assert.Error(t, err)
}

func TestEvaluateBooleanAndNumeric(t *testing.T) {
	evaluator, err := NewEvaluator([]models.FactorRule{
		{Name: "is_fav", Expression: "popularity_rank == 1"},
		{Name: "odds_gap", Expression: "odds - field_min_odds"},
		{Name: "string_value", Expression: "track_code"},
	})
	require.NoError(t, err)

	env := namespace()
	env["popularity_rank"] = 1
	env["odds"] = 4.5
	env["field_min_odds"] = 2.0
	env["track_code"] = "turf"

	assert.Equal(t, 1.0, evaluator.Evaluate("is_fav", env))
	assert.InDelta(t, 2.5, evaluator.Evaluate("odds_gap", env), 1e-9)

	env["popularity_rank"] = 3
	assert.Equal(t, 0.0, evaluator.Evaluate("is_fav", env))

	// Non-numeric results and unknown rules score zero.
	assert.Equal(t, 0.0, evaluator.Evaluate("string_value", env))
	assert.Equal(t, 0.0, evaluator.Evaluate("missing_rule", env))
}

func TestBuildContext(t *testing.T) {
	race := &models.RaceEvent{
		Key:       "202406010511",
		Date:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Distance:  1600,
		TrackCode: "10",
		Candidates: []*models.Candidate{
			{Number: "1", Odds: 2.0, PopularityRank: 1,
				Prev: &models.PrevStart{FinishRank: 2, ClosingSectional: 335, RunningStyle: 3, PopularityRank: 2}},
			{Number: "2", Odds: 6.0, PopularityRank: 2,
				Prev: &models.PrevStart{FinishRank: 8, ClosingSectional: 350}},
			{Number: "3", Odds: 0}, // unpriced, excluded from field stats
		},
	}

	ctx := BuildContext(race.Candidates[0], race)

	assert.Equal(t, 2.0, ctx["odds"])
	assert.Equal(t, 1, ctx["popularity_rank"])
	assert.Equal(t, 3, ctx["num_entries"])
	assert.Equal(t, 1600, ctx["distance"])
	assert.Equal(t, "10", ctx["track_code"])
	assert.Equal(t, 2, ctx["prev_finish_rank"])
	assert.Equal(t, 335.0, ctx["prev_closing_sectional"])
	assert.Equal(t, 3, ctx["prev_running_style"])

	assert.InDelta(t, 4.0, ctx["field_avg_odds"].(float64), 1e-9)
	assert.Equal(t, 2.0, ctx["field_min_odds"])

	// Candidate 1 closed fastest of the two with a previous start.
	assert.Equal(t, 1, ctx["prev_closing_rank"])
	ctx2 := BuildContext(race.Candidates[1], race)
	assert.Equal(t, 2, ctx2["prev_closing_rank"])
}

func TestBuildContextWithoutPrevStart(t *testing.T) {
	race := &models.RaceEvent{
		Candidates: []*models.Candidate{{Number: "1", Odds: 3.0}},
	}
	ctx := BuildContext(race.Candidates[0], race)

	assert.Equal(t, 0, ctx["prev_finish_rank"])
	assert.Equal(t, 0.0, ctx["prev_closing_sectional"])
}

func TestStaticRuleProviderCopies(t *testing.T) {
	rules := []models.FactorRule{{Name: "a", Weight: 1.0}}
	provider := NewStaticRuleProvider(rules)

	got, err := provider.ActiveRules(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, got, 1)

	got[0].Weight = 99
	again, err := provider.ActiveRules(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1.0, again[0].Weight, "callers must not be able to mutate the snapshot")
}
