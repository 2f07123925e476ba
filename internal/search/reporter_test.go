package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/repository"
)

func seedReportStore(t *testing.T) repository.Store {
	t.Helper()
	store := repository.NewMemoryStore()
	ctx := context.Background()

	session := &models.SearchSession{
		ID:        "ses-report",
		Status:    models.SessionCompleted,
		StartedAt: time.Now().UTC(),
		Elapsed:   90 * time.Second,
	}
	require.NoError(t, store.CreateSession(ctx, session))

	trials := []*models.TrialResult{
		{
			Config: models.TrialConfig{
				TrialID: "t1", EVThreshold: 1.10, Regularization: 1.0, TargetRank: 1,
				CalibrationMethod: models.CalibrationPlatt, StakingMethod: models.StakingQuarterKelly,
				WFNumWindows: 5, MaxBetsPerEvent: 1, FactorSelection: models.FactorSelectionAll,
				TrainWindowMonths: 6,
			},
			CompositeScore: 72.5, ROI: 0.08, TotalBets: 120,
		},
		{
			Config: models.TrialConfig{
				TrialID: "t2", EVThreshold: 1.20, Regularization: 0.1, TargetRank: 3,
				CalibrationMethod: models.CalibrationNone, StakingMethod: models.StakingEqual,
				WFNumWindows: 3, MaxBetsPerEvent: 2, FactorSelection: models.FactorSelectionTop10AUC,
				TrainWindowMonths: 12,
			},
			CompositeScore: 55.0, ROI: 0.02, TotalBets: 40,
		},
		{
			Config: models.TrialConfig{TrialID: "t3"},
			Error:  "no bets in test period",
		},
	}
	for _, trial := range trials {
		require.NoError(t, store.SaveTrial(ctx, "ses-report", trial))
	}
	return store
}

func TestReporterGenerate(t *testing.T) {
	store := seedReportStore(t)
	summary, err := NewReporter(store).Generate(context.Background(), "ses-report")
	require.NoError(t, err)

	assert.Equal(t, "ses-report", summary.SessionID)
	assert.Equal(t, 3, summary.TotalTrials)
	assert.Equal(t, 2, summary.CompletedTrials)
	assert.Equal(t, 1, summary.ErrorTrials)
	require.NotNil(t, summary.BestTrial)
	assert.Equal(t, "t1", summary.BestTrial.Config.TrialID)
	assert.Len(t, summary.TopTrials, 2, "failed trials never enter the ranking")
	assert.InDelta(t, 90.0, summary.Elapsed, 1e-9)

	trend := summary.ParameterTrends["ev_threshold"]
	require.Len(t, trend, 2)
	assert.Equal(t, "1.10", trend[0].Value, "the better-scoring value leads the trend")
	assert.InDelta(t, 72.5, trend[0].AvgScore, 1e-9)
	assert.Equal(t, 1, trend[0].Count)
}

func TestReporterGenerateUnknownSession(t *testing.T) {
	_, err := NewReporter(repository.NewMemoryStore()).Generate(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFormatReport(t *testing.T) {
	store := seedReportStore(t)
	summary, err := NewReporter(store).Generate(context.Background(), "ses-report")
	require.NoError(t, err)

	report := FormatReport(summary)
	assert.Contains(t, report, "Best configuration")
	assert.Contains(t, report, "completed: 2/3 (errors: 1)")
	assert.Contains(t, report, "Top configurations")
}

func TestFormatReportNoSuccessfulTrials(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, &models.SearchSession{ID: "ses-empty", StartedAt: time.Now().UTC()}))

	summary, err := NewReporter(store).Generate(ctx, "ses-empty")
	require.NoError(t, err)
	assert.Nil(t, summary.BestTrial)
	assert.Contains(t, FormatReport(summary), "No successful trials")
}
