package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

func testSession(id string) *models.SearchSession {
	return &models.SearchSession{
		ID:              id,
		DateFrom:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:          time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		RequestedTrials: 100,
		InitialBankroll: 1_000_000,
		RandomSeed:      42,
		Status:          models.SessionRunning,
		StartedAt:       time.Now().UTC(),
	}
}

func trialWithScore(id string, score float64) *models.TrialResult {
	return &models.TrialResult{
		Config:         models.TrialConfig{TrialID: id},
		CompositeScore: score,
	}
}

func TestMemoryStoreSessionLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, testSession("s1")))
	assert.ErrorIs(t, store.CreateSession(ctx, testSession("s1")), models.ErrSessionExists)

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionRunning, got.Status)

	got.Status = models.SessionCompleted
	got.BestTrialID = "t9"
	require.NoError(t, store.UpdateSession(ctx, got))

	again, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, again.Status)
	assert.Equal(t, "t9", again.BestTrialID)

	_, err = store.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, store.UpdateSession(ctx, testSession("missing")), models.ErrNotFound)
}

func TestMemoryStoreGetSessionReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, testSession("s1")))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	got.Status = models.SessionCompleted // mutate the copy only

	again, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionRunning, again.Status)
}

func TestMemoryStoreListSessionsOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	older := testSession("old")
	older.StartedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.CreateSession(ctx, older))
	require.NoError(t, store.CreateSession(ctx, testSession("new")))

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "new", sessions[0].ID)
	assert.Equal(t, "old", sessions[1].ID)
}

func TestMemoryStoreTrials(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, testSession("s1")))

	require.NoError(t, store.SaveTrial(ctx, "s1", trialWithScore("t1", 40)))
	require.NoError(t, store.SaveTrial(ctx, "s1", trialWithScore("t2", 70)))
	failed := trialWithScore("t3", 0)
	failed.Error = "no bets in test period"
	require.NoError(t, store.SaveTrial(ctx, "s1", failed))
	require.NoError(t, store.SaveTrial(ctx, "s1", trialWithScore("t4", 55)))

	assert.ErrorIs(t, store.SaveTrial(ctx, "s1", trialWithScore("t1", 10)), models.ErrDuplicateKey)

	trials, err := store.GetTrials(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, trials, 4)
	assert.Equal(t, "t1", trials[0].Config.TrialID, "append order is preserved")

	count, err := store.CompletedCount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, count, "failed trials also count as completed draws")

	top, err := store.TopTrials(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "t2", top[0].Config.TrialID)
	assert.Equal(t, "t4", top[1].Config.TrialID)

	all, err := store.TopTrials(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3, "failed trials never rank")
}

func TestMemoryStoreMedianScore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, testSession("s1")))

	median, err := store.MedianScore(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, median)

	require.NoError(t, store.SaveTrial(ctx, "s1", trialWithScore("t1", 40)))
	require.NoError(t, store.SaveTrial(ctx, "s1", trialWithScore("t2", 70)))
	require.NoError(t, store.SaveTrial(ctx, "s1", trialWithScore("t3", 50)))

	median, err = store.MedianScore(ctx, "s1")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, median, 1e-9)

	require.NoError(t, store.SaveTrial(ctx, "s1", trialWithScore("t4", 60)))
	median, err = store.MedianScore(ctx, "s1")
	require.NoError(t, err)
	assert.InDelta(t, 55.0, median, 1e-9, "even counts average the middle pair")
}
