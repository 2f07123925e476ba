package search

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/dataprovider"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/factors"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/repository"
)

func newTestOrchestrator(store repository.Store, events []*models.RaceEvent) *Orchestrator {
	runner := NewTrialRunner(factors.NewStaticRuleProvider(testRules()), nil)
	return NewOrchestrator(runner, store, dataprovider.NewStaticEventSource(events), nil)
}

func TestOrchestratorRejectsInvalidParams(t *testing.T) {
	store := repository.NewMemoryStore()
	orchestrator := newTestOrchestrator(store, nil)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		params Params
	}{
		{"missing dates", Params{NTrials: 1, InitialBankroll: 1}},
		{"inverted range", Params{DateFrom: to, DateTo: from, NTrials: 1, InitialBankroll: 1}},
		{"zero trials", Params{DateFrom: from, DateTo: to, NTrials: 0, InitialBankroll: 1}},
		{"zero bankroll", Params{DateFrom: from, DateTo: to, NTrials: 1, InitialBankroll: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := orchestrator.Run(context.Background(), tt.params)
			assert.True(t, models.IsValidationError(err))
		})
	}

	// Validation happens before persistence: no session rows were created.
	sessions, err := store.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestOrchestratorRunCompletesSession(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStore()
	orchestrator := newTestOrchestrator(store, dailyEvents(from, to, 10.0))

	params := testTrialParams(from, to)
	params.SessionID = "ses-run"
	params.NTrials = 5

	session, err := orchestrator.Run(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, "ses-run", session.ID)
	assert.Equal(t, models.SessionCompleted, session.Status)
	assert.NotEmpty(t, session.BestTrialID)
	require.NotNil(t, session.CompletedAt)

	trials, err := store.GetTrials(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Len(t, trials, 5)

	top, err := store.TopTrials(context.Background(), session.ID, 1)
	require.NoError(t, err)
	require.NotEmpty(t, top)
	assert.Equal(t, top[0].Config.TrialID, session.BestTrialID)
}

func TestOrchestratorDuplicateSession(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStore()
	orchestrator := newTestOrchestrator(store, dailyEvents(from, to, 10.0))

	params := testTrialParams(from, to)
	params.SessionID = "ses-dup"
	params.NTrials = 1

	_, err := orchestrator.Run(context.Background(), params)
	require.NoError(t, err)

	_, err = orchestrator.Run(context.Background(), params)
	assert.ErrorIs(t, err, models.ErrSessionExists)
}

func TestOrchestratorResumeReproducesConfigs(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	events := dailyEvents(from, to, 10.0)

	// Reference: an uninterrupted session of 6 trials.
	refStore := repository.NewMemoryStore()
	refParams := testTrialParams(from, to)
	refParams.SessionID = "ses-ref"
	refParams.NTrials = 6
	refParams.RandomSeed = 1234
	_, err := newTestOrchestrator(refStore, events).Run(context.Background(), refParams)
	require.NoError(t, err)
	refTrials, err := refStore.GetTrials(context.Background(), "ses-ref")
	require.NoError(t, err)
	require.Len(t, refTrials, 6)

	// Interrupted session: 3 trials persisted, then resumed.
	store := repository.NewMemoryStore()
	session := &models.SearchSession{
		ID:              "ses-resume",
		DateFrom:        from,
		DateTo:          to,
		RequestedTrials: 6,
		InitialBankroll: 1_000_000,
		RandomSeed:      1234,
		Status:          models.SessionRunning,
		StartedAt:       time.Now().UTC(),
	}
	require.NoError(t, store.CreateSession(context.Background(), session))

	runner := NewTrialRunner(factors.NewStaticRuleProvider(testRules()), nil)
	params := testTrialParams(from, to)
	params.SessionID = session.ID
	rng := rand.New(rand.NewSource(1234))
	space := NewSpace()
	for i := 0; i < 3; i++ {
		result, err := runner.Run(context.Background(), space.Sample(rng), params, events)
		require.NoError(t, err)
		require.NoError(t, store.SaveTrial(context.Background(), session.ID, result))
	}

	orchestrator := newTestOrchestrator(store, events)
	resumed, err := orchestrator.Resume(context.Background(), session.ID, 100, 0.5)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, resumed.Status)

	trials, err := store.GetTrials(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, trials, 6)

	// The resumed tail draws exactly the configurations the uninterrupted
	// run produced.
	for i := 0; i < 6; i++ {
		assert.Equal(t, configDims(refTrials[i].Config), configDims(trials[i].Config), "trial %d", i)
	}
}

func TestOrchestratorResumeCompletedSessionIsNoop(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStore()
	orchestrator := newTestOrchestrator(store, dailyEvents(from, to, 10.0))

	params := testTrialParams(from, to)
	params.SessionID = "ses-done"
	params.NTrials = 2
	_, err := orchestrator.Run(context.Background(), params)
	require.NoError(t, err)

	session, err := orchestrator.Resume(context.Background(), "ses-done", 100, 0.5)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, session.Status)

	trials, err := store.GetTrials(context.Background(), "ses-done")
	require.NoError(t, err)
	assert.Len(t, trials, 2, "a completed session must not run more trials")
}

func TestOrchestratorResumeUnknownSession(t *testing.T) {
	orchestrator := newTestOrchestrator(repository.NewMemoryStore(), nil)
	_, err := orchestrator.Resume(context.Background(), "nope", 100, 0.5)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestOrchestratorCancelLeavesSessionRunning(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	store := repository.NewMemoryStore()
	orchestrator := newTestOrchestrator(store, dailyEvents(from, to, 10.0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	params := testTrialParams(from, to)
	params.SessionID = "ses-cancel"
	params.NTrials = 5

	session, err := orchestrator.Run(ctx, params)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, session)

	persisted, err := store.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionRunning, persisted.Status, "an interrupted session stays resumable")
}
