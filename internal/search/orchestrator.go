package search

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/dataprovider"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/logger"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/metrics"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/repository"
)

// progressInterval is how many trials pass between progress log lines.
const progressInterval = 10

// earlyStopMinTrials is the sample size before the failure-rate warning can
// fire.
const earlyStopMinTrials = 20

// Orchestrator drives a search session: it samples configurations, runs
// trials sequentially, persists every result and tracks the best trial.
type Orchestrator struct {
	space     *Space
	runner    *TrialRunner
	store     repository.Store
	events    dataprovider.EventSource
	searchLog *logger.SearchLogger
	logger    *logrus.Logger
}

// NewOrchestrator assembles an orchestrator.
func NewOrchestrator(runner *TrialRunner, store repository.Store, events dataprovider.EventSource, log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.New()
	}
	return &Orchestrator{
		space:     NewSpace(),
		runner:    runner,
		store:     store,
		events:    events,
		searchLog: logger.NewSearchLogger(log),
		logger:    log,
	}
}

// Run starts a fresh search session. Parameter validation happens before
// any persistence, so an invalid request never creates a session row.
func (o *Orchestrator) Run(ctx context.Context, params Params) (*models.SearchSession, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	sessionID := params.SessionID
	if sessionID == "" {
		sessionID = newTrialID()
	}
	session := &models.SearchSession{
		ID:              sessionID,
		DateFrom:        params.DateFrom,
		DateTo:          params.DateTo,
		RequestedTrials: params.NTrials,
		InitialBankroll: params.InitialBankroll,
		RandomSeed:      params.RandomSeed,
		Status:          models.SessionRunning,
		StartedAt:       time.Now().UTC(),
	}
	if err := o.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	metrics.SessionsStartedTotal.Inc()
	o.searchLog.LogSessionStart(session)

	rng := rand.New(rand.NewSource(params.RandomSeed))
	return o.runLoop(ctx, session, params, rng, 0)
}

// Resume continues an interrupted session. The configurations of already
// persisted trials are regenerated by replaying the seeded random source,
// so the remaining trials draw exactly the configurations a single
// uninterrupted run would have produced.
func (o *Orchestrator) Resume(ctx context.Context, sessionID string, mcSimulations int, earlyStopThreshold float64) (*models.SearchSession, error) {
	session, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if session.Status == models.SessionCompleted {
		return session, nil
	}

	completed, err := o.store.CompletedCount(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("counting completed trials: %w", err)
	}

	params := Params{
		SessionID:          session.ID,
		DateFrom:           session.DateFrom,
		DateTo:             session.DateTo,
		NTrials:            session.RequestedTrials,
		InitialBankroll:    session.InitialBankroll,
		MCSimulations:      mcSimulations,
		RandomSeed:         session.RandomSeed,
		EarlyStopThreshold: earlyStopThreshold,
	}

	rng := rand.New(rand.NewSource(session.RandomSeed))
	for i := 0; i < completed; i++ {
		o.space.Sample(rng)
	}

	metrics.SessionsResumedTotal.Inc()
	o.searchLog.LogSessionResume(sessionID, completed, params.NTrials-completed)

	return o.runLoop(ctx, session, params, rng, completed)
}

func (o *Orchestrator) runLoop(ctx context.Context, session *models.SearchSession, params Params, rng *rand.Rand, startIndex int) (*models.SearchSession, error) {
	events, err := o.events.EventsByDateRange(ctx, params.DateFrom, params.DateTo)
	if err != nil {
		return nil, fmt.Errorf("preloading events: %w", err)
	}
	o.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"events":     len(events),
	}).Info("event data preloaded")

	bestScore, bestTrialID, err := o.currentBest(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	failed := 0
	earlyStopWarned := false

	for i := startIndex; i < params.NTrials; i++ {
		if err := ctx.Err(); err != nil {
			// The session stays RUNNING so a later resume can pick it up.
			return session, err
		}

		cfg := o.space.Sample(rng)
		result, err := o.runner.Run(ctx, cfg, params, events)
		if err != nil {
			return session, err
		}

		if err := o.store.SaveTrial(ctx, session.ID, result); err != nil {
			return session, fmt.Errorf("saving trial %s: %w", cfg.TrialID, err)
		}
		o.searchLog.LogTrialResult(session.ID, result)

		status := "success"
		if result.Failed() {
			status = "failed"
			failed++
		} else if result.CompositeScore > bestScore || bestTrialID == "" {
			bestScore = result.CompositeScore
			bestTrialID = result.Config.TrialID
		}
		metrics.RecordTrial(status, result.CompositeScore, result.Elapsed.Seconds())

		completed := i + 1
		if completed%progressInterval == 0 || completed == params.NTrials {
			median, err := o.store.MedianScore(ctx, session.ID)
			if err != nil {
				return session, err
			}
			o.searchLog.LogProgress(session.ID, completed, params.NTrials, bestScore, median)
			metrics.UpdateSessionProgress(session.ID, completed, bestScore)
		}

		if !earlyStopWarned && params.EarlyStopThreshold > 0 && completed >= earlyStopMinTrials {
			if rate := float64(failed) / float64(completed-startIndex); rate > params.EarlyStopThreshold {
				o.logger.WithFields(logrus.Fields{
					"session_id":   session.ID,
					"failure_rate": rate,
				}).Warn("trial failure rate above threshold, check data coverage")
				earlyStopWarned = true
			}
		}
	}

	now := time.Now().UTC()
	session.Status = models.SessionCompleted
	session.BestTrialID = bestTrialID
	session.CompletedAt = &now
	session.Elapsed = now.Sub(session.StartedAt)
	if err := o.store.UpdateSession(ctx, session); err != nil {
		return session, fmt.Errorf("completing session: %w", err)
	}
	o.searchLog.LogSessionComplete(session)

	return session, nil
}

// currentBest re-derives the running best from persisted trials, so a
// resumed session continues ranking against everything already done.
func (o *Orchestrator) currentBest(ctx context.Context, sessionID string) (float64, string, error) {
	top, err := o.store.TopTrials(ctx, sessionID, 1)
	if err != nil {
		return 0, "", fmt.Errorf("loading best trial: %w", err)
	}
	if len(top) == 0 {
		return 0, "", nil
	}
	return top[0].CompositeScore, top[0].Config.TrialID, nil
}

func validateParams(params Params) error {
	if params.DateFrom.IsZero() || params.DateTo.IsZero() {
		return models.NewValidationError("search date range is required")
	}
	if !params.DateFrom.Before(params.DateTo) {
		return models.NewValidationError("date_from %s must precede date_to %s",
			params.DateFrom.Format("2006-01-02"), params.DateTo.Format("2006-01-02"))
	}
	if params.NTrials < 1 {
		return models.NewValidationError("trial count must be at least 1, got %d", params.NTrials)
	}
	if params.InitialBankroll <= 0 {
		return models.NewValidationError("initial bankroll must be positive, got %d", params.InitialBankroll)
	}
	return nil
}
