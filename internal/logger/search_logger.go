// Package logger provides search-specific logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// SearchLogger provides dedicated logging for search session operations.
type SearchLogger struct {
	*logrus.Entry
}

// NewSearchLogger creates a new search logger.
func NewSearchLogger(baseLogger *logrus.Logger) *SearchLogger {
	return &SearchLogger{
		Entry: baseLogger.WithField("component", "search"),
	}
}

// LogSessionStart logs the start of a search session.
func (sl *SearchLogger) LogSessionStart(session *models.SearchSession) {
	sl.WithFields(logrus.Fields{
		"session_id":       session.ID,
		"date_from":        session.DateFrom.Format("2006-01-02"),
		"date_to":          session.DateTo.Format("2006-01-02"),
		"n_trials":         session.RequestedTrials,
		"initial_bankroll": session.InitialBankroll,
		"random_seed":      session.RandomSeed,
	}).Info("Search session started")
}

// LogSessionResume logs a session resume with the replayed trial count.
func (sl *SearchLogger) LogSessionResume(sessionID string, completed, remaining int) {
	sl.WithFields(logrus.Fields{
		"session_id": sessionID,
		"completed":  completed,
		"remaining":  remaining,
	}).Info("Search session resumed")
}

// LogTrialResult logs one completed trial.
func (sl *SearchLogger) LogTrialResult(sessionID string, result *models.TrialResult) {
	fields := logrus.Fields{
		"session_id": sessionID,
		"trial_id":   result.Config.TrialID,
		"elapsed":    result.Elapsed.Round(time.Millisecond).String(),
	}
	if result.Failed() {
		fields["error"] = result.Error
		sl.WithFields(fields).Warn("Trial failed")
		return
	}
	fields["composite_score"] = result.CompositeScore
	fields["roi"] = result.ROI
	fields["total_bets"] = result.TotalBets
	sl.WithFields(fields).Info("Trial completed")
}

// LogProgress logs periodic session progress.
func (sl *SearchLogger) LogProgress(sessionID string, completed, total int, bestScore, medianScore float64) {
	sl.WithFields(logrus.Fields{
		"session_id":   sessionID,
		"completed":    completed,
		"total":        total,
		"best_score":   bestScore,
		"median_score": medianScore,
	}).Info("Search progress")
}

// LogSessionComplete logs session completion with the winning trial.
func (sl *SearchLogger) LogSessionComplete(session *models.SearchSession) {
	sl.WithFields(logrus.Fields{
		"session_id":    session.ID,
		"best_trial_id": session.BestTrialID,
		"elapsed":       session.Elapsed.Round(time.Second).String(),
	}).Info("Search session completed")
}
