// Package metrics provides the centralized Prometheus registry for the
// strategy search engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	TrialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "strategy_search",
		Name:      "trials_total",
		Help:      "Total number of executed trials by status",
	}, []string{"status"})
	SessionsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "strategy_search",
		Name:      "sessions_started_total",
		Help:      "Total number of search sessions started",
	})
	SessionsResumedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "strategy_search",
		Name:      "sessions_resumed_total",
		Help:      "Total number of search sessions resumed",
	})
)

// Gauge metrics
var (
	BestCompositeScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "strategy_search",
		Name:      "best_composite_score",
		Help:      "Best composite score observed in the session so far",
	}, []string{"session_id"})
	TrialsCompleted = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "strategy_search",
		Name:      "trials_completed",
		Help:      "Number of completed trials in the session",
	}, []string{"session_id"})
)

// Histogram metrics
var (
	CompositeScoreDistribution = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "strategy_search",
		Name:      "composite_score",
		Help:      "Composite score distribution of non-failed trials",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
	TrialDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "strategy_search",
		Name:      "trial_duration_seconds",
		Help:      "Duration of trial executions in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(TrialsTotal)
		registry.MustRegister(SessionsStartedTotal)
		registry.MustRegister(SessionsResumedTotal)

		registry.MustRegister(BestCompositeScore)
		registry.MustRegister(TrialsCompleted)

		registry.MustRegister(CompositeScoreDistribution)
		registry.MustRegister(TrialDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordTrial records a trial completion with its status, score and duration.
func RecordTrial(status string, score, durationSeconds float64) {
	TrialsTotal.WithLabelValues(status).Inc()
	TrialDuration.Observe(durationSeconds)
	if status == "success" {
		CompositeScoreDistribution.Observe(score)
	}
}

// UpdateSessionProgress updates the per-session progress gauges.
func UpdateSessionProgress(sessionID string, completed int, bestScore float64) {
	TrialsCompleted.WithLabelValues(sessionID).Set(float64(completed))
	BestCompositeScore.WithLabelValues(sessionID).Set(bestScore)
}
