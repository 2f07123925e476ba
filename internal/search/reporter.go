package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/repository"
)

// TrendValue is one parameter value's score statistics across a session's
// non-failed trials.
type TrendValue struct {
	Value    string
	AvgScore float64
	MaxScore float64
	Count    int
}

// Summary is the final report of a search session.
type Summary struct {
	SessionID       string
	TotalTrials     int
	CompletedTrials int
	ErrorTrials     int
	BestTrial       *models.TrialResult
	TopTrials       []*models.TrialResult
	ParameterTrends map[string][]TrendValue
	Elapsed         float64 // seconds
	Recommendation  string
}

// trendDimensions lists the hyperparameter dimensions the trend analysis
// covers, in report order.
var trendDimensions = []string{
	"train_window_months", "ev_threshold", "regularization",
	"target_rank", "calibration_method", "staking_method",
	"wf_n_windows", "max_bets_per_event", "factor_selection",
}

// Reporter derives the final session report from persisted trials.
type Reporter struct {
	store repository.Store
}

// NewReporter creates a reporter over the result store.
func NewReporter(store repository.Store) *Reporter {
	return &Reporter{store: store}
}

// Generate builds the summary for a session. Rankings are re-derived from
// the store, never from in-memory state, so a report after a resume covers
// every persisted trial.
func (r *Reporter) Generate(ctx context.Context, sessionID string) (*Summary, error) {
	all, err := r.store.GetTrials(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading trials: %w", err)
	}
	top, err := r.store.TopTrials(ctx, sessionID, 10)
	if err != nil {
		return nil, fmt.Errorf("loading top trials: %w", err)
	}
	session, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	completed := make([]*models.TrialResult, 0, len(all))
	errors := 0
	for _, t := range all {
		if t.Failed() {
			errors++
			continue
		}
		completed = append(completed, t)
	}

	summary := &Summary{
		SessionID:       sessionID,
		TotalTrials:     len(all),
		CompletedTrials: len(completed),
		ErrorTrials:     errors,
		TopTrials:       top,
		ParameterTrends: analyzeTrends(completed),
		Elapsed:         session.Elapsed.Seconds(),
	}
	if len(top) > 0 {
		summary.BestTrial = top[0]
	}
	summary.Recommendation = buildRecommendation(summary)

	return summary, nil
}

// analyzeTrends groups non-failed trials by each dimension's value and
// computes per-value average and maximum composite scores, best average
// first.
func analyzeTrends(trials []*models.TrialResult) map[string][]TrendValue {
	trends := make(map[string][]TrendValue, len(trendDimensions))

	for _, dim := range trendDimensions {
		scores := make(map[string][]float64)
		for _, t := range trials {
			val := dimensionValue(&t.Config, dim)
			scores[val] = append(scores[val], t.CompositeScore)
		}

		values := make([]TrendValue, 0, len(scores))
		for val, ss := range scores {
			sum, max := 0.0, ss[0]
			for _, s := range ss {
				sum += s
				if s > max {
					max = s
				}
			}
			values = append(values, TrendValue{
				Value:    val,
				AvgScore: sum / float64(len(ss)),
				MaxScore: max,
				Count:    len(ss),
			})
		}
		sort.SliceStable(values, func(i, j int) bool {
			if values[i].AvgScore != values[j].AvgScore {
				return values[i].AvgScore > values[j].AvgScore
			}
			return values[i].Value < values[j].Value
		})
		trends[dim] = values
	}

	return trends
}

func dimensionValue(c *models.TrialConfig, dim string) string {
	switch dim {
	case "train_window_months":
		return fmt.Sprintf("%d", c.TrainWindowMonths)
	case "ev_threshold":
		return fmt.Sprintf("%.2f", c.EVThreshold)
	case "regularization":
		return fmt.Sprintf("%g", c.Regularization)
	case "target_rank":
		return fmt.Sprintf("%d", c.TargetRank)
	case "calibration_method":
		return c.CalibrationMethod
	case "staking_method":
		return c.StakingMethod
	case "wf_n_windows":
		return fmt.Sprintf("%d", c.WFNumWindows)
	case "max_bets_per_event":
		return fmt.Sprintf("%d", c.MaxBetsPerEvent)
	case "factor_selection":
		return c.FactorSelection
	default:
		return ""
	}
}

// buildRecommendation renders the human-readable session verdict.
func buildRecommendation(summary *Summary) string {
	if summary.BestTrial == nil {
		return "No successful trials in this session."
	}

	best := summary.BestTrial
	c := best.Config
	target := "place (top 3)"
	if c.TargetRank == 1 {
		target = "win"
	}

	lines := []string{
		"=== Search Report ===",
		"",
		fmt.Sprintf("Best configuration (composite score %.1f/100):", best.CompositeScore),
		fmt.Sprintf("  train window:   %d months", c.TrainWindowMonths),
		fmt.Sprintf("  ev threshold:   %.2f", c.EVThreshold),
		fmt.Sprintf("  regularization: %g", c.Regularization),
		fmt.Sprintf("  target:         %s", target),
		fmt.Sprintf("  calibration:    %s", c.CalibrationMethod),
		fmt.Sprintf("  staking:        %s", c.StakingMethod),
		fmt.Sprintf("  wf windows:     %d", c.WFNumWindows),
		fmt.Sprintf("  max bets:       %d per event", c.MaxBetsPerEvent),
		fmt.Sprintf("  factors:        %s", c.FactorSelection),
		"",
		"Out-of-sample performance:",
		fmt.Sprintf("  ROI:         %+.1f%%", best.ROI*100),
		fmt.Sprintf("  Sharpe:      %.3f", best.SharpeRatio),
		fmt.Sprintf("  max DD:      %.1f%%", best.MaxDrawdown*100),
		fmt.Sprintf("  win rate:    %.1f%%", best.WinRate*100),
		fmt.Sprintf("  total bets:  %d", best.TotalBets),
		"",
		fmt.Sprintf("  MC 5th pct ROI:   %+.1f%%", best.MCROI5th*100),
		fmt.Sprintf("  MC 95th pct ROI:  %+.1f%%", best.MCROI95th*100),
		fmt.Sprintf("  ruin probability: %.1f%%", best.MCRuinProbability*100),
		"",
		"Parameter trends (best value per dimension):",
	}

	for _, dim := range trendDimensions {
		values := summary.ParameterTrends[dim]
		if len(values) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s: %s (avg=%.1f, n=%d)",
			dim, values[0].Value, values[0].AvgScore, values[0].Count))
	}

	return strings.Join(lines, "\n")
}

// FormatReport renders the summary for CLI output.
func FormatReport(summary *Summary) string {
	lines := []string{
		summary.Recommendation,
		"",
		"--- Statistics ---",
		fmt.Sprintf("completed: %d/%d (errors: %d)",
			summary.CompletedTrials, summary.TotalTrials, summary.ErrorTrials),
		fmt.Sprintf("elapsed: %.0fs (%.1fh)", summary.Elapsed, summary.Elapsed/3600),
	}

	if len(summary.TopTrials) > 1 {
		lines = append(lines, "", "--- Top configurations ---")
		for i, t := range summary.TopTrials {
			lines = append(lines, fmt.Sprintf(
				"  %d. score=%.1f ROI=%+.1f%% Sharpe=%.3f DD=%.1f%% bets=%d EV=%.2f C=%g win=%dm",
				i+1, t.CompositeScore, t.ROI*100, t.SharpeRatio, t.MaxDrawdown*100,
				t.TotalBets, t.Config.EVThreshold, t.Config.Regularization, t.Config.TrainWindowMonths,
			))
		}
	}

	return strings.Join(lines, "\n")
}
