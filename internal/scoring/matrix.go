package scoring

import (
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/factors"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// FactorMatrix is the rule-value design matrix over a set of events, labeled
// by the trial's target finish rank. Candidates without a known outcome or
// without an observable price are excluded.
type FactorMatrix struct {
	X           [][]float64
	Labels      []int
	FactorNames []string
}

// Positives counts the positive labels in the matrix.
func (m *FactorMatrix) Positives() int {
	n := 0
	for _, l := range m.Labels {
		n += l
	}
	return n
}

// BuildFactorMatrix evaluates every rule against every settled candidate in
// the given events. The label is 1 when the candidate finished at or inside
// targetRank.
func BuildFactorMatrix(events []*models.RaceEvent, rules []models.FactorRule, evaluator *factors.Evaluator, targetRank int) *FactorMatrix {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}

	matrix := &FactorMatrix{FactorNames: names}
	for _, event := range events {
		for _, candidate := range event.Candidates {
			if candidate.FinishRank <= 0 || candidate.Odds <= 0 {
				continue
			}
			env := factors.BuildContext(candidate, event)
			row := make([]float64, len(rules))
			for j, rule := range rules {
				row[j] = evaluator.Evaluate(rule.Name, env)
			}
			label := 0
			if candidate.FinishRank <= targetRank {
				label = 1
			}
			matrix.X = append(matrix.X, row)
			matrix.Labels = append(matrix.Labels, label)
		}
	}
	return matrix
}

// WeightedScores computes the total score column for the matrix under a rule
// weight map, mirroring Scorer's accumulation order.
func (m *FactorMatrix) WeightedScores(weights map[string]float64) []float64 {
	scores := make([]float64, len(m.X))
	for i, row := range m.X {
		total := BaseScore
		for j, name := range m.FactorNames {
			total += row[j] * weights[name]
		}
		scores[i] = total
	}
	return scores
}
