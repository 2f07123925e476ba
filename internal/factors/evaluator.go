// Package factors evaluates weighted scoring rules against race entrants.
package factors

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// Evaluator compiles rule expressions ahead of time and evaluates them
// against a fixed, enumerated variable namespace. Unknown identifiers fail
// at compile time, so an expression can never reach outside the namespace.
type Evaluator struct {
	programs map[string]*vm.Program
}

// namespace returns the complete evaluation environment with zero values.
// Compiling against it pins the set of legal identifiers.
func namespace() map[string]any {
	return map[string]any{
		"odds":                   0.0,
		"popularity_rank":        0,
		"num_entries":            0,
		"gate_position":          0.0,
		"predicted_rank":         0,
		"weight_delta":           0,
		"distance":               0,
		"track_code":             "",
		"prev_finish_rank":       0,
		"prev_closing_sectional": 0.0,
		"prev_closing_rank":      0,
		"prev_running_style":     0,
		"prev_popularity_rank":   0,
		"attrs":                  map[string]float64{},
		"field_avg_odds":         0.0,
		"field_min_odds":         0.0,
	}
}

// NewEvaluator compiles every rule expression. A rule that fails to compile
// makes the whole rule set unusable for the trial.
func NewEvaluator(rules []models.FactorRule) (*Evaluator, error) {
	programs := make(map[string]*vm.Program, len(rules))
	env := namespace()
	for _, rule := range rules {
		program, err := expr.Compile(rule.Expression, expr.Env(env))
		if err != nil {
			return nil, fmt.Errorf("rule %q: compile failed: %w", rule.Name, err)
		}
		programs[rule.Name] = program
	}
	return &Evaluator{programs: programs}, nil
}

// Evaluate runs a compiled rule against an entry context and returns its
// numeric contribution. Booleans map to 1/0; anything non-numeric scores 0.
func (e *Evaluator) Evaluate(ruleName string, env map[string]any) float64 {
	program, ok := e.programs[ruleName]
	if !ok {
		return 0
	}
	out, err := vm.Run(program, env)
	if err != nil {
		return 0
	}
	return toFloat(out)
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case bool:
		if x {
			return 1.0
		}
		return 0.0
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return 0
	}
}

// BuildContext assembles the entry context for one candidate within its race.
// Only decision-time data is exposed; realized outcomes never enter the map.
func BuildContext(candidate *models.Candidate, race *models.RaceEvent) map[string]any {
	ctx := namespace()
	ctx["odds"] = candidate.Odds
	ctx["popularity_rank"] = candidate.PopularityRank
	ctx["num_entries"] = len(race.Candidates)
	ctx["gate_position"] = candidate.GatePosition
	ctx["predicted_rank"] = candidate.PredictedRank
	ctx["weight_delta"] = candidate.WeightDelta
	ctx["distance"] = race.Distance
	ctx["track_code"] = race.TrackCode

	if candidate.Prev != nil {
		ctx["prev_finish_rank"] = candidate.Prev.FinishRank
		ctx["prev_closing_sectional"] = candidate.Prev.ClosingSectional
		ctx["prev_running_style"] = candidate.Prev.RunningStyle
		ctx["prev_popularity_rank"] = candidate.Prev.PopularityRank
		ctx["prev_closing_rank"] = closingRank(candidate, race)
	}

	if candidate.Attributes != nil {
		ctx["attrs"] = candidate.Attributes
	}

	sum, minOdds, n := 0.0, 0.0, 0
	for _, c := range race.Candidates {
		if c.Odds <= 0 {
			continue
		}
		sum += c.Odds
		if minOdds == 0 || c.Odds < minOdds {
			minOdds = c.Odds
		}
		n++
	}
	if n > 0 {
		ctx["field_avg_odds"] = sum / float64(n)
		ctx["field_min_odds"] = minOdds
	}

	return ctx
}

// closingRank ranks the candidate's previous closing sectional within the
// field's previous closing sectionals, 1 = fastest. Entrants without a
// previous start rank last.
func closingRank(candidate *models.Candidate, race *models.RaceEvent) int {
	if candidate.Prev == nil || candidate.Prev.ClosingSectional <= 0 {
		return len(race.Candidates)
	}
	rank := 1
	for _, c := range race.Candidates {
		if c == candidate || c.Prev == nil {
			continue
		}
		if c.Prev.ClosingSectional > 0 && c.Prev.ClosingSectional < candidate.Prev.ClosingSectional {
			rank++
		}
	}
	return rank
}
