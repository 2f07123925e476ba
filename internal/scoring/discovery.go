package scoring

import (
	"sort"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// FactorPower is one factor's standalone discriminative power.
type FactorPower struct {
	Name string
	AUC  float64
}

// RankFactorsByAUC measures each factor's standalone AUC against the target
// label over the given matrix and returns factors sorted by AUC descending.
// Factors at or below minAUC are dropped.
func RankFactorsByAUC(matrix *FactorMatrix, minAUC float64) []FactorPower {
	ranked := make([]FactorPower, 0, len(matrix.FactorNames))
	for j, name := range matrix.FactorNames {
		col := make([]float64, len(matrix.X))
		for i := range matrix.X {
			col[i] = matrix.X[i][j]
		}
		auc := binaryAUC(col, matrix.Labels)
		// A factor that argues against the target is as informative as one
		// arguing for it; fold below-chance AUC around 0.5.
		if auc < 0.5 {
			auc = 1.0 - auc
		}
		if auc <= minAUC {
			continue
		}
		ranked = append(ranked, FactorPower{Name: name, AUC: auc})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].AUC > ranked[j].AUC })
	return ranked
}

// SelectTopFactors filters rules down to the k highest-AUC factors. When the
// ranking is empty the incoming rules are returned unchanged.
func SelectTopFactors(rules []models.FactorRule, ranked []FactorPower, k int) []models.FactorRule {
	if len(ranked) == 0 {
		return rules
	}
	if k > len(ranked) {
		k = len(ranked)
	}
	keep := make(map[string]bool, k)
	for _, fp := range ranked[:k] {
		keep[fp.Name] = true
	}
	selected := make([]models.FactorRule, 0, k)
	for _, r := range rules {
		if keep[r.Name] {
			selected = append(selected, r)
		}
	}
	if len(selected) == 0 {
		return rules
	}
	return selected
}

// binaryAUC computes the Mann-Whitney AUC of values against binary labels,
// with the midrank correction for ties.
func binaryAUC(values []float64, labels []int) float64 {
	type pair struct {
		v float64
		l int
	}
	pairs := make([]pair, len(values))
	for i := range values {
		pairs[i] = pair{v: values[i], l: labels[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].v < pairs[j].v })

	pos, neg := 0, 0
	for _, p := range pairs {
		if p.l == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}

	rankSum := 0.0
	i := 0
	for i < len(pairs) {
		j := i
		for j < len(pairs) && pairs[j].v == pairs[i].v {
			j++
		}
		midrank := float64(i+j+1) / 2.0 // average of 1-based ranks i+1..j
		for k := i; k < j; k++ {
			if pairs[k].l == 1 {
				rankSum += midrank
			}
		}
		i = j
	}

	u := rankSum - float64(pos)*float64(pos+1)/2.0
	return u / (float64(pos) * float64(neg))
}
