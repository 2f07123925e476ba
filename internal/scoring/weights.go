package scoring

import (
	"math"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// MinPositiveLabels is the smallest positive-label count a weight fit will
// accept; below it the caller keeps the incoming weights.
const MinPositiveLabels = 10

// FitWeights fits an L2-regularized logistic classifier over the factor
// matrix and converts the coefficients into a rule weight map. Coefficients
// are normalized to |c|/max * 3.0, floored at 0.1 and rounded to two
// decimals, so a fitted weight is always strictly positive.
//
// regularization is the inverse regularization strength C (larger = weaker
// penalty), matching the trial's hyperparameter.
func FitWeights(matrix *FactorMatrix, regularization float64) (map[string]float64, error) {
	n := len(matrix.X)
	if n == 0 {
		return nil, models.NewValidationError("weight fit requires a non-empty factor matrix")
	}
	if matrix.Positives() < MinPositiveLabels {
		return nil, models.NewValidationError("weight fit requires at least %d positive labels, got %d", MinPositiveLabels, matrix.Positives())
	}
	if regularization <= 0 {
		return nil, models.NewValidationError("regularization must be positive: %v", regularization)
	}

	dims := len(matrix.FactorNames)

	// Standardize columns so one fixed learning rate works across factors.
	means := make([]float64, dims)
	stds := make([]float64, dims)
	for j := 0; j < dims; j++ {
		col := make([]float64, n)
		for i := range matrix.X {
			col[i] = matrix.X[i][j]
		}
		means[j], stds[j] = meanStd(col)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	// Balanced class weights, as the positive class is rare.
	positives := matrix.Positives()
	negatives := n - positives
	wPos := float64(n) / (2.0 * float64(positives))
	wNeg := float64(n) / (2.0 * float64(negatives))

	coefs := make([]float64, dims)
	intercept := 0.0
	lambda := 1.0 / (regularization * float64(n))
	const lr = 0.1
	for iter := 0; iter < 500; iter++ {
		grads := make([]float64, dims)
		gradB := 0.0
		for i, row := range matrix.X {
			z := intercept
			for j := 0; j < dims; j++ {
				z += coefs[j] * (row[j] - means[j]) / stds[j]
			}
			p := sigmoid(z)
			diff := p - float64(matrix.Labels[i])
			cw := wNeg
			if matrix.Labels[i] == 1 {
				cw = wPos
			}
			for j := 0; j < dims; j++ {
				grads[j] += cw * diff * (row[j] - means[j]) / stds[j]
			}
			gradB += cw * diff
		}
		for j := 0; j < dims; j++ {
			coefs[j] = coefs[j] - lr*(grads[j]/float64(n)+lambda*coefs[j])
		}
		intercept -= lr * gradB / float64(n)
	}

	maxAbs := 0.0
	for _, c := range coefs {
		if math.Abs(c) > maxAbs {
			maxAbs = math.Abs(c)
		}
	}
	if maxAbs == 0 {
		maxAbs = 1
	}

	weights := make(map[string]float64, dims)
	for j, name := range matrix.FactorNames {
		normalized := math.Abs(coefs[j]) / maxAbs * 3.0
		if normalized < 0.1 {
			normalized = 0.1
		}
		weights[name] = math.Round(normalized*100) / 100
	}
	return weights, nil
}

// ApplyWeights returns a copy of rules with weights replaced from the map.
// Rules absent from the map keep their incoming weight.
func ApplyWeights(rules []models.FactorRule, weights map[string]float64) []models.FactorRule {
	out := models.CloneRules(rules)
	for i := range out {
		if w, ok := weights[out[i].Name]; ok {
			out[i].Weight = w
		}
	}
	return out
}
