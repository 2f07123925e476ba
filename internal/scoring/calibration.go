// Package scoring converts weighted rule sets into probabilities and
// expected values per candidate.
package scoring

import (
	"math"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// MinCalibrationSamples is the minimum paired sample count a calibrator fit
// will accept. Fewer samples is a caller error, not silently tolerated.
const MinCalibrationSamples = 50

// Calibrator maps a raw total score to a win probability.
type Calibrator interface {
	Name() string
	Fit(scores []float64, labels []int) error
	Predict(score float64) (float64, error)
}

// NewCalibrator builds the calibrator for a trial's configured method.
// CalibrationNone selects the documented linear fallback.
func NewCalibrator(method string, logger *logrus.Logger) Calibrator {
	switch method {
	case models.CalibrationPlatt:
		return &PlattCalibrator{}
	case models.CalibrationIsotonic:
		return &IsotonicCalibrator{}
	default:
		return NewLinearCalibrator(logger)
	}
}

func validateFitInput(scores []float64, labels []int) error {
	if len(scores) != len(labels) {
		return models.NewValidationError("calibration input length mismatch: %d scores, %d labels", len(scores), len(labels))
	}
	if len(scores) < MinCalibrationSamples {
		return models.NewValidationError("calibration requires at least %d samples, got %d", MinCalibrationSamples, len(scores))
	}
	return nil
}

// PlattCalibrator fits a 1-D logistic regression mapping score to
// probability. The fit is a fixed-iteration gradient descent on standardized
// scores, fully deterministic.
type PlattCalibrator struct {
	a, b      float64
	mean, std float64
	fitted    bool
}

// Name returns the calibration method identifier.
func (c *PlattCalibrator) Name() string { return models.CalibrationPlatt }

// Fit learns the logistic parameters from paired scores and binary labels.
func (c *PlattCalibrator) Fit(scores []float64, labels []int) error {
	if err := validateFitInput(scores, labels); err != nil {
		return err
	}

	c.mean, c.std = meanStd(scores)
	if c.std == 0 {
		c.std = 1
	}

	z := make([]float64, len(scores))
	for i, s := range scores {
		z[i] = (s - c.mean) / c.std
	}

	// Gradient descent on the logistic log-loss, fixed 500 iterations.
	a, b := 0.0, 0.0
	n := float64(len(z))
	const lr = 0.1
	for iter := 0; iter < 500; iter++ {
		gradA, gradB := 0.0, 0.0
		for i, zi := range z {
			p := sigmoid(a*zi + b)
			diff := p - float64(labels[i])
			gradA += diff * zi
			gradB += diff
		}
		a -= lr * gradA / n
		b -= lr * gradB / n
	}

	c.a, c.b = a, b
	c.fitted = true
	return nil
}

// Predict converts a score into a probability. Returns ErrUntrained before Fit.
func (c *PlattCalibrator) Predict(score float64) (float64, error) {
	if !c.fitted {
		return 0, models.ErrUntrained
	}
	z := (score - c.mean) / c.std
	return sigmoid(c.a*z + c.b), nil
}

// IsotonicCalibrator fits a monotonic non-decreasing step function with the
// pool-adjacent-violators algorithm.
type IsotonicCalibrator struct {
	thresholds []float64
	values     []float64
	fitted     bool
}

// Name returns the calibration method identifier.
func (c *IsotonicCalibrator) Name() string { return models.CalibrationIsotonic }

// Fit learns the step function from paired scores and binary labels.
func (c *IsotonicCalibrator) Fit(scores []float64, labels []int) error {
	if err := validateFitInput(scores, labels); err != nil {
		return err
	}

	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, len(scores))
	for i := range scores {
		pairs[i] = pair{score: scores[i], label: float64(labels[i])}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score < pairs[j].score })

	// Pool adjacent violators: merge blocks until values are non-decreasing.
	type block struct {
		sum    float64
		weight float64
		start  int
	}
	blocks := make([]block, 0, len(pairs))
	for i, p := range pairs {
		blocks = append(blocks, block{sum: p.label, weight: 1, start: i})
		for len(blocks) > 1 {
			last := blocks[len(blocks)-1]
			prev := blocks[len(blocks)-2]
			if prev.sum/prev.weight <= last.sum/last.weight {
				break
			}
			merged := block{sum: prev.sum + last.sum, weight: prev.weight + last.weight, start: prev.start}
			blocks = blocks[:len(blocks)-2]
			blocks = append(blocks, merged)
		}
	}

	c.thresholds = make([]float64, len(blocks))
	c.values = make([]float64, len(blocks))
	for i, b := range blocks {
		c.thresholds[i] = pairs[b.start].score
		c.values[i] = b.sum / b.weight
	}
	c.fitted = true
	return nil
}

// Predict converts a score into a probability by step-function lookup,
// clipping outside the fitted range.
func (c *IsotonicCalibrator) Predict(score float64) (float64, error) {
	if !c.fitted {
		return 0, models.ErrUntrained
	}
	idx := sort.SearchFloat64s(c.thresholds, score)
	if idx == 0 {
		return c.values[0], nil
	}
	if idx >= len(c.values) {
		return c.values[len(c.values)-1], nil
	}
	if c.thresholds[idx] == score {
		return c.values[idx], nil
	}
	return c.values[idx-1], nil
}

// LinearCalibrator is the explicit fallback when no calibration is fitted:
// clamp(score/200, 0.01, 0.99). It logs a one-time warning on first use so a
// run's probabilities are never silently uncalibrated.
type LinearCalibrator struct {
	logger   *logrus.Logger
	warnOnce sync.Once
}

// NewLinearCalibrator builds the fallback calibrator.
func NewLinearCalibrator(logger *logrus.Logger) *LinearCalibrator {
	if logger == nil {
		logger = logrus.New()
	}
	return &LinearCalibrator{logger: logger}
}

// Name returns the calibration method identifier.
func (c *LinearCalibrator) Name() string { return models.CalibrationNone }

// Fit is a no-op; the linear mapping has no parameters to learn.
func (c *LinearCalibrator) Fit(_ []float64, _ []int) error { return nil }

// Predict applies the documented linear mapping.
func (c *LinearCalibrator) Predict(score float64) (float64, error) {
	c.warnOnce.Do(func() {
		c.logger.Warn("no calibrator fitted, using linear fallback clamp(score/200, 0.01, 0.99)")
	})
	p := score / 200.0
	if p < 0.01 {
		p = 0.01
	}
	if p > 0.99 {
		p = 0.99
	}
	return p, nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
