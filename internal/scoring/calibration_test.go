package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// separableSamples builds a calibration set where high scores win and low
// scores lose.
func separableSamples(n int) ([]float64, []int) {
	scores := make([]float64, n)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			scores[i] = 150 + float64(i%10)
			labels[i] = 1
		} else {
			scores[i] = 80 + float64(i%10)
			labels[i] = 0
		}
	}
	return scores, labels
}

func TestPlattCalibratorFitAndPredict(t *testing.T) {
	scores, labels := separableSamples(100)

	c := &PlattCalibrator{}
	require.NoError(t, c.Fit(scores, labels))

	high, err := c.Predict(160)
	require.NoError(t, err)
	low, err := c.Predict(80)
	require.NoError(t, err)

	assert.Greater(t, high, low, "higher score should map to higher probability")
	assert.Greater(t, high, 0.5)
	assert.Less(t, low, 0.5)
	assert.GreaterOrEqual(t, low, 0.0)
	assert.LessOrEqual(t, high, 1.0)
}

func TestPlattCalibratorUntrained(t *testing.T) {
	c := &PlattCalibrator{}
	_, err := c.Predict(100)
	assert.ErrorIs(t, err, models.ErrUntrained)
}

func TestCalibratorFitValidation(t *testing.T) {
	scores, labels := separableSamples(MinCalibrationSamples)

	tests := []struct {
		name   string
		scores []float64
		labels []int
	}{
		{"too few samples", scores[:10], labels[:10]},
		{"length mismatch", scores, labels[:len(labels)-1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, c := range []Calibrator{&PlattCalibrator{}, &IsotonicCalibrator{}} {
				err := c.Fit(tt.scores, tt.labels)
				assert.Error(t, err)
				assert.True(t, models.IsValidationError(err))
			}
		})
	}
}

func TestIsotonicCalibratorMonotone(t *testing.T) {
	scores, labels := separableSamples(200)

	c := &IsotonicCalibrator{}
	require.NoError(t, c.Fit(scores, labels))

	prev := -1.0
	for s := 60.0; s <= 180.0; s += 5.0 {
		p, err := c.Predict(s)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, prev, "isotonic prediction must be non-decreasing in score")
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		prev = p
	}
}

func TestIsotonicCalibratorUntrained(t *testing.T) {
	c := &IsotonicCalibrator{}
	_, err := c.Predict(100)
	assert.ErrorIs(t, err, models.ErrUntrained)
}

func TestLinearCalibratorClamps(t *testing.T) {
	c := NewLinearCalibrator(nil)

	p, err := c.Predict(100)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-9)

	p, err = c.Predict(-500)
	require.NoError(t, err)
	assert.Equal(t, 0.01, p)

	p, err = c.Predict(100000)
	require.NoError(t, err)
	assert.Equal(t, 0.99, p)
}

func TestNewCalibratorFactory(t *testing.T) {
	assert.Equal(t, models.CalibrationPlatt, NewCalibrator(models.CalibrationPlatt, nil).Name())
	assert.Equal(t, models.CalibrationIsotonic, NewCalibrator(models.CalibrationIsotonic, nil).Name())
	assert.Equal(t, models.CalibrationNone, NewCalibrator(models.CalibrationNone, nil).Name())
	assert.Equal(t, models.CalibrationNone, NewCalibrator("unknown", nil).Name())
}
