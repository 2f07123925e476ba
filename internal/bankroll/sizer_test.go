package bankroll

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

func newTestManager(t *testing.T, balance int64, method Method) *Manager {
	t.Helper()
	m, err := NewManager(balance, method, DefaultOptions(), nil)
	require.NoError(t, err)
	return m
}

func TestNewManagerRejectsNonPositiveBalance(t *testing.T) {
	_, err := NewManager(0, QuarterKelly, DefaultOptions(), nil)
	assert.True(t, models.IsValidationError(err))

	_, err = NewManager(-100, QuarterKelly, DefaultOptions(), nil)
	assert.True(t, models.IsValidationError(err))
}

func TestMethodFromString(t *testing.T) {
	assert.Equal(t, Equal, MethodFromString(models.StakingEqual))
	assert.Equal(t, EVProportional, MethodFromString(models.StakingEVProportional))
	assert.Equal(t, QuarterKelly, MethodFromString(models.StakingQuarterKelly))
	assert.Equal(t, QuarterKelly, MethodFromString("anything else"))
}

func TestQuarterKellyNoEdgeNoStake(t *testing.T) {
	m := newTestManager(t, 1_000_000, QuarterKelly)

	// p*b - q <= 0 means no edge.
	assert.Zero(t, m.CalculateStake(0.2, 2.0))
	// Odds at or below evens leave b <= 0.
	assert.Zero(t, m.CalculateStake(0.9, 1.0))
}

func TestQuarterKellyPositiveEdge(t *testing.T) {
	m := newTestManager(t, 1_000_000, QuarterKelly)

	// p=0.5, odds=3.0: f* = (0.5*2 - 0.5)/2 = 0.25, quarter = 0.0625,
	// capped by the 5% per-event rate to 50000.
	stake := m.CalculateStake(0.5, 3.0)
	assert.Equal(t, int64(50_000), stake)
}

func TestEqualStakeFixedRate(t *testing.T) {
	m := newTestManager(t, 1_000_000, Equal)
	// 0.5% of balance rounded down to the 100 unit.
	assert.Equal(t, int64(5_000), m.CalculateStake(0.3, 4.0))
}

func TestDailyBudgetExhaustion(t *testing.T) {
	m := newTestManager(t, 1_000_000, Equal)

	total := int64(0)
	for i := 0; i < 200; i++ {
		stake := m.CalculateStake(0.3, 4.0)
		if stake == 0 {
			break
		}
		m.RecordBet(stake)
		total += stake
	}
	assert.Positive(t, total)
	assert.Zero(t, m.CalculateStake(0.3, 4.0), "daily budget must eventually refuse stakes")

	m.ResetDaily()
	assert.Positive(t, m.CalculateStake(0.3, 4.0), "reset reopens the daily budget")
}

func TestDrawdownHalvesStake(t *testing.T) {
	m := newTestManager(t, 1_000_000, Equal)
	full := m.CalculateStake(0.3, 4.0)

	// Push the balance 40% below peak.
	m.RecordBet(400_000)
	require.Greater(t, m.CurrentDrawdown(), 0.30)

	halved := m.CalculateStake(0.3, 4.0)
	assert.Less(t, halved, full)
}

func TestRecordPayoutAdvancesPeak(t *testing.T) {
	m := newTestManager(t, 1_000_000, Equal)
	m.RecordBet(10_000)
	m.RecordPayout(50_000)

	assert.Equal(t, int64(1_040_000), m.Balance())
	assert.Zero(t, m.CurrentDrawdown())
}

func TestCalculateStakeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("stake is non-negative, unit-rounded and capped", prop.ForAll(
		func(balance int64, probability, odds float64, methodIdx int) bool {
			methods := []Method{QuarterKelly, Equal, EVProportional}
			m, err := NewManager(balance, methods[methodIdx], DefaultOptions(), nil)
			if err != nil {
				return false
			}
			stake := m.CalculateStake(probability, odds)
			if stake < 0 {
				return false
			}
			if stake%100 != 0 {
				return false
			}
			maxStake := int64(float64(balance) * DefaultOptions().MaxPerRaceRate)
			return stake <= maxStake
		},
		gen.Int64Range(1_000, 100_000_000),
		gen.Float64Range(0.01, 0.99),
		gen.Float64Range(1.0, 200.0),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}
