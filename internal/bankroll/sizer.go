// Package bankroll decides stake sizes under a sizing policy and risk caps.
package bankroll

import (
	"github.com/sirupsen/logrus"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// Method is the stake sizing policy
type Method string

const (
	// Equal stakes a fixed fraction of the current balance
	Equal Method = Method(models.StakingEqual)
	// EVProportional scales the stake with the edge magnitude
	EVProportional Method = Method(models.StakingEVProportional)
	// QuarterKelly stakes 0.25 of the full Kelly fraction
	QuarterKelly Method = Method(models.StakingQuarterKelly)
)

// MethodFromString maps a trial's staking method name onto a Method,
// defaulting to QuarterKelly for unknown names.
func MethodFromString(name string) Method {
	switch name {
	case models.StakingEqual:
		return Equal
	case models.StakingEVProportional:
		return EVProportional
	default:
		return QuarterKelly
	}
}

// Options tunes the safety caps layered over every sizing method.
type Options struct {
	FixedRate      float64 // Equal / EVProportional base fraction of balance
	MaxDailyRate   float64 // daily stake budget as a fraction of balance
	MaxPerRaceRate float64 // per-event stake cap as a fraction of balance
	DrawdownCutoff float64 // drawdown beyond which raw stakes are halved
	MinStakeUnit   int64   // venue minimum stake unit; stakes round down to it
}

// DefaultOptions mirrors the venue conventions: 100-unit minimum tickets,
// 5% per-event cap, 20% daily budget, halving beyond 30% drawdown.
func DefaultOptions() Options {
	return Options{
		FixedRate:      0.005,
		MaxDailyRate:   0.20,
		MaxPerRaceRate: 0.05,
		DrawdownCutoff: 0.30,
		MinStakeUnit:   100,
	}
}

// Manager tracks a bankroll through a run and sizes each stake under the
// configured policy plus the layered caps. Not safe for concurrent use; each
// trial owns its own Manager.
type Manager struct {
	initialBalance  int64
	currentBalance  int64
	peakBalance     int64
	method          Method
	opts            Options
	dailyTotalStake int64
	logger          *logrus.Logger
}

// NewManager creates a bankroll manager. initialBalance must be positive.
func NewManager(initialBalance int64, method Method, opts Options, logger *logrus.Logger) (*Manager, error) {
	if initialBalance <= 0 {
		return nil, models.NewValidationError("initial balance must be positive: %d", initialBalance)
	}
	if opts.MinStakeUnit <= 0 {
		opts.MinStakeUnit = 100
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		initialBalance: initialBalance,
		currentBalance: initialBalance,
		peakBalance:    initialBalance,
		method:         method,
		opts:           opts,
		logger:         logger,
	}, nil
}

// Balance returns the current balance.
func (m *Manager) Balance() int64 {
	return m.currentBalance
}

// CurrentDrawdown returns the drawdown from the peak balance in [0,1].
func (m *Manager) CurrentDrawdown() float64 {
	if m.peakBalance == 0 {
		return 0
	}
	dd := 1.0 - float64(m.currentBalance)/float64(m.peakBalance)
	if dd < 0 {
		return 0
	}
	return dd
}

// CalculateStake sizes one stake for the given probability and odds. The
// caps apply in order: drawdown throttle, per-event cap, remaining daily
// budget, rounding down to the minimum unit. A stake that rounds below one
// unit returns 0; the result is never negative or fractional.
func (m *Manager) CalculateStake(probability, odds float64) int64 {
	scale := 1.0
	if m.CurrentDrawdown() > m.opts.DrawdownCutoff {
		scale = 0.5
		m.logger.WithFields(logrus.Fields{
			"drawdown": m.CurrentDrawdown(),
			"cutoff":   m.opts.DrawdownCutoff,
		}).Warn("drawdown over cutoff, halving stake")
	}

	var stake int64
	switch m.method {
	case Equal:
		stake = int64(float64(m.currentBalance) * m.opts.FixedRate * scale)

	case EVProportional:
		ev := probability * odds
		if ev <= 1.0 {
			return 0
		}
		base := float64(m.currentBalance) * m.opts.FixedRate
		stake = int64(base * (ev - 1.0) * 10 * scale)

	case QuarterKelly:
		// f* = (p*b - q) / b with b = odds - 1
		p := probability
		q := 1.0 - p
		b := odds - 1.0
		if b <= 0 || p*b-q <= 0 {
			return 0
		}
		fraction := (p*b - q) / b * 0.25 * scale
		stake = int64(float64(m.currentBalance) * fraction)

	default:
		return 0
	}

	maxStake := int64(float64(m.currentBalance) * m.opts.MaxPerRaceRate)
	if stake > maxStake {
		stake = maxStake
	}

	dailyMax := int64(float64(m.currentBalance) * m.opts.MaxDailyRate)
	remaining := dailyMax - m.dailyTotalStake
	if remaining < 0 {
		remaining = 0
	}
	if stake > remaining {
		stake = remaining
	}

	stake = stake / m.opts.MinStakeUnit * m.opts.MinStakeUnit
	if stake < 0 {
		return 0
	}
	return stake
}

// RecordBet debits a placed stake from the balance and the daily budget.
func (m *Manager) RecordBet(stake int64) {
	m.currentBalance -= stake
	m.dailyTotalStake += stake
}

// RecordPayout credits a settlement payout and advances the peak balance.
func (m *Manager) RecordPayout(payout int64) {
	m.currentBalance += payout
	if m.currentBalance > m.peakBalance {
		m.peakBalance = m.currentBalance
	}
}

// ResetDaily clears the daily stake budget. Called on date rollover.
func (m *Manager) ResetDaily() {
	m.dailyTotalStake = 0
}
