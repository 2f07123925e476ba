package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// Metrics summarizes the performance of a set of settled bets. All fields
// are zero for an empty input.
type Metrics struct {
	TotalBets   int     `json:"total_bets"`
	TotalStake  int64   `json:"total_stake"`
	TotalPayout float64 `json:"total_payout"`
	TotalPnL    float64 `json:"total_pnl"`

	ROI          float64 `json:"roi"`           // pnl / total stake
	RecoveryRate float64 `json:"recovery_rate"` // payout / total stake
	WinRate      float64 `json:"win_rate"`
	Edge         float64 `json:"edge"` // mean estimated prob x odds - 1

	MaxDrawdown  float64 `json:"max_drawdown"` // fraction of peak equity
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	CalmarRatio  float64 `json:"calmar_ratio"`
	ProfitFactor float64 `json:"profit_factor"` // +Inf when wins and no losses

	MaxConsecutiveWins   int     `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	AvgWin               float64 `json:"avg_win"`
	AvgLoss              float64 `json:"avg_loss"` // negative
	PayoffRatio          float64 `json:"payoff_ratio"`
	VaR95                float64 `json:"var_95"` // 5th percentile of per-bet pnl

	MonthlyWinRate float64 `json:"monthly_win_rate"` // fraction of profitable months
}

// CalculateMetrics derives performance metrics from settled bets. It is a
// pure function of its inputs; unsettled bets contribute zero PnL.
func CalculateMetrics(bets []*models.Bet, initialBankroll int64) Metrics {
	var m Metrics
	if len(bets) == 0 {
		return m
	}

	m.TotalBets = len(bets)
	pnls := make([]float64, len(bets))
	returns := make([]float64, 0, len(bets))
	for i, bet := range bets {
		pnl := bet.PnL()
		pnls[i] = pnl
		m.TotalStake += bet.Stake
		m.TotalPnL += pnl
		m.TotalPayout += pnl + float64(bet.Stake)
		m.Edge += bet.EstimatedProb*bet.OddsAtBet - 1.0
		if bet.Stake > 0 {
			returns = append(returns, pnl/float64(bet.Stake))
		}
		if pnl > 0 {
			m.WinRate++
		}
	}
	m.WinRate /= float64(len(bets))
	m.Edge /= float64(len(bets))
	if m.TotalStake > 0 {
		m.ROI = m.TotalPnL / float64(m.TotalStake)
		m.RecoveryRate = m.TotalPayout / float64(m.TotalStake)
	}

	m.MaxDrawdown = maxDrawdown(pnls, initialBankroll)
	m.SharpeRatio = sharpe(returns)
	m.SortinoRatio = sortino(returns)
	if m.MaxDrawdown > 0 {
		m.CalmarRatio = m.ROI / m.MaxDrawdown
	}
	m.ProfitFactor = profitFactor(pnls)
	m.MaxConsecutiveWins, m.MaxConsecutiveLosses = streaks(pnls)
	m.AvgWin, m.AvgLoss = avgWinLoss(pnls)
	if m.AvgLoss < 0 {
		m.PayoffRatio = m.AvgWin / -m.AvgLoss
	}
	m.VaR95 = percentile(pnls, 5)
	m.MonthlyWinRate = monthlyWinRate(bets)

	return m
}

// maxDrawdown walks the equity curve starting from the initial bankroll and
// returns the largest peak-to-trough decline as a fraction of the peak.
func maxDrawdown(pnls []float64, initialBankroll int64) float64 {
	equity := float64(initialBankroll)
	peak := equity
	maxDD := 0.0
	for _, pnl := range pnls {
		equity += pnl
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, std := meanStd(returns)
	if std == 0 {
		return 0
	}
	return mean / std
}

// sortino penalizes only downside deviation.
func sortino(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	downside = math.Sqrt(downside / float64(len(returns)))
	if downside == 0 {
		return 0
	}
	return mean / downside
}

// profitFactor is gross wins over gross losses. +Inf when there are wins
// but no losses, zero when there are neither.
func profitFactor(pnls []float64) float64 {
	wins, losses := 0.0, 0.0
	for _, p := range pnls {
		if p > 0 {
			wins += p
		} else if p < 0 {
			losses += -p
		}
	}
	if losses == 0 {
		if wins > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return wins / losses
}

func streaks(pnls []float64) (maxWins, maxLosses int) {
	wins, losses := 0, 0
	for _, p := range pnls {
		if p > 0 {
			wins++
			losses = 0
		} else {
			losses++
			wins = 0
		}
		if wins > maxWins {
			maxWins = wins
		}
		if losses > maxLosses {
			maxLosses = losses
		}
	}
	return maxWins, maxLosses
}

func avgWinLoss(pnls []float64) (avgWin, avgLoss float64) {
	winSum, winN, lossSum, lossN := 0.0, 0, 0.0, 0
	for _, p := range pnls {
		if p > 0 {
			winSum += p
			winN++
		} else if p < 0 {
			lossSum += p
			lossN++
		}
	}
	if winN > 0 {
		avgWin = winSum / float64(winN)
	}
	if lossN > 0 {
		avgLoss = lossSum / float64(lossN)
	}
	return avgWin, avgLoss
}

// percentile returns the p-th percentile of values using linear
// interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// monthlyWinRate groups settled bets by calendar month of placement and
// returns the fraction of months with positive total PnL.
func monthlyWinRate(bets []*models.Bet) float64 {
	byMonth := make(map[time.Time]float64)
	for _, bet := range bets {
		month := time.Date(bet.PlacedAt.Year(), bet.PlacedAt.Month(), 1, 0, 0, 0, 0, time.UTC)
		byMonth[month] += bet.PnL()
	}
	if len(byMonth) == 0 {
		return 0
	}
	profitable := 0
	for _, pnl := range byMonth {
		if pnl > 0 {
			profitable++
		}
	}
	return float64(profitable) / float64(len(byMonth))
}

func meanStd(values []float64) (mean, std float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		std += (v - mean) * (v - mean)
	}
	std = math.Sqrt(std / float64(len(values)))
	return mean, std
}
