// Package backtest replays strategies over historical events and derives
// performance metrics, walk-forward validation and Monte Carlo risk
// estimates.
package backtest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/strategy"
)

// Config holds one backtest run's settings.
type Config struct {
	DateFrom        time.Time
	DateTo          time.Time
	InitialBankroll int64
	StrategyVersion string
}

// Result is the outcome of one backtest run. Emitted even for zero events or
// zero bets.
type Result struct {
	Config         Config
	TotalEvents    int
	TotalBets      int
	Bets           []*models.Bet
	Metrics        Metrics
	SettlementMode string // settled, simulated, mixed, or empty for no bets
}

// Engine replays a strategy over an ordered event sequence. The strategy is
// only ever shown the current event, so decisions cannot depend on the
// future.
type Engine struct {
	strategy strategy.Strategy
	logger   *logrus.Logger
}

// NewEngine creates a backtest engine for a strategy.
func NewEngine(strat strategy.Strategy, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{strategy: strat, logger: logger}
}

// Run replays events in their given chronological order, debiting stakes
// from the simulated bankroll as bets are placed. Settlement is resolved
// afterwards from each event's payout table, falling back to the EV-implied
// convention when settlement data is absent.
func (e *Engine) Run(ctx context.Context, events []*models.RaceEvent, cfg Config) (*Result, error) {
	allBets := make([]*models.Bet, 0)
	bankroll := cfg.InitialBankroll
	eventByKey := make(map[string]*models.RaceEvent, len(events))

	e.logger.WithFields(logrus.Fields{
		"from":     cfg.DateFrom.Format("2006-01-02"),
		"to":       cfg.DateTo.Format("2006-01-02"),
		"bankroll": cfg.InitialBankroll,
		"events":   len(events),
	}).Debug("starting backtest replay")

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		eventByKey[event.Key] = event

		bets, err := e.strategy.Run(ctx, event, bankroll)
		if err != nil {
			return nil, err
		}
		for _, bet := range bets {
			bankroll -= bet.Stake
		}
		allBets = append(allBets, bets...)
	}

	mode := settleBets(allBets, eventByKey)
	metrics := CalculateMetrics(allBets, cfg.InitialBankroll)

	e.logger.WithFields(logrus.Fields{
		"events": len(events),
		"bets":   len(allBets),
		"roi":    metrics.ROI,
		"mode":   mode,
	}).Debug("backtest replay finished")

	return &Result{
		Config:         cfg,
		TotalEvents:    len(events),
		TotalBets:      len(allBets),
		Bets:           allBets,
		Metrics:        metrics,
		SettlementMode: mode,
	}, nil
}

// settleBets resolves every bet's PnL. Events carrying a payout table settle
// against it; the rest fall back to the EV-implied simulated payout. The two
// modes are recorded per bet and summarized for the run.
func settleBets(bets []*models.Bet, eventByKey map[string]*models.RaceEvent) string {
	settled, simulated := 0, 0
	for _, bet := range bets {
		event := eventByKey[bet.EventKey]
		if event != nil && event.HasSettlement() {
			pnl := settledPnL(bet, event)
			bet.ProfitLoss = &pnl
			bet.Settlement = models.SettlementActual
			settled++
			continue
		}
		pnl := bet.ImpliedPnL()
		bet.ProfitLoss = &pnl
		bet.Settlement = models.SettlementSimulated
		simulated++
	}

	switch {
	case settled > 0 && simulated > 0:
		return "mixed"
	case settled > 0:
		return string(models.SettlementActual)
	case simulated > 0:
		return string(models.SettlementSimulated)
	default:
		return ""
	}
}

// settledPnL computes the realized profit from the event payout table.
// Payout amounts are quoted per 100 units staked; a selection absent from
// the table lost its stake.
func settledPnL(bet *models.Bet, event *models.RaceEvent) float64 {
	amount, won := event.PayoutFor(bet.Type, bet.Selection)
	if !won {
		return -float64(bet.Stake)
	}
	payout := amount.Mul(decimal.NewFromInt(bet.Stake)).Div(decimal.NewFromInt(100))
	pnl := payout.Sub(decimal.NewFromInt(bet.Stake))
	f, _ := pnl.Float64()
	return f
}

// FilterEvents returns the events dated within [from, to], preserving order.
func FilterEvents(events []*models.RaceEvent, from, to time.Time) []*models.RaceEvent {
	out := make([]*models.RaceEvent, 0, len(events))
	for _, e := range events {
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}
