package models

import (
	"time"

	"github.com/google/uuid"
)

// BetType represents the wager type (WIN or PLACE)
type BetType string

const (
	BetTypeWin   BetType = "WIN"
	BetTypePlace BetType = "PLACE"
)

// SettlementMode distinguishes how a bet's outcome was resolved
type SettlementMode string

const (
	// SettlementActual means the payout table of the event was used
	SettlementActual SettlementMode = "settled"
	// SettlementSimulated means the EV-implied payout convention was used
	SettlementSimulated SettlementMode = "simulated"
)

// Bet represents a simulated betting transaction produced by a strategy
// during a backtest run. Immutable once settled within a run.
type Bet struct {
	ID              uuid.UUID          `json:"id"`
	EventKey        string             `json:"event_key"`
	Selection       string             `json:"selection"`
	Type            BetType            `json:"type"`
	Stake           int64              `json:"stake"` // integer currency units
	EstimatedProb   float64            `json:"estimated_prob"`
	OddsAtBet       float64            `json:"odds_at_bet"`
	EstimatedEV     float64            `json:"estimated_ev"`
	FactorBreakdown map[string]float64 `json:"factor_breakdown,omitempty"`
	PlacedAt        time.Time          `json:"placed_at"`
	ProfitLoss      *float64           `json:"profit_loss,omitempty"`
	Settlement      SettlementMode     `json:"settlement,omitempty"`
}

// IsSettled checks whether the bet outcome has been resolved.
func (b *Bet) IsSettled() bool {
	return b.ProfitLoss != nil
}

// PnL returns the resolved profit or loss, zero when unresolved.
func (b *Bet) PnL() float64 {
	if b.ProfitLoss == nil {
		return 0
	}
	return *b.ProfitLoss
}

// ImpliedPnL returns the EV-implied simulated payout convention:
// probability x odds x stake minus the stake. Optimistic by construction,
// used only when settlement data is absent.
func (b *Bet) ImpliedPnL() float64 {
	return (b.EstimatedProb*b.OddsAtBet - 1.0) * float64(b.Stake)
}
