// Package strategy defines the betting strategy contract used by backtests.
package strategy

import (
	"context"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// Strategy decides the bets for one event. Run receives only the event's own
// data, the current bankroll and static configuration; it is never handed
// future events, which is the invariant that keeps backtests free of
// look-ahead bias.
type Strategy interface {
	Name() string
	Run(ctx context.Context, event *models.RaceEvent, bankroll int64) ([]*models.Bet, error)
}
