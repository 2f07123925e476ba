package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/bankroll"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/scoring"
)

// ValueStrategy bets candidates whose expected value clears the configured
// threshold, sized by the bankroll policy. It is the strategy a trial
// assembles from in-memory rules and calibration; it never touches
// persisted rule definitions.
type ValueStrategy struct {
	name         string
	scorer       *scoring.Scorer
	evThreshold  float64
	maxBets      int
	method       bankroll.Method
	bankrollOpts bankroll.Options
	betType      models.BetType
	logger       *logrus.Logger
}

// Config assembles a ValueStrategy.
type Config struct {
	Name            string
	Scorer          *scoring.Scorer
	EVThreshold     float64
	MaxBetsPerEvent int
	StakingMethod   bankroll.Method
	BankrollOpts    bankroll.Options
	TargetRank      int // 1 bets WIN, anything else bets PLACE
	Logger          *logrus.Logger
}

// NewValueStrategy builds the strategy. MaxBetsPerEvent below 1 is treated
// as 1.
func NewValueStrategy(cfg Config) *ValueStrategy {
	if cfg.MaxBetsPerEvent < 1 {
		cfg.MaxBetsPerEvent = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	name := cfg.Name
	if name == "" {
		name = "value"
	}
	betType := models.BetTypePlace
	if cfg.TargetRank == 1 {
		betType = models.BetTypeWin
	}
	return &ValueStrategy{
		name:         name,
		scorer:       cfg.Scorer,
		evThreshold:  cfg.EVThreshold,
		maxBets:      cfg.MaxBetsPerEvent,
		method:       cfg.StakingMethod,
		bankrollOpts: cfg.BankrollOpts,
		betType:      betType,
		logger:       cfg.Logger,
	}
}

// Name returns the strategy name.
func (s *ValueStrategy) Name() string {
	return s.name
}

// Run scores the event, keeps value bets up to the per-event cap in EV order
// and sizes each stake against the current bankroll.
func (s *ValueStrategy) Run(_ context.Context, event *models.RaceEvent, currentBankroll int64) ([]*models.Bet, error) {
	if len(event.Candidates) == 0 || currentBankroll <= 0 {
		return nil, nil
	}

	scored, err := s.scorer.ScoreRace(event)
	if err != nil {
		return nil, err
	}

	valueBets := make([]scoring.ScoredCandidate, 0, len(scored))
	for _, sc := range scored {
		if sc.ExpectedValue > s.evThreshold {
			valueBets = append(valueBets, sc)
		}
	}
	if len(valueBets) == 0 {
		return nil, nil
	}
	if len(valueBets) > s.maxBets {
		valueBets = valueBets[:s.maxBets]
	}

	manager, err := bankroll.NewManager(currentBankroll, s.method, s.bankrollOpts, s.logger)
	if err != nil {
		return nil, err
	}

	bets := make([]*models.Bet, 0, len(valueBets))
	for _, vb := range valueBets {
		stake := manager.CalculateStake(vb.EstimatedProb, vb.MarketOdds)
		if stake <= 0 {
			continue
		}
		bets = append(bets, &models.Bet{
			ID:              uuid.New(),
			EventKey:        event.Key,
			Selection:       vb.Number,
			Type:            s.betType,
			Stake:           stake,
			EstimatedProb:   vb.EstimatedProb,
			OddsAtBet:       vb.MarketOdds,
			EstimatedEV:     vb.ExpectedValue,
			FactorBreakdown: vb.FactorBreakdown,
			PlacedAt:        event.Date,
		})
		manager.RecordBet(stake)
	}
	return bets, nil
}
