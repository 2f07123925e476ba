package dataprovider

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/database"
	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// PostgresEventSource loads race events from the ingestion schema. Races,
// entrants and payouts live in separate tables and are fetched concurrently,
// then joined by race key.
type PostgresEventSource struct {
	db *database.DB
}

// NewPostgresEventSource creates an event source over the ingestion tables.
func NewPostgresEventSource(db *database.DB) *PostgresEventSource {
	return &PostgresEventSource{db: db}
}

// EventsByDateRange loads the full event set of a date range, sorted
// ascending by date. Races without any priced entrant are dropped.
func (p *PostgresEventSource) EventsByDateRange(ctx context.Context, from, to time.Time) ([]*models.RaceEvent, error) {
	var (
		wg         sync.WaitGroup
		races      map[string]*models.RaceEvent
		candidates map[string][]*models.Candidate
		payouts    map[string][]models.Payout
		raceErr    error
		candErr    error
		payErr     error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		races, raceErr = p.fetchRaces(ctx, from, to)
	}()
	go func() {
		defer wg.Done()
		candidates, candErr = p.fetchCandidates(ctx, from, to)
	}()
	go func() {
		defer wg.Done()
		payouts, payErr = p.fetchPayouts(ctx, from, to)
	}()
	wg.Wait()

	for _, err := range []error{raceErr, candErr, payErr} {
		if err != nil {
			return nil, err
		}
	}

	events := make([]*models.RaceEvent, 0, len(races))
	for key, race := range races {
		race.Candidates = candidates[key]
		race.Payouts = payouts[key]
		if !hasPricedCandidate(race) {
			continue
		}
		events = append(events, race)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].Key < events[j].Key
	})
	return events, nil
}

func (p *PostgresEventSource) fetchRaces(ctx context.Context, from, to time.Time) (map[string]*models.RaceEvent, error) {
	query := `
		SELECT race_key, race_date, venue, race_number, distance, track_code
		FROM race_events
		WHERE race_date >= $1 AND race_date <= $2
	`

	rows, err := p.db.Pool().Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query races: %w", err)
	}
	defer rows.Close()

	races := make(map[string]*models.RaceEvent)
	for rows.Next() {
		race := &models.RaceEvent{}
		err := rows.Scan(&race.Key, &race.Date, &race.Venue, &race.Number, &race.Distance, &race.TrackCode)
		if err != nil {
			return nil, fmt.Errorf("failed to scan race: %w", err)
		}
		races[race.Key] = race
	}

	return races, rows.Err()
}

func (p *PostgresEventSource) fetchCandidates(ctx context.Context, from, to time.Time) (map[string][]*models.Candidate, error) {
	query := `
		SELECT c.race_key, c.number, c.name, c.odds, c.popularity_rank, c.weight_delta,
		       c.gate_position, c.predicted_rank, c.finish_rank,
		       c.prev_finish_rank, c.prev_closing_sectional, c.prev_running_style, c.prev_popularity_rank
		FROM race_candidates c
		JOIN race_events e ON e.race_key = c.race_key
		WHERE e.race_date >= $1 AND e.race_date <= $2
		ORDER BY c.race_key, c.number
	`

	rows, err := p.db.Pool().Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	candidates := make(map[string][]*models.Candidate)
	for rows.Next() {
		var raceKey string
		c := &models.Candidate{}
		var prevFinish, prevStyle, prevPop *int
		var prevSectional *float64
		err := rows.Scan(&raceKey, &c.Number, &c.Name, &c.Odds, &c.PopularityRank, &c.WeightDelta,
			&c.GatePosition, &c.PredictedRank, &c.FinishRank,
			&prevFinish, &prevSectional, &prevStyle, &prevPop)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if prevFinish != nil {
			c.Prev = &models.PrevStart{
				FinishRank:       *prevFinish,
				ClosingSectional: derefFloat(prevSectional),
				RunningStyle:     derefInt(prevStyle),
				PopularityRank:   derefInt(prevPop),
			}
		}
		candidates[raceKey] = append(candidates[raceKey], c)
	}

	return candidates, rows.Err()
}

func (p *PostgresEventSource) fetchPayouts(ctx context.Context, from, to time.Time) (map[string][]models.Payout, error) {
	query := `
		SELECT p.race_key, p.bet_type, p.selection, p.amount
		FROM race_payouts p
		JOIN race_events e ON e.race_key = p.race_key
		WHERE e.race_date >= $1 AND e.race_date <= $2
	`

	rows, err := p.db.Pool().Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query payouts: %w", err)
	}
	defer rows.Close()

	payouts := make(map[string][]models.Payout)
	for rows.Next() {
		var raceKey string
		var payout models.Payout
		var amount decimal.Decimal
		err := rows.Scan(&raceKey, &payout.Type, &payout.Selection, &amount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		payout.Amount = amount
		payouts[raceKey] = append(payouts[raceKey], payout)
	}

	return payouts, rows.Err()
}

func hasPricedCandidate(race *models.RaceEvent) bool {
	for _, c := range race.Candidates {
		if c.Odds > 0 {
			return true
		}
	}
	return false
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
