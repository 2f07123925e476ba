package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PrevStart holds the candidate's previous start, used by rule expressions.
type PrevStart struct {
	FinishRank       int     `json:"finish_rank"`
	ClosingSectional float64 `json:"closing_sectional"` // final-3F time in tenths of seconds
	RunningStyle     int     `json:"running_style"`
	PopularityRank   int     `json:"popularity_rank"`
}

// Candidate represents one race entrant. Immutable once ingested; the core
// treats it as read-only data from the event source.
type Candidate struct {
	Number         string             `json:"number"` // selection id within the event
	Name           string             `json:"name"`
	Odds           float64            `json:"odds"` // win odds at decision time, <=0 means unobservable
	PopularityRank int                `json:"popularity_rank"`
	WeightDelta    int                `json:"weight_delta"`
	GatePosition   float64            `json:"gate_position"` // 0..1, inside to outside
	PredictedRank  int                `json:"predicted_rank"`
	FinishRank     int                `json:"finish_rank"` // 0 until the result is known
	Attributes     map[string]float64 `json:"attributes,omitempty"`
	Prev           *PrevStart         `json:"prev,omitempty"`
}

// Payout is one settlement payout line: amount returned per 100 units staked.
type Payout struct {
	Type      BetType         `json:"type"`
	Selection string          `json:"selection"`
	Amount    decimal.Decimal `json:"amount"`
}

// RaceEvent is one historical event with everything a strategy may see at
// decision time plus the out-of-band settlement data used by metrics.
type RaceEvent struct {
	Key        string       `json:"key"`
	Date       time.Time    `json:"date"`
	Venue      string       `json:"venue"`
	Number     int          `json:"number"`
	Distance   int          `json:"distance"`
	TrackCode  string       `json:"track_code"`
	Candidates []*Candidate `json:"candidates"`
	Payouts    []Payout     `json:"payouts,omitempty"`
}

// HasSettlement reports whether settlement payout data is available.
func (e *RaceEvent) HasSettlement() bool {
	return len(e.Payouts) > 0
}

// PayoutFor returns the payout amount per 100 units for a bet type and
// selection. The second return is false when the selection did not pay.
func (e *RaceEvent) PayoutFor(betType BetType, selection string) (decimal.Decimal, bool) {
	for _, p := range e.Payouts {
		if p.Type == betType && p.Selection == selection {
			return p.Amount, true
		}
	}
	return decimal.Zero, false
}

// CandidateByNumber returns the candidate carrying the given selection number.
func (e *RaceEvent) CandidateByNumber(number string) *Candidate {
	for _, c := range e.Candidates {
		if c.Number == number {
			return c
		}
	}
	return nil
}
