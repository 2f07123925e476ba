// Package dataprovider loads historical race events for backtesting.
package dataprovider

import (
	"context"
	"sort"
	"time"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// EventSource serves the historical events of a date range, sorted
// ascending by date. Implementations must return data that was observable
// at decision time plus the out-of-band settlement payouts.
type EventSource interface {
	EventsByDateRange(ctx context.Context, from, to time.Time) ([]*models.RaceEvent, error)
}

// StaticEventSource serves a fixed event slice. Used in tests and for runs
// over preloaded exports.
type StaticEventSource struct {
	events []*models.RaceEvent
}

// NewStaticEventSource copies and date-sorts the given events.
func NewStaticEventSource(events []*models.RaceEvent) *StaticEventSource {
	copied := make([]*models.RaceEvent, len(events))
	copy(copied, events)
	sort.SliceStable(copied, func(i, j int) bool { return copied[i].Date.Before(copied[j].Date) })
	return &StaticEventSource{events: copied}
}

// EventsByDateRange returns the events dated within [from, to].
func (s *StaticEventSource) EventsByDateRange(_ context.Context, from, to time.Time) ([]*models.RaceEvent, error) {
	out := make([]*models.RaceEvent, 0, len(s.events))
	for _, e := range s.events {
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
