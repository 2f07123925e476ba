package dataprovider

import (
	"context"
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/GEJFY/keiba-data-analytics-sub000/internal/models"
)

// CachedEventSource memoizes range loads from a slower source. A search
// session asks for the same full range once per trial, so the first load
// pays and the rest hit the cache.
type CachedEventSource struct {
	source EventSource
	cache  *cache.Cache
}

// NewCachedEventSource wraps source with a TTL cache.
func NewCachedEventSource(source EventSource, ttl time.Duration) *CachedEventSource {
	return &CachedEventSource{
		source: source,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// EventsByDateRange serves from cache when the same range was loaded within
// the TTL.
func (c *CachedEventSource) EventsByDateRange(ctx context.Context, from, to time.Time) ([]*models.RaceEvent, error) {
	key := fmt.Sprintf("%s..%s", from.Format("20060102"), to.Format("20060102"))
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]*models.RaceEvent), nil
	}

	events, err := c.source.EventsByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, events, cache.DefaultExpiration)
	return events, nil
}
