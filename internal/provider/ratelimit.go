package provider

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/sydlexius/elsewhere/internal/source"
)

// Default rate limits per source (requests per second).
var defaultRateLimits = map[source.ID]rate.Limit{
	source.Bandcamp:    2,
	source.Mirlo:       2,
	source.Patreon:     1,
	source.KoFi:        1,
	source.Audius:      2,
	source.MusicBrainz: 1,
}

// defaultBursts lets one artist-page call (listing plus release pages) start
// without queueing. Sources missing here get a burst of 1.
var defaultBursts = map[source.ID]int{
	source.Bandcamp: 6,
}

// RateLimiterMap holds one rate.Limiter per source, created once at startup.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[source.ID]*rate.Limiter
}

// NewRateLimiterMap creates all source rate limiters.
func NewRateLimiterMap() *RateLimiterMap {
	return newRateLimiterMap(defaultRateLimits, defaultBursts)
}

// NewRateLimiterMapWith creates limiters for the given per-source limits.
// Sources missing from limits are not throttled.
func NewRateLimiterMapWith(limits map[source.ID]rate.Limit) *RateLimiterMap {
	return newRateLimiterMap(limits, nil)
}

func newRateLimiterMap(limits map[source.ID]rate.Limit, bursts map[source.ID]int) *RateLimiterMap {
	m := &RateLimiterMap{
		limiters: make(map[source.ID]*rate.Limiter, len(limits)),
	}
	for id, limit := range limits {
		burst := bursts[id]
		if burst < 1 {
			burst = 1
		}
		m.limiters[id] = rate.NewLimiter(limit, burst)
	}
	return m
}

// Wait blocks until the rate limiter for the given source allows a request,
// or the context is canceled.
func (m *RateLimiterMap) Wait(ctx context.Context, id source.ID) error {
	m.mu.RLock()
	limiter, ok := m.limiters[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
