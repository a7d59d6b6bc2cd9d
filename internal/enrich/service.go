package enrich

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sydlexius/elsewhere/internal/event"
	"github.com/sydlexius/elsewhere/internal/result"
)

// DefaultTimeout bounds a single enrichment lookup.
const DefaultTimeout = 15 * time.Second

// DefaultWarmWorkers caps concurrent cache warm-ups started from search
// events. Events arriving while every worker is busy are dropped.
const DefaultWarmWorkers = 4

// ErrInvalidArtist is returned for an empty artist name.
var ErrInvalidArtist = errors.New("invalid artist name")

// Lookup resolves enrichment data for an artist from an external catalog.
type Lookup interface {
	Enrich(ctx context.Context, artist string) (Data, error)
}

// Service answers enrichment requests from the cache, falling back to the
// external lookup. Concurrent requests for the same artist share one lookup.
type Service struct {
	lookup  Lookup
	cache   *Cache
	timeout time.Duration
	group   singleflight.Group
	logger  *slog.Logger

	warmSlots chan struct{}
	warming   sync.WaitGroup
}

// NewService creates a Service. cache may be nil to disable caching.
func NewService(lookup Lookup, cache *Cache, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		lookup:  lookup,
		cache:   cache,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "enrichment")),

		warmSlots: make(chan struct{}, DefaultWarmWorkers),
	}
}

// Lookup returns the enrichment record for artist. A record with Found()
// false means the catalog has no such artist; errors are transport failures.
func (s *Service) Lookup(ctx context.Context, artist string) (Data, error) {
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return Data{}, ErrInvalidArtist
	}

	if s.cache != nil {
		d, ok, err := s.cache.Get(ctx, artist)
		if err != nil {
			s.logger.Warn("enrichment cache read failed", slog.String("artist", artist), slog.String("error", err.Error()))
		} else if ok {
			return d, nil
		}
	}

	v, err, _ := s.group.Do(result.NormalizeKey(artist), func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		d, err := s.lookup.Enrich(lctx, artist)
		if err != nil {
			return Data{}, err
		}
		d.Query = artist
		if s.cache != nil {
			if err := s.cache.Put(lctx, d); err != nil {
				s.logger.Warn("enrichment cache write failed", slog.String("artist", artist), slog.String("error", err.Error()))
			}
		}
		return d, nil
	})
	if err != nil {
		s.logger.Debug("enrichment lookup failed", slog.String("artist", artist), slog.String("error", err.Error()))
		return Data{}, err
	}
	return v.(Data), nil
}

// Warm fetches and caches artist so a later Lookup is served from the cache.
func (s *Service) Warm(ctx context.Context, artist string) {
	start := time.Now()
	d, err := s.Lookup(ctx, artist)
	if err != nil {
		return
	}
	s.logger.Debug("enrichment warmed",
		slog.String("artist", artist),
		slog.Bool("found", d.Found()),
		slog.Duration("duration", time.Since(start)))
}

// HandleEvent warms the cache for the query of a completed search whose
// response contained an artist, so the client's follow-up enrichment
// request is answered from the cache. The warm-up runs on one of
// DefaultWarmWorkers goroutines and HandleEvent never blocks the bus.
func (s *Service) HandleEvent(e event.Event) {
	if e.Type != event.SearchCompleted || e.Query == "" {
		return
	}
	if pending, _ := e.Data["enrichment_pending"].(bool); !pending {
		return
	}

	select {
	case s.warmSlots <- struct{}{}:
	default:
		s.logger.Debug("enrichment warm-up skipped, workers busy", slog.String("artist", e.Query))
		return
	}
	s.warming.Add(1)
	go func() {
		defer func() {
			<-s.warmSlots
			s.warming.Done()
		}()
		s.Warm(context.Background(), e.Query)
	}()
}

// Wait blocks until every warm-up started by HandleEvent has finished.
func (s *Service) Wait() {
	s.warming.Wait()
}
