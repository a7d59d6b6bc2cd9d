package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/elsewhere/internal/query"
	"github.com/sydlexius/elsewhere/internal/result"
)

// DefaultQueueBudget bounds how long one adapter call may spend waiting for
// rate-limiter admission across all of its fetches. Sub-queries share each
// source's limiter, so a collaboration query queues behind its siblings.
const DefaultQueueBudget = 30 * time.Second

// Orchestrator fans a query out to every registered adapter and reconciles
// the results.
type Orchestrator struct {
	registry    *Registry
	timeout     time.Duration
	queueBudget time.Duration
	enrichment  bool
	logger     *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. timeout bounds every fetch an
// adapter makes; zero selects DefaultFetchTimeout. enrichment controls
// whether responses containing an artist are flagged as awaiting enrichment.
func NewOrchestrator(registry *Registry, timeout time.Duration, enrichment bool, logger *slog.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Orchestrator{
		registry:    registry,
		timeout:     timeout,
		queueBudget: DefaultQueueBudget,
		enrichment:  enrichment,
		logger:      logger.With(slog.String("component", "orchestrator")),
	}
}

// SetQueueBudget overrides DefaultQueueBudget. With a zero budget an adapter
// call is bounded by the fetch timeout alone.
func (o *Orchestrator) SetQueueBudget(d time.Duration) {
	if d < 0 {
		d = 0
	}
	o.queueBudget = d
}

// Search expands q into sub-queries, queries every adapter for each of them
// concurrently and merges everything into one response. Only an invalid
// query produces an error; source failures degrade to fewer results.
func (o *Orchestrator) Search(ctx context.Context, q string) (result.SearchResponse, error) {
	q, err := ValidateQuery(q)
	if err != nil {
		return result.SearchResponse{}, err
	}
	start := time.Now()

	subs := query.Expand(q)
	var resp result.SearchResponse
	if len(subs) == 1 {
		resp = o.fetchAll(ctx, q)
	} else {
		responses := make([]result.SearchResponse, len(subs))
		var g errgroup.Group
		for i, sub := range subs {
			g.Go(func() error {
				responses[i] = o.fetchAll(ctx, sub)
				return nil
			})
		}
		_ = g.Wait()
		resp = result.Merge(q, responses)
	}

	resp.EnrichmentPending = o.enrichment && hasArtist(resp.Results)

	o.logger.Info("search completed",
		slog.String("query", q),
		slog.Int("sub_queries", len(subs)),
		slog.Int("results", len(resp.Results)),
		slog.Duration("duration", time.Since(start)))
	return resp, nil
}

// Adapters returns the adapters searches fan out to.
func (o *Orchestrator) Adapters() []Adapter {
	return o.registry.All()
}

// fetchAll queries every adapter for q and assembles the candidates.
func (o *Orchestrator) fetchAll(ctx context.Context, q string) result.SearchResponse {
	adapters := o.registry.All()
	slots := make([][]result.Entity, len(adapters))

	var g errgroup.Group
	for i, a := range adapters {
		g.Go(func() error {
			slots[i] = o.fetchOne(ctx, a, q)
			return nil
		})
	}
	_ = g.Wait()

	var candidates []result.Entity
	for _, s := range slots {
		candidates = append(candidates, s...)
	}
	return result.Assemble(q, candidates)
}

// fetchOne calls a single adapter. Each fetch gets the fetch timeout once
// admitted by the rate limiter; the call as a whole is bounded by the fetch
// timeout plus the queue budget. Any failure, including a panic, yields no
// candidates.
func (o *Orchestrator) fetchOne(ctx context.Context, a Adapter, q string) (out []result.Entity) {
	ctx, cancel := context.WithTimeout(WithFetchTimeout(ctx, o.timeout), o.timeout+o.queueBudget)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("adapter panicked",
				slog.String("source", string(a.Source())),
				slog.String("query", q),
				slog.String("error", fmt.Sprint(r)))
			out = nil
		}
	}()

	entities, err := a.FetchCandidates(ctx, q)
	if err != nil {
		o.logger.Debug("adapter returned no result",
			slog.String("source", string(a.Source())),
			slog.String("query", q),
			slog.String("error", err.Error()))
		return nil
	}
	return o.registered(entities)
}

// registered drops links to sources the registry does not know.
func (o *Orchestrator) registered(entities []result.Entity) []result.Entity {
	sources := o.registry.Sources()
	out := make([]result.Entity, 0, len(entities))
	for _, e := range entities {
		c := e.Clone()
		c.Platforms = c.Platforms[:0]
		for _, p := range e.Platforms {
			if sources.Has(p.SourceID) {
				c.Platforms = append(c.Platforms, p)
			}
		}
		if len(c.Platforms) > 0 {
			out = append(out, c)
		}
	}
	return out
}

func hasArtist(entities []result.Entity) bool {
	for _, e := range entities {
		if e.Type == result.TypeArtist {
			return true
		}
	}
	return false
}
