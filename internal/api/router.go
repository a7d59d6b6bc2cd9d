// Package api serves the search, enrichment, embed and resolve operations
// over HTTP as JSON.
package api

import (
	"log/slog"
	"net/http"

	"github.com/sydlexius/elsewhere/internal/api/middleware"
	"github.com/sydlexius/elsewhere/internal/embed"
	"github.com/sydlexius/elsewhere/internal/enrich"
	"github.com/sydlexius/elsewhere/internal/event"
	"github.com/sydlexius/elsewhere/internal/maintenance"
	"github.com/sydlexius/elsewhere/internal/provider"
	"github.com/sydlexius/elsewhere/internal/resolve"
	"github.com/sydlexius/elsewhere/internal/source"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Sources      *source.Registry
	Orchestrator *provider.Orchestrator
	// Enrichment is nil when enrichment is disabled.
	Enrichment  *enrich.Service
	Embed       *embed.Resolver
	Resolver    *resolve.Resolver
	EventBus    *event.Bus
	// Maintenance is nil when the cache database is unavailable.
	Maintenance *maintenance.Service
	RateLimiter *middleware.IPRateLimiter
	Logger      *slog.Logger
	BasePath    string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	sources      *source.Registry
	orchestrator *provider.Orchestrator
	enrichment   *enrich.Service
	embed        *embed.Resolver
	resolver     *resolve.Resolver
	eventBus     *event.Bus
	maintenance  *maintenance.Service
	rateLimiter  *middleware.IPRateLimiter
	logger       *slog.Logger
	basePath     string
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		sources:      deps.Sources,
		orchestrator: deps.Orchestrator,
		enrichment:   deps.Enrichment,
		embed:        deps.Embed,
		resolver:     deps.Resolver,
		eventBus:     deps.EventBus,
		maintenance:  deps.Maintenance,
		rateLimiter:  deps.RateLimiter,
		logger:       deps.Logger.With(slog.String("component", "api")),
		basePath:     deps.BasePath,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath

	limited := func(fn http.HandlerFunc) http.Handler {
		if r.rateLimiter == nil {
			return fn
		}
		return r.rateLimiter.Middleware(fn)
	}

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)
	mux.HandleFunc("GET "+bp+"/api/v1/sources", r.handleSources)
	mux.HandleFunc("GET "+bp+"/api/v1/cache", r.handleCacheStatus)

	mux.Handle("GET "+bp+"/api/v1/search", limited(r.handleSearch))
	mux.Handle("GET "+bp+"/api/v1/enrich", limited(r.handleEnrich))
	mux.Handle("POST "+bp+"/api/v1/enrich/apply", limited(r.handleEnrichApply))
	mux.Handle("GET "+bp+"/api/v1/embed", limited(r.handleEmbed))
	mux.Handle("GET "+bp+"/api/v1/resolve", limited(r.handleResolve))

	var h http.Handler = mux
	h = middleware.SecurityHeaders(h)
	h = middleware.Recover(r.logger)(h)
	return middleware.Logging(r.logger)(h)
}
