// Package adapters builds the adapter set for a source registry, choosing
// each platform's adapter family from its capability flags.
package adapters

import (
	"log/slog"

	"github.com/sydlexius/elsewhere/internal/provider"
	"github.com/sydlexius/elsewhere/internal/provider/artistpage"
	"github.com/sydlexius/elsewhere/internal/provider/directlink"
	"github.com/sydlexius/elsewhere/internal/provider/feed"
	"github.com/sydlexius/elsewhere/internal/source"
)

// Options tune the adapters built by Build.
type Options struct {
	// MaxAlbumPages bounds release pages visited by artist-page adapters.
	MaxAlbumPages int
	// Disabled sources get no adapter.
	Disabled []source.ID
}

// For returns the adapter for src.
func For(src source.Source, fetcher *provider.Fetcher, opts Options, logger *slog.Logger) provider.Adapter {
	switch {
	case src.Scrape:
		return artistpage.New(src, fetcher, opts.MaxAlbumPages, logger)
	case src.Feed:
		return feed.New(src, fetcher, logger)
	default:
		return directlink.New(src, fetcher, logger)
	}
}

// Build registers an adapter for every searchable, enabled source.
func Build(sources *source.Registry, fetcher *provider.Fetcher, opts Options, logger *slog.Logger) *provider.Registry {
	reg := provider.NewRegistry(sources)
	for _, src := range sources.Adaptable(opts.Disabled...) {
		reg.Register(For(src, fetcher, opts, logger))
	}
	logger.Debug("adapters registered", slog.Int("count", len(reg.All())))
	return reg
}
