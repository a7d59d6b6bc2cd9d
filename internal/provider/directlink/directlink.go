// Package directlink implements adapters for platforms without a usable
// API. They build a search link from the registry template and, where the
// platform has a predictable artist path, check that path exists.
package directlink

import (
	"context"
	"log/slog"

	"github.com/sydlexius/elsewhere/internal/provider"
	"github.com/sydlexius/elsewhere/internal/result"
	"github.com/sydlexius/elsewhere/internal/source"
)

// Adapter implements provider.Adapter for direct-link platforms.
type Adapter struct {
	src     source.Source
	fetcher *provider.Fetcher
	logger  *slog.Logger
}

// New creates a direct-link adapter for src.
func New(src source.Source, fetcher *provider.Fetcher, logger *slog.Logger) *Adapter {
	return &Adapter{
		src:     src,
		fetcher: fetcher,
		logger:  logger.With(slog.String("provider", string(src.ID))),
	}
}

// Source returns the source id.
func (a *Adapter) Source() source.ID { return a.src.ID }

// FetchCandidates returns one artist candidate. When the artist path answers
// 2xx the link points there and counts as verified; otherwise the link is
// the platform's search page.
func (a *Adapter) FetchCandidates(ctx context.Context, query string) ([]result.Entity, error) {
	if a.verifiable() && source.Slug(query) != "" {
		artistURL := a.src.ArtistURL(query)
		_, err := a.fetcher.Get(ctx, a.src.ID, artistURL)
		if err == nil {
			return []result.Entity{result.NewArtist(query, result.PlatformLink{
				SourceID: a.src.ID,
				URL:      artistURL,
			})}, nil
		}
		a.logger.Debug("artist path not confirmed",
			slog.String("url", artistURL),
			slog.String("error", err.Error()))
	}

	searchURL := a.src.SearchURL(query)
	if searchURL == "" {
		return nil, nil
	}
	return []result.Entity{result.NewArtist(query, result.PlatformLink{
		SourceID:   a.src.ID,
		URL:        searchURL,
		SearchOnly: true,
	})}, nil
}

func (a *Adapter) verifiable() bool {
	return !a.src.SearchOnly && a.src.ArtistURLTemplate != ""
}
