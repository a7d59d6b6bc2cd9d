// Package artistpage implements adapters for platforms whose artists have a
// browsable catalog page. The adapter reads the listing, visits a bounded
// number of release pages concurrently and keeps the newest release.
package artistpage

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/elsewhere/internal/provider"
	"github.com/sydlexius/elsewhere/internal/release"
	"github.com/sydlexius/elsewhere/internal/result"
	"github.com/sydlexius/elsewhere/internal/source"
)

// DefaultMaxPages is the number of release pages visited per artist.
const DefaultMaxPages = 5

// Adapter implements provider.Adapter for artist-page platforms.
type Adapter struct {
	src      source.Source
	fetcher  *provider.Fetcher
	maxPages int
	logger   *slog.Logger
}

// New creates an artist-page adapter. A maxPages of zero or less selects
// DefaultMaxPages.
func New(src source.Source, fetcher *provider.Fetcher, maxPages int, logger *slog.Logger) *Adapter {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Adapter{
		src:      src,
		fetcher:  fetcher,
		maxPages: maxPages,
		logger:   logger.With(slog.String("provider", string(src.ID))),
	}
}

// Source returns the source id.
func (a *Adapter) Source() source.ID { return a.src.ID }

// FetchCandidates fetches the artist's listing page. A missing page or a
// page without release links yields no candidates.
func (a *Adapter) FetchCandidates(ctx context.Context, query string) ([]result.Entity, error) {
	if source.Slug(query) == "" {
		return nil, nil
	}
	artistURL := a.src.ArtistURL(query)
	if artistURL == "" {
		return nil, fmt.Errorf("source %s has no artist url template", a.src.ID)
	}
	listingURL := artistURL + a.src.ListingPath

	page, err := a.fetcher.Get(ctx, a.src.ID, listingURL)
	if err != nil {
		return nil, err
	}

	links := release.AlbumLinks(page, listingURL, a.maxPages)
	if len(links) == 0 {
		a.logger.Debug("no release links on listing", slog.String("url", listingURL))
		return nil, nil
	}

	newest := release.Newest(a.releases(ctx, links))

	name := query
	if siteName, ok := release.SiteName(page); ok {
		name = siteName
	}
	e := result.NewArtist(name, result.PlatformLink{
		SourceID:      a.src.ID,
		URL:           artistURL,
		LatestRelease: newest,
	})
	if newest != nil {
		e.ImageURL = newest.ImageURL
	}
	return []result.Entity{e}, nil
}

// releases extracts every release page concurrently. Failed pages leave a
// nil slot.
func (a *Adapter) releases(ctx context.Context, links []string) []*result.LatestRelease {
	out := make([]*result.LatestRelease, len(links))
	var g errgroup.Group
	for i, link := range links {
		g.Go(func() error {
			page, err := a.fetcher.Get(ctx, a.src.ID, link)
			if err != nil {
				a.logger.Debug("release page fetch failed",
					slog.String("url", link),
					slog.String("error", err.Error()))
				return nil
			}
			rel, err := release.Extract(page, link)
			if err != nil {
				a.logger.Debug("release page parse failed",
					slog.String("url", link),
					slog.String("error", err.Error()))
				return nil
			}
			out[i] = rel
			return nil
		})
	}
	_ = g.Wait()
	return out
}
