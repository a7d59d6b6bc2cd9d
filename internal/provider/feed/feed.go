// Package feed implements adapters for platforms that publish a per-artist
// syndication feed.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sydlexius/elsewhere/internal/provider"
	"github.com/sydlexius/elsewhere/internal/release"
	"github.com/sydlexius/elsewhere/internal/result"
	"github.com/sydlexius/elsewhere/internal/source"
)

// Adapter implements provider.Adapter for feed platforms.
type Adapter struct {
	src     source.Source
	fetcher *provider.Fetcher
	logger  *slog.Logger
}

// New creates a feed adapter for src.
func New(src source.Source, fetcher *provider.Fetcher, logger *slog.Logger) *Adapter {
	return &Adapter{
		src:     src,
		fetcher: fetcher,
		logger:  logger.With(slog.String("provider", string(src.ID))),
	}
}

// Source returns the source id.
func (a *Adapter) Source() source.ID { return a.src.ID }

// FetchCandidates reads the artist's feed and returns the artist with its
// newest dated item. A feed without dated items yields no candidates.
func (a *Adapter) FetchCandidates(ctx context.Context, query string) ([]result.Entity, error) {
	if source.Slug(query) == "" {
		return nil, nil
	}
	feedURL := a.src.FeedURL(query)
	if feedURL == "" {
		return nil, fmt.Errorf("source %s has no feed url template", a.src.ID)
	}

	raw, err := a.fetcher.Get(ctx, a.src.ID, feedURL)
	if err != nil {
		return nil, err
	}

	f := release.ParseFeed(raw)
	newest := release.Newest(f.Releases())
	if newest == nil {
		a.logger.Debug("feed has no dated items",
			slog.String("url", feedURL),
			slog.Int("items", len(f.Items)))
		return nil, nil
	}

	artistURL := a.src.ArtistURL(query)
	if artistURL == "" {
		artistURL = feedURL
	}
	e := result.NewArtist(a.artistName(f.Title, query), result.PlatformLink{
		SourceID:      a.src.ID,
		URL:           artistURL,
		LatestRelease: newest,
	})
	e.ImageURL = newest.ImageURL
	return []result.Entity{e}, nil
}

// artistName derives the artist from a channel title such as
// "Babebee on Mirlo", falling back to the query.
func (a *Adapter) artistName(channel, query string) string {
	name := strings.TrimSpace(channel)
	suffix := " on " + a.src.Name
	if len(name) > len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix) {
		name = strings.TrimSpace(name[:len(name)-len(suffix)])
	}
	if name == "" {
		return query
	}
	return name
}
