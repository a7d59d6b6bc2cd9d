// Package embed turns a Bandcamp artist, album or track page into an
// embeddable player URL.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sydlexius/elsewhere/internal/provider"
	"github.com/sydlexius/elsewhere/internal/release"
	"github.com/sydlexius/elsewhere/internal/result"
	"github.com/sydlexius/elsewhere/internal/source"
)

// DefaultTimeout bounds a whole resolution, both page fetches included.
const DefaultTimeout = 10 * time.Second

const playerURL = "https://bandcamp.com/EmbeddedPlayer/%s=%s/size=large/bgcol=ffffff/linkcol=0687f5/tracklist=false/artwork=small/transparent=true/"

var (
	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid url")
	// ErrNotEmbeddable is returned when the page explicitly disables embedding.
	ErrNotEmbeddable = errors.New("not embeddable")
)

// Embed describes a player widget for one release.
type Embed struct {
	URL   string            `json:"embed_url"`
	Title string            `json:"title,omitempty"`
	Type  result.EntityType `json:"type"`
	ID    string            `json:"id"`
}

// Resolver resolves embed widgets.
type Resolver struct {
	fetcher *provider.Fetcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewResolver creates a Resolver. A zero timeout selects DefaultTimeout.
func NewResolver(fetcher *provider.Fetcher, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{
		fetcher: fetcher,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "embed")),
	}
}

// Resolve returns the embed for rawURL. A page with no recognizable item
// yields (nil, nil), as does any fetch failure.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*Embed, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	page, ok := r.fetch(ctx, u.String())
	if !ok {
		return nil, nil
	}
	if !Embeddable(page) {
		return nil, ErrNotEmbeddable
	}

	if typ := pathType(u.Path); typ != "" {
		return build(page, typ), nil
	}

	// Artist page: follow the first release link, or fall back to an id
	// rendered on the page itself for single-release artists.
	links := release.AlbumLinks(page, u.String(), 1)
	if len(links) == 0 {
		return build(page, result.TypeTrack), nil
	}

	item, ok := r.fetch(ctx, links[0])
	if !ok {
		return nil, nil
	}
	if !Embeddable(item) {
		return nil, ErrNotEmbeddable
	}
	lu, err := url.Parse(links[0])
	if err != nil {
		return nil, nil
	}
	return build(item, pathType(lu.Path)), nil
}

func (r *Resolver) fetch(ctx context.Context, rawURL string) (string, bool) {
	page, err := r.fetcher.Get(ctx, source.Bandcamp, rawURL)
	if err != nil {
		r.logger.Debug("embed page fetch failed",
			slog.String("url", rawURL),
			slog.String("error", err.Error()))
		return "", false
	}
	return page, true
}

// build assembles the embed for an item page. fallback is the item type
// used when the page does not state one. It returns nil when no id is found.
func build(page string, fallback result.EntityType) *Embed {
	id, typ, ok := ItemID(page)
	if !ok {
		return nil
	}
	if typ == "" {
		typ = fallback
	}
	if typ == "" {
		typ = result.TypeAlbum
	}
	return &Embed{
		URL:   fmt.Sprintf(playerURL, typ, id),
		Title: displayTitle(page),
		Type:  typ,
		ID:    id,
	}
}

// displayTitle is the page title cut at the first "|".
func displayTitle(page string) string {
	t, ok := release.PageTitle(page)
	if !ok {
		return ""
	}
	t, _, _ = strings.Cut(t, "|")
	return strings.TrimSpace(t)
}

func pathType(p string) result.EntityType {
	switch {
	case strings.Contains(p, "/album/"):
		return result.TypeAlbum
	case strings.Contains(p, "/track/"):
		return result.TypeTrack
	}
	return ""
}

// ValidateURL parses rawURL and requires an http(s) scheme and a host.
func ValidateURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrInvalidURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}
	return u, nil
}
