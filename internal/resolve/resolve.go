// Package resolve turns a link from a streaming service into the name of
// the artist it points at, so the name can seed a search.
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sydlexius/elsewhere/internal/provider"
	"github.com/sydlexius/elsewhere/internal/release"
	"github.com/sydlexius/elsewhere/internal/source"
)

const (
	defaultDeezerAPI = "https://api.deezer.com"
	defaultTimeout   = 10 * time.Second

	deezer  source.ID = "deezer"
	webPage source.ID = "streaming"
)

// ErrInvalidURL is returned for malformed URLs and unsupported hosts.
var ErrInvalidURL = errors.New("invalid or unsupported url")

var deezerPathRe = regexp.MustCompile(`^/(?:[a-z]{2}(?:-[a-z]{2})?/)?(artist|album|track)/(\d+)`)

// pageSuffixes are the platform names appended to og:title.
var pageSuffixes = []string{
	" on Apple Music",
	" | Spotify",
	" on TIDAL",
	" - YouTube Music",
}

// Resolver maps streaming links to artist names.
type Resolver struct {
	fetcher   *provider.Fetcher
	logger    *slog.Logger
	deezerAPI string
	timeout   time.Duration

	deezerHosts map[string]bool
	pageHosts   map[string]bool
}

// New creates a Resolver against the public Deezer API.
func New(fetcher *provider.Fetcher, logger *slog.Logger) *Resolver {
	return NewWithBaseURL(fetcher, logger, defaultDeezerAPI)
}

// NewWithBaseURL creates a Resolver with a custom Deezer API base URL (for testing).
func NewWithBaseURL(fetcher *provider.Fetcher, logger *slog.Logger, deezerAPI string) *Resolver {
	return &Resolver{
		fetcher:   fetcher,
		logger:    logger.With(slog.String("component", "resolve")),
		deezerAPI: strings.TrimRight(deezerAPI, "/"),
		timeout:   defaultTimeout,
		deezerHosts: map[string]bool{
			"deezer.com":     true,
			"www.deezer.com": true,
		},
		pageHosts: map[string]bool{
			"open.spotify.com":  true,
			"music.apple.com":   true,
			"tidal.com":         true,
			"listen.tidal.com":  true,
			"music.youtube.com": true,
		},
	}
}

// Resolve returns the artist name behind rawURL, or "" when the page or API
// does not name one.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidURL
	}
	host := strings.ToLower(u.Host)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	switch {
	case r.deezerHosts[host]:
		m := deezerPathRe.FindStringSubmatch(u.Path)
		if m == nil {
			return "", ErrInvalidURL
		}
		return r.fromDeezer(ctx, m[1], m[2]), nil
	case r.pageHosts[host]:
		return r.fromPage(ctx, u), nil
	}
	return "", ErrInvalidURL
}

type deezerArtist struct {
	Name string `json:"name"`
}

type deezerItem struct {
	Name   string        `json:"name"`
	Artist *deezerArtist `json:"artist"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (r *Resolver) fromDeezer(ctx context.Context, kind, id string) string {
	reqURL := fmt.Sprintf("%s/%s/%s", r.deezerAPI, kind, id)
	body, err := r.fetcher.Get(ctx, deezer, reqURL)
	if err != nil {
		r.logger.Debug("deezer lookup failed", slog.String("url", reqURL), slog.String("error", err.Error()))
		return ""
	}

	var item deezerItem
	if err := json.Unmarshal([]byte(body), &item); err != nil {
		r.logger.Debug("deezer response not json", slog.String("url", reqURL), slog.String("error", err.Error()))
		return ""
	}
	if item.Error != nil {
		return ""
	}
	if kind == "artist" {
		return strings.TrimSpace(item.Name)
	}
	if item.Artist == nil {
		return ""
	}
	return strings.TrimSpace(item.Artist.Name)
}

func (r *Resolver) fromPage(ctx context.Context, u *url.URL) string {
	page, err := r.fetcher.Get(ctx, webPage, u.String())
	if err != nil {
		r.logger.Debug("streaming page fetch failed", slog.String("url", u.String()), slog.String("error", err.Error()))
		return ""
	}
	return ArtistFromPage(page, isArtistPath(u.Path))
}

// ArtistFromPage reads the artist name from a streaming page's meta tags.
// artistPage selects the page title itself as the name when no musician
// tag is present; on release pages the name follows " by ".
func ArtistFromPage(page string, artistPage bool) string {
	if v, ok := release.Meta(page, "music:musician_description"); ok {
		return v
	}
	title, ok := release.Meta(page, "og:title")
	if !ok {
		return ""
	}
	for _, s := range pageSuffixes {
		title = strings.TrimSuffix(title, s)
	}
	if artistPage {
		return strings.TrimSpace(title)
	}
	if i := strings.LastIndex(title, " by "); i >= 0 {
		return strings.TrimSpace(title[i+len(" by "):])
	}
	return ""
}

func isArtistPath(p string) bool {
	return strings.Contains(p, "/artist/") || strings.HasPrefix(p, "/channel/")
}
