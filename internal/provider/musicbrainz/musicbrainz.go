// Package musicbrainz resolves enrichment data for an artist from the
// MusicBrainz web service: canonical name, official homepage, social
// profiles and whether the artist released anything before 2005.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/elsewhere/internal/enrich"
	"github.com/sydlexius/elsewhere/internal/provider"
	"github.com/sydlexius/elsewhere/internal/result"
	"github.com/sydlexius/elsewhere/internal/source"
)

const (
	defaultBaseURL = "https://musicbrainz.org/ws/2"
	siteURL        = "https://musicbrainz.org"

	// minScore is the lowest search score accepted as a match.
	minScore = 90
	// libraryCutoffYear gates library-service eligibility.
	libraryCutoffYear = 2005
)

// Adapter looks artists up on MusicBrainz.
type Adapter struct {
	client    *http.Client
	limiter   *provider.RateLimiterMap
	logger    *slog.Logger
	baseURL   string
	userAgent string
}

// New creates a MusicBrainz adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz adapter with a custom base URL (for testing).
// An empty baseURL selects the public web service.
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:   limiter,
		logger:    logger.With(slog.String("provider", string(source.MusicBrainz))),
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: provider.DefaultUserAgent(),
	}
}

// Enrich resolves artist. An artist MusicBrainz does not know yields a
// Data whose Found reports false. Failures after the artist was resolved
// only leave the affected fields empty.
func (a *Adapter) Enrich(ctx context.Context, artist string) (enrich.Data, error) {
	d := enrich.Data{Query: artist}

	candidates, err := a.SearchArtist(ctx, artist)
	if err != nil {
		return d, err
	}
	best := pickArtist(candidates, artist)
	if best == nil {
		return d, nil
	}
	d.ResolvedName = normalizeHyphens(best.Name)
	d.CatalogURL = siteURL + "/artist/" + best.ID

	full, err := a.GetArtist(ctx, best.ID)
	if err != nil {
		a.logger.Debug("url relations unavailable", slog.String("mbid", best.ID), slog.String("error", err.Error()))
	} else {
		applyRelations(&d, full.Relations)
	}

	groups, err := a.GetReleaseGroups(ctx, best.ID)
	if err != nil {
		a.logger.Debug("release groups unavailable", slog.String("mbid", best.ID), slog.String("error", err.Error()))
	} else {
		d.HasPre2005Release = releasedBefore(groups, libraryCutoffYear)
	}
	return d, nil
}

// SearchArtist searches MusicBrainz for artists matching the given name.
func (a *Adapter) SearchArtist(ctx context.Context, name string) ([]Artist, error) {
	params := url.Values{
		"query": {name},
		"fmt":   {"json"},
		"limit": {"10"},
	}
	reqURL := a.baseURL + "/artist?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	return resp.Artists, nil
}

// GetArtist fetches an artist with its URL relations.
func (a *Adapter) GetArtist(ctx context.Context, mbid string) (*Artist, error) {
	params := url.Values{
		"inc": {"aliases+url-rels"},
		"fmt": {"json"},
	}
	reqURL := a.baseURL + "/artist/" + url.PathEscape(mbid) + "?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var artist Artist
	if err := json.Unmarshal(body, &artist); err != nil {
		return nil, fmt.Errorf("parsing artist response: %w", err)
	}
	return &artist, nil
}

// GetReleaseGroups browses the release groups of an artist.
func (a *Adapter) GetReleaseGroups(ctx context.Context, mbid string) ([]ReleaseGroup, error) {
	params := url.Values{
		"artist": {mbid},
		"fmt":    {"json"},
		"limit":  {"100"},
	}
	reqURL := a.baseURL + "/release-group?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp releaseGroupPage
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing release groups: %w", err)
	}
	return resp.ReleaseGroups, nil
}

// doRequest executes an HTTP GET with rate limiting and standard headers.
func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, source.MusicBrainz); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Source: source.MusicBrainz,
			Cause:  fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + escaped parameters
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Source: source.MusicBrainz,
			Cause:  err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrNotFound{
			Source: source.MusicBrainz,
			URL:    reqURL,
		}
	}

	if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrProviderUnavailable{
			Source:     source.MusicBrainz,
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: 2 * time.Second,
		}
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrProviderUnavailable{
			Source: source.MusicBrainz,
			Cause:  fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 512*1024))
}

// pickArtist returns the highest-ranked candidate whose name or alias
// matches query, or nil.
func pickArtist(candidates []Artist, query string) *Artist {
	want := result.NormalizeKey(query)
	for i := range candidates {
		c := &candidates[i]
		if c.Score < minScore {
			continue
		}
		if result.NormalizeKey(c.Name) == want {
			return c
		}
		for _, alias := range c.Aliases {
			if result.NormalizeKey(alias.Name) == want {
				return c
			}
		}
	}
	return nil
}

// applyRelations fills the official site and social profiles from URL
// relations. The first relation per platform wins.
func applyRelations(d *enrich.Data, rels []Relation) {
	seen := make(map[source.ID]bool)
	for _, rel := range rels {
		if rel.URL == nil || rel.URL.Resource == "" || rel.Ended {
			continue
		}
		if rel.Type == "official homepage" {
			if d.OfficialURL == "" {
				d.OfficialURL = rel.URL.Resource
			}
			continue
		}
		platform := socialPlatform(rel.Type, rel.URL.Resource)
		if platform == "" || seen[platform] {
			continue
		}
		seen[platform] = true
		d.Socials = append(d.Socials, enrich.SocialLink{Platform: platform, URL: rel.URL.Resource})
	}
}

// socialHosts maps profile hosts to platform ids.
var socialHosts = map[string]source.ID{
	"instagram.com":     source.Instagram,
	"twitter.com":       source.Twitter,
	"x.com":             source.Twitter,
	"bsky.app":          source.Bluesky,
	"facebook.com":      source.Facebook,
	"tiktok.com":        source.TikTok,
	"youtube.com":       source.YouTube,
	"music.youtube.com": source.YouTube,
	"youtu.be":          source.YouTube,
	"soundcloud.com":    source.SoundCloud,
}

// socialPlatform classifies a relation URL. Social-network links on
// unknown hosts with an /@user path are taken to be Mastodon profiles.
func socialPlatform(relType, raw string) source.ID {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	if id, ok := socialHosts[host]; ok {
		return id
	}
	if relType == "social network" && strings.HasPrefix(u.Path, "/@") {
		return source.Mastodon
	}
	return ""
}

// releasedBefore reports whether any group was first released before year.
func releasedBefore(groups []ReleaseGroup, year int) bool {
	for _, g := range groups {
		if len(g.FirstReleaseDate) < 4 {
			continue
		}
		y, err := strconv.Atoi(g.FirstReleaseDate[:4])
		if err == nil && y > 0 && y < year {
			return true
		}
	}
	return false
}

// normalizeHyphens replaces the Unicode hyphens MusicBrainz uses in names
// with ASCII hyphen-minus.
func normalizeHyphens(s string) string {
	return strings.NewReplacer("\u2010", "-", "\u2011", "-").Replace(s)
}
