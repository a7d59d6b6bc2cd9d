// Package source holds the static catalog of platforms the aggregator knows
// about. The catalog is built once at startup and never mutated, so a
// *Registry can be shared between goroutines without locking.
package source

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// ID uniquely identifies a platform.
type ID string

// Category classifies a platform for display ordering.
type Category string

// Known categories.
const (
	CategoryMarketplace   Category = "marketplace"
	CategoryPatronage     Category = "patronage"
	CategoryLibrary       Category = "library"
	CategoryDecentralized Category = "decentralized"
	CategoryOfficial      Category = "official"
	CategorySocial        Category = "social"
)

// ErrUnknownSource is returned when an id is not present in the registry.
var ErrUnknownSource = errors.New("unknown source")

// Source is the immutable descriptor of one platform.
type Source struct {
	ID       ID       `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`

	// Embeddable reports that release pages can be turned into a preview widget.
	Embeddable bool `json:"embeddable"`
	// SearchOnly sources can never verify an artist exists; they only get a search link.
	SearchOnly bool `json:"search_only"`
	// Scrape selects the artist-page scraping adapter.
	Scrape bool `json:"scrape"`
	// Feed selects the syndication feed adapter.
	Feed bool `json:"feed"`
	// EnrichmentOnly sources are never queried during search; links to them
	// are only added by the enrichment merger.
	EnrichmentOnly bool `json:"enrichment_only"`

	SearchURLTemplate string `json:"search_url_template,omitempty"`
	ArtistURLTemplate string `json:"artist_url_template,omitempty"`
	ListingPath       string `json:"listing_path,omitempty"`
	FeedURLTemplate   string `json:"feed_url_template,omitempty"`
}

// SearchURL expands the search template for query. Returns "" when the
// source has no search template.
func (s Source) SearchURL(query string) string {
	return Expand(s.SearchURLTemplate, query)
}

// ArtistURL expands the artist template for query.
func (s Source) ArtistURL(query string) string {
	return Expand(s.ArtistURLTemplate, query)
}

// FeedURL expands the feed template for query.
func (s Source) FeedURL(query string) string {
	return Expand(s.FeedURLTemplate, query)
}

// Expand substitutes the {query}, {query_path} and {slug} placeholders.
func Expand(tmpl, query string) string {
	if tmpl == "" {
		return ""
	}
	q := strings.TrimSpace(query)
	r := strings.NewReplacer(
		"{query}", url.QueryEscape(q),
		"{query_path}", url.PathEscape(q),
		"{slug}", Slug(q),
	)
	return r.Replace(tmpl)
}

// Slug lowercases s and drops everything that is not a letter or digit.
// Platforms with vanity subdomains or paths (bandcamp, ko-fi) use this form.
func Slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Registry is an immutable, ordered set of sources.
type Registry struct {
	order   []ID
	sources map[ID]Source
}

// NewRegistry builds a registry from sources, keeping their order.
// Duplicate or empty ids are rejected.
func NewRegistry(sources ...Source) (*Registry, error) {
	r := &Registry{
		order:   make([]ID, 0, len(sources)),
		sources: make(map[ID]Source, len(sources)),
	}
	for _, s := range sources {
		if s.ID == "" {
			return nil, fmt.Errorf("source %q has no id", s.Name)
		}
		if _, dup := r.sources[s.ID]; dup {
			return nil, fmt.Errorf("duplicate source id %q", s.ID)
		}
		if s.Scrape && s.Feed {
			return nil, fmt.Errorf("source %q cannot be both scrape and feed", s.ID)
		}
		r.order = append(r.order, s.ID)
		r.sources[s.ID] = s
	}
	return r, nil
}

// Get returns the source for id.
func (r *Registry) Get(id ID) (Source, error) {
	s, ok := r.sources[id]
	if !ok {
		return Source{}, fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	return s, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id ID) bool {
	_, ok := r.sources[id]
	return ok
}

// All returns every source in catalog order.
func (r *Registry) All() []Source {
	out := make([]Source, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sources[id])
	}
	return out
}

// Adaptable returns the sources that are queried during search, skipping
// any id in disabled.
func (r *Registry) Adaptable(disabled ...ID) []Source {
	skip := make(map[ID]struct{}, len(disabled))
	for _, id := range disabled {
		skip[id] = struct{}{}
	}
	var out []Source
	for _, id := range r.order {
		s := r.sources[id]
		if s.EnrichmentOnly {
			continue
		}
		if _, ok := skip[id]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}
