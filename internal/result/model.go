// Package result defines the entities returned by a search and the
// algorithms that reconcile them across platforms and sub-queries.
package result

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sydlexius/elsewhere/internal/source"
)

// EntityType is the kind of thing a result describes.
type EntityType string

// Entity types.
const (
	TypeArtist EntityType = "artist"
	TypeAlbum  EntityType = "album"
	TypeTrack  EntityType = "track"
)

// Confidence labels how sure the aggregator is that all links on an entity
// point at the same artist.
type Confidence string

// Confidence values. The zero value means no signal either way.
const (
	ConfidenceUnset      Confidence = ""
	ConfidenceVerified   Confidence = "verified"
	ConfidenceUnverified Confidence = "unverified"
)

// LatestRelease is the most recent album or track found on one platform.
type LatestRelease struct {
	Title       string     `json:"title"`
	Type        EntityType `json:"type"`
	URL         string     `json:"url"`
	ImageURL    string     `json:"image_url,omitempty"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
}

// PlatformLink points at an entity on one platform.
type PlatformLink struct {
	SourceID      source.ID      `json:"source_id"`
	URL           string         `json:"url"`
	SearchOnly    bool           `json:"search_only,omitempty"`
	LatestRelease *LatestRelease `json:"latest_release,omitempty"`
}

// Entity is a canonical artist, album or track with its platform links.
// Name, Artist and Type are fixed at creation; merges only touch
// Platforms, ImageURL and Confidence.
type Entity struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Artist     string         `json:"artist,omitempty"`
	Type       EntityType     `json:"type"`
	ImageURL   string         `json:"image_url,omitempty"`
	Platforms  []PlatformLink `json:"platforms"`
	Confidence Confidence     `json:"match_confidence,omitempty"`
}

// SearchResponse is the external contract of a search.
type SearchResponse struct {
	Query             string   `json:"query"`
	Results           []Entity `json:"results"`
	EnrichmentPending bool     `json:"enrichment_pending"`
}

// NewArtist returns an artist entity with a fresh id and one link.
func NewArtist(name string, link PlatformLink) Entity {
	return Entity{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      TypeArtist,
		Platforms: []PlatformLink{link},
	}
}

// Key returns the identity key used to detect duplicates.
func (e Entity) Key() string {
	if e.Artist != "" {
		return NormalizeKey(e.Artist + "-" + e.Name)
	}
	return NormalizeKey(e.Name)
}

// HasSource reports whether the entity already links to id.
func (e Entity) HasSource(id source.ID) bool {
	return e.linkIndex(id) >= 0
}

func (e Entity) linkIndex(id source.ID) int {
	for i, p := range e.Platforms {
		if p.SourceID == id {
			return i
		}
	}
	return -1
}

// HasVerifiedLink reports whether at least one link is not search-only.
func (e Entity) HasVerifiedLink() bool {
	for _, p := range e.Platforms {
		if !p.SearchOnly {
			return true
		}
	}
	return false
}

// Clone returns a copy whose platform slice can be modified freely.
func (e Entity) Clone() Entity {
	c := e
	c.Platforms = make([]PlatformLink, len(e.Platforms))
	copy(c.Platforms, e.Platforms)
	return c
}

// NormalizeKey lowercases s and strips every character that is not a letter
// or a digit.
func NormalizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
