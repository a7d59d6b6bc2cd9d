// Package enrich merges slow metadata (official site, catalog entry, social
// profiles, library eligibility) into search results that were already
// delivered, and caches that metadata per artist.
package enrich

import (
	"strings"

	"github.com/sydlexius/elsewhere/internal/source"
)

// SocialLink is a profile on a social platform.
type SocialLink struct {
	Platform source.ID `json:"platform"`
	URL      string    `json:"url"`
}

// Data is the enrichment record for one artist query. ResolvedName is empty
// when the lookup found no matching artist.
type Data struct {
	Query             string       `json:"query"`
	ResolvedName      string       `json:"resolved_name,omitempty"`
	OfficialURL       string       `json:"official_url,omitempty"`
	CatalogURL        string       `json:"catalog_url,omitempty"`
	HasPre2005Release bool         `json:"has_pre_2005_release"`
	Socials           []SocialLink `json:"socials,omitempty"`
}

// Found reports whether the lookup resolved an artist.
func (d Data) Found() bool { return strings.TrimSpace(d.ResolvedName) != "" }

// searchMarkers identify URLs that point at a search page rather than a
// profile.
var searchMarkers = []string{
	"?q=",
	"&q=",
	"?query=",
	"&query=",
	"/search",
	"?s=",
	"search_query=",
	"/results?",
	"duckduckgo.com/?",
}

// IsSearchURL reports whether u looks like a search page.
func IsSearchURL(u string) bool {
	u = strings.ToLower(u)
	for _, m := range searchMarkers {
		if strings.Contains(u, m) {
			return true
		}
	}
	return false
}
