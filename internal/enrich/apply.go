package enrich

import (
	"sort"
	"strings"

	"github.com/sydlexius/elsewhere/internal/result"
	"github.com/sydlexius/elsewhere/internal/source"
)

// Display groups applied after enrichment, lowest first.
const (
	groupRegular = iota
	groupSearchOnlyStore
	groupReference
	groupSocial
)

// referenceOrder is the fixed order of official, catalog and library links.
var referenceOrder = []source.ID{source.Official, source.MusicBrainz, source.Hoopla, source.Freegal}

// socialOrder is the fixed order of social links.
var socialOrder = []source.ID{
	source.Instagram,
	source.Twitter,
	source.Bluesky,
	source.Mastodon,
	source.Facebook,
	source.TikTok,
	source.YouTube,
	source.SoundCloud,
}

// libraryServices receive search links when the artist has a pre-2005 release.
var libraryServices = []source.ID{source.Hoopla, source.Freegal}

// Apply returns a new result list with d merged into every artist entity
// whose name matches d.ResolvedName. The input slice and its entities are
// never modified. When d found nothing, results is returned as is.
func Apply(results []result.Entity, d Data, reg *source.Registry) []result.Entity {
	if !d.Found() {
		return results
	}
	resolved := result.NormalizeKey(d.ResolvedName)

	out := make([]result.Entity, len(results))
	for i, e := range results {
		if e.Type != result.TypeArtist || !nameMatches(result.NormalizeKey(e.Name), resolved) {
			out[i] = e
			continue
		}
		c := e.Clone()
		addReferenceLinks(&c, d, reg)
		addSocialLinks(&c, d.Socials, reg)
		sortPlatforms(c.Platforms, reg)
		out[i] = c
	}
	return out
}

// nameMatches reports whether two normalized names are equal or one
// contains the other.
func nameMatches(name, resolved string) bool {
	if name == "" || resolved == "" {
		return false
	}
	return name == resolved || strings.Contains(name, resolved) || strings.Contains(resolved, name)
}

func addLink(e *result.Entity, reg *source.Registry, link result.PlatformLink) {
	if link.URL == "" || !reg.Has(link.SourceID) || e.HasSource(link.SourceID) {
		return
	}
	e.Platforms = append(e.Platforms, link)
}

func addReferenceLinks(e *result.Entity, d Data, reg *source.Registry) {
	addLink(e, reg, result.PlatformLink{SourceID: source.Official, URL: d.OfficialURL})
	addLink(e, reg, result.PlatformLink{SourceID: source.MusicBrainz, URL: d.CatalogURL})

	if !d.HasPre2005Release {
		return
	}
	for _, id := range libraryServices {
		src, err := reg.Get(id)
		if err != nil {
			continue
		}
		addLink(e, reg, result.PlatformLink{
			SourceID:   id,
			URL:        src.SearchURL(d.ResolvedName),
			SearchOnly: true,
		})
	}
}

// addSocialLinks adds each social profile. An existing link for the same
// platform is replaced only when it points at a search page.
func addSocialLinks(e *result.Entity, socials []SocialLink, reg *source.Registry) {
	for _, s := range socials {
		if s.URL == "" || !reg.Has(s.Platform) {
			continue
		}
		link := result.PlatformLink{SourceID: s.Platform, URL: s.URL}
		replaced := false
		for i, p := range e.Platforms {
			if p.SourceID != s.Platform {
				continue
			}
			if p.SearchOnly || IsSearchURL(p.URL) {
				e.Platforms[i] = link
			}
			replaced = true
			break
		}
		if !replaced {
			e.Platforms = append(e.Platforms, link)
		}
	}
}

// sortPlatforms orders links by display group, keeping the existing order
// inside the regular and search-only groups.
func sortPlatforms(links []result.PlatformLink, reg *source.Registry) {
	sort.SliceStable(links, func(i, j int) bool {
		gi, si := placement(links[i], reg)
		gj, sj := placement(links[j], reg)
		if gi != gj {
			return gi < gj
		}
		return si < sj
	})
}

// placement returns the display group of a link and its rank inside it.
func placement(p result.PlatformLink, reg *source.Registry) (group, rank int) {
	if i := indexOf(referenceOrder, p.SourceID); i >= 0 {
		return groupReference, i
	}
	src, err := reg.Get(p.SourceID)
	if err != nil {
		return groupRegular, 0
	}
	switch src.Category {
	case source.CategorySocial:
		if i := indexOf(socialOrder, p.SourceID); i >= 0 {
			return groupSocial, i
		}
		return groupSocial, len(socialOrder)
	case source.CategoryOfficial, source.CategoryLibrary:
		return groupReference, len(referenceOrder)
	case source.CategoryMarketplace, source.CategoryPatronage:
		if p.SearchOnly {
			return groupSearchOnlyStore, 0
		}
	}
	return groupRegular, 0
}

func indexOf(ids []source.ID, id source.ID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
