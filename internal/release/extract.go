// Package release extracts the latest release from third-party release
// pages and feeds. Every field is found by an ordered list of strategies;
// the first one that matches wins. Strategies are pure functions over the
// raw text so markup drift only ever breaks one of them.
package release

import (
	"errors"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	xhtml "golang.org/x/net/html"

	"github.com/sydlexius/elsewhere/internal/result"
)

// Extraction failures. Callers drop the candidate and move on.
var (
	ErrMissingTitle = errors.New("release title not found")
	ErrMissingDate  = errors.New("release date not found")
)

// Strategy looks for one field in raw markup.
type Strategy func(page string) (string, bool)

// firstMatch runs strategies in order and returns the first hit.
func firstMatch(page string, strategies []Strategy) (string, bool) {
	for _, s := range strategies {
		if v, ok := s(page); ok {
			return v, true
		}
	}
	return "", false
}

// metaContent returns a strategy that reads the content of the <meta> tag
// whose property or name attribute equals key, using the HTML tokenizer so
// attribute order and quoting do not matter.
func metaContent(key string) Strategy {
	return func(page string) (string, bool) {
		z := xhtml.NewTokenizer(strings.NewReader(page))
		for {
			switch z.Next() {
			case xhtml.ErrorToken:
				return "", false
			case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
				name, hasAttr := z.TagName()
				if string(name) == "body" {
					return "", false
				}
				if string(name) != "meta" || !hasAttr {
					continue
				}
				var matched bool
				var content string
				for {
					k, v, more := z.TagAttr()
					switch string(k) {
					case "property", "name", "itemprop":
						if strings.EqualFold(string(v), key) {
							matched = true
						}
					case "content":
						content = string(v)
					}
					if !more {
						break
					}
				}
				if matched {
					if c := strings.TrimSpace(content); c != "" {
						return c, true
					}
				}
			}
		}
	}
}

// metaRegex returns two regex strategies for a meta key: property-then-content
// and content-then-property. Quotes may be single, double or mismatched.
func metaRegex(key string) []Strategy {
	k := regexp.QuoteMeta(key)
	forward := regexp.MustCompile(`(?is)<meta[^>]+(?:property|name)\s*=\s*["']?` + k + `["']?[^>]*?content\s*=\s*["']([^"'>]*)["']?`)
	reverse := regexp.MustCompile(`(?is)<meta[^>]+content\s*=\s*["']([^"'>]*)["']?[^>]*?(?:property|name)\s*=\s*["']?` + k + `["']?`)
	return []Strategy{regexStrategy(forward), regexStrategy(reverse)}
}

// regexStrategy returns the first capture group of re, unescaped and trimmed.
func regexStrategy(re *regexp.Regexp) Strategy {
	return func(page string) (string, bool) {
		m := re.FindStringSubmatch(page)
		if len(m) < 2 {
			return "", false
		}
		v := strings.TrimSpace(html.UnescapeString(m[1]))
		return v, v != ""
	}
}

func metaStrategies(key string) []Strategy {
	return append([]Strategy{metaContent(key)}, metaRegex(key)...)
}

var (
	ldNameRe         = regexp.MustCompile(`"name"\s*:\s*"((?:[^"\\]|\\.)+)"`)
	datePublishedRe  = regexp.MustCompile(`"datePublished"\s*:\s*"([^"]+)"`)
	releasedPhraseRe = regexp.MustCompile(`(?i)released\s+((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},\s+\d{4})`)
	canonicalLinkRe  = regexp.MustCompile(`(?is)<link[^>]+rel\s*=\s*["']?canonical["']?[^>]*?href\s*=\s*["']([^"'>]+)["']?`)
	titleSuffixRe    = regexp.MustCompile(`(?i)(?:\s+\|\s+|,\s+by\s+).*$`)
)

// TitleStrategies are tried in order to find a release title.
var TitleStrategies = append(metaStrategies("og:title"), regexStrategy(ldNameRe))

// DateStrategies are tried in order to find a release date. A match that
// does not parse falls through to the next strategy.
var DateStrategies = []Strategy{
	regexStrategy(datePublishedRe),
	regexStrategy(releasedPhraseRe),
}

// ImageStrategies find the cover image.
var ImageStrategies = metaStrategies("og:image")

// URLStrategies find the canonical page URL.
var URLStrategies = append(metaStrategies("og:url"), regexStrategy(canonicalLinkRe))

// SiteNameStrategies find the platform-level display name of a page, which
// on artist pages is the artist name.
var SiteNameStrategies = metaStrategies("og:site_name")

// CleanTitle strips trailing " | Artist" and ", by Artist" suffixes.
func CleanTitle(s string) string {
	return strings.TrimSpace(titleSuffixRe.ReplaceAllString(s, ""))
}

// Title returns the cleaned release title of page.
func Title(page string) (string, bool) {
	raw, ok := firstMatch(page, TitleStrategies)
	if !ok {
		return "", false
	}
	t := CleanTitle(raw)
	return t, t != ""
}

// Meta returns the content of the <meta> tag named key.
func Meta(page, key string) (string, bool) {
	return firstMatch(page, metaStrategies(key))
}

// SiteName returns the og:site_name of page.
func SiteName(page string) (string, bool) {
	return firstMatch(page, SiteNameStrategies)
}

// Date returns the first release date on page that parses.
func Date(page string) (time.Time, bool) {
	for _, s := range DateStrategies {
		if raw, ok := s(page); ok {
			if t, ok := ParseDate(raw); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Extract builds a LatestRelease from a release page. pageURL is used when
// the page does not declare a canonical URL and to decide album vs track.
func Extract(page, pageURL string) (*result.LatestRelease, error) {
	title, ok := Title(page)
	if !ok {
		return nil, ErrMissingTitle
	}
	date, ok := Date(page)
	if !ok {
		return nil, ErrMissingDate
	}

	canonical, ok := firstMatch(page, URLStrategies)
	if !ok {
		canonical = pageURL
	}
	rel := &result.LatestRelease{
		Title:       title,
		Type:        itemType(canonical),
		URL:         canonical,
		ReleaseDate: &date,
	}
	if img, ok := firstMatch(page, ImageStrategies); ok {
		rel.ImageURL = img
	}
	return rel, nil
}

// itemType classifies a release URL as track or album.
func itemType(rawURL string) result.EntityType {
	if u, err := url.Parse(rawURL); err == nil && strings.HasPrefix(u.Path, "/track/") {
		return result.TypeTrack
	}
	return result.TypeAlbum
}

// Newest returns the candidate with the most recent release date. Candidates
// without a date are never picked. Returns nil when none qualify.
func Newest(candidates []*result.LatestRelease) *result.LatestRelease {
	var best *result.LatestRelease
	for _, c := range candidates {
		if c == nil || c.ReleaseDate == nil {
			continue
		}
		if best == nil || c.ReleaseDate.After(*best.ReleaseDate) {
			best = c
		}
	}
	return best
}

// PageTitle returns the text of the document's <title> element.
func PageTitle(page string) (string, bool) {
	z := xhtml.NewTokenizer(strings.NewReader(page))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return "", false
		case xhtml.StartTagToken:
			name, _ := z.TagName()
			if string(name) != "title" {
				continue
			}
			if z.Next() != xhtml.TextToken {
				return "", false
			}
			t := strings.TrimSpace(string(z.Text()))
			return t, t != ""
		}
	}
}
