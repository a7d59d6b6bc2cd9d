package release

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LinkStrategy finds candidate release hrefs (absolute or relative) in a page.
type LinkStrategy func(page string) []string

var (
	hrefRe        = regexp.MustCompile(`href\s*=\s*["']?((?:https?://[^"'\s>]+)?/(?:album|track)/[^"'\s>?#]+)`)
	escapedPathRe = regexp.MustCompile(`((?:https?:\\?/\\?/[^"&\s]+)?(?:\\?/)(?:album|track)\\?/[^"&\s\\?#]+?)(?:"|&quot;|\\")`)
)

// LinkStrategies run in order; the first one that yields any link wins.
var LinkStrategies = []LinkStrategy{
	anchorLinks,
	regexLinks(hrefRe),
	regexLinks(escapedPathRe),
}

// anchorLinks reads <a href> elements through goquery.
func anchorLinks(page string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil
	}
	var out []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if isReleasePath(href) {
			out = append(out, href)
		}
	})
	return out
}

func regexLinks(re *regexp.Regexp) LinkStrategy {
	return func(page string) []string {
		var out []string
		for _, m := range re.FindAllStringSubmatch(page, -1) {
			href := strings.ReplaceAll(html.UnescapeString(m[1]), `\/`, `/`)
			if isReleasePath(href) {
				out = append(out, href)
			}
		}
		return out
	}
}

// isReleasePath reports whether href points at an /album/ or /track/ page.
func isReleasePath(href string) bool {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Path, "/album/") || strings.HasPrefix(u.Path, "/track/")
}

// AlbumLinks returns at most max absolute release URLs found in page,
// resolving relative links against base. Duplicates are removed and page
// order is kept.
func AlbumLinks(page, base string, max int) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	var raw []string
	for _, strategy := range LinkStrategies {
		if raw = strategy(page); len(raw) > 0 {
			break
		}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, href := range raw {
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		abs := baseURL.ResolveReference(ref)
		abs.RawQuery = ""
		abs.Fragment = ""
		s := abs.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
