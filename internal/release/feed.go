package release

import (
	"html"
	"regexp"
	"strings"

	"github.com/sydlexius/elsewhere/internal/result"
)

// FeedItem is one <item> of a syndication feed.
type FeedItem struct {
	Title    string
	Link     string
	ImageURL string
	PubDate  string
}

// Feed is the tolerant parse of an RSS document.
type Feed struct {
	Title string
	Items []FeedItem
}

var (
	itemBlockRe    = regexp.MustCompile(`(?is)<item\b[^>]*>(.*?)</item>`)
	channelTitleRe = fieldRe("title")
	enclosureRe    = regexp.MustCompile(`(?is)<(?:enclosure|media:content|media:thumbnail)\b[^>]*?url\s*=\s*["']([^"']+)["']`)
	itunesImageRe  = regexp.MustCompile(`(?is)<itunes:image\b[^>]*?href\s*=\s*["']([^"']+)["']`)
	itemFieldRes   = map[string]*regexp.Regexp{
		"title":   fieldRe("title"),
		"link":    fieldRe("link"),
		"pubDate": fieldRe("pubDate"),
		"date":    fieldRe("dc:date"),
	}
)

// fieldRe matches <name>value</name> where value may be CDATA-wrapped.
func fieldRe(name string) *regexp.Regexp {
	n := regexp.QuoteMeta(name)
	return regexp.MustCompile(`(?is)<` + n + `\b[^>]*>\s*(?:<!\[CDATA\[(.*?)\]\]>|(.*?))\s*</` + n + `>`)
}

// field returns the decoded value of the first match of re in block.
func field(re *regexp.Regexp, block string) string {
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	v := m[1]
	if v == "" {
		v = m[2]
	}
	return strings.TrimSpace(html.UnescapeString(v))
}

// ParseFeed extracts the channel title and every item block from raw. It
// never fails; malformed items simply come back with empty fields.
func ParseFeed(raw string) Feed {
	var f Feed

	head := raw
	if i := itemBlockRe.FindStringIndex(raw); i != nil {
		head = raw[:i[0]]
	}
	f.Title = field(channelTitleRe, head)

	for _, m := range itemBlockRe.FindAllStringSubmatch(raw, -1) {
		block := m[1]
		item := FeedItem{
			Title: field(itemFieldRes["title"], block),
			Link:  field(itemFieldRes["link"], block),
		}
		item.PubDate = field(itemFieldRes["pubDate"], block)
		if item.PubDate == "" {
			item.PubDate = field(itemFieldRes["date"], block)
		}
		if img := enclosureRe.FindStringSubmatch(block); img != nil {
			item.ImageURL = html.UnescapeString(img[1])
		} else if img := itunesImageRe.FindStringSubmatch(block); img != nil {
			item.ImageURL = html.UnescapeString(img[1])
		}
		f.Items = append(f.Items, item)
	}
	return f
}

// Releases converts feed items into release candidates. Items without a
// title or a parseable date are skipped.
func (f Feed) Releases() []*result.LatestRelease {
	var out []*result.LatestRelease
	for _, it := range f.Items {
		if it.Title == "" {
			continue
		}
		date, ok := ParseFeedDate(it.PubDate)
		if !ok {
			continue
		}
		out = append(out, &result.LatestRelease{
			Title:       CleanTitle(it.Title),
			Type:        itemType(it.Link),
			URL:         it.Link,
			ImageURL:    it.ImageURL,
			ReleaseDate: &date,
		})
	}
	return out
}
