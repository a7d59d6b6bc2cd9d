package release

import (
	"strings"
	"time"
)

// pageDateLayouts are tried in order against dates scraped from release pages.
var pageDateLayouts = []string{
	"02 Jan 2006 15:04:05 MST",
	"January 2, 2006",
	"January 02, 2006",
	"Jan 2, 2006",
	"Jan 02, 2006",
	"Jan. 2, 2006",
}

// feedDateLayouts extends pageDateLayouts with the forms feeds use.
var feedDateLayouts = append(append([]string{}, pageDateLayouts...),
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	time.RFC3339,
	"2006-01-02",
)

// ParseDate parses a date found on a release page. The first layout that
// parses wins.
func ParseDate(s string) (time.Time, bool) {
	return parseWith(pageDateLayouts, s)
}

// ParseFeedDate parses a feed item date, accepting RFC 822 with or without
// the weekday, ISO 8601 with offset and plain YYYY-MM-DD in addition to
// the page layouts.
func ParseFeedDate(s string) (time.Time, bool) {
	return parseWith(feedDateLayouts, s)
}

func parseWith(layouts []string, s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
