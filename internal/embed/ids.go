package embed

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"

	"github.com/sydlexius/elsewhere/internal/result"
)

// IDStrategy extracts an item id, and the item type when the page states
// it, from raw page text.
type IDStrategy func(page string) (id string, typ result.EntityType, ok bool)

// IDStrategies are tried in order; the first match wins.
var IDStrategies = []IDStrategy{
	pagePropertiesID,
	queryStyleID,
	dataAttributeID,
	jsonFieldID,
	currentObjectID,
}

var (
	notEmbeddableRe = regexp.MustCompile(`"public_embeddable"\s*:\s*false`)
	propertiesRe    = regexp.MustCompile(`<meta[^>]+name=["']bc-page-properties["'][^>]+content=["']([^"']+)["']`)
	queryStyleRe    = regexp.MustCompile(`\b(album|track)=(\d+)`)
	dataAttributeRe = regexp.MustCompile(`data-(?:item-id|tralbum-id)=["'](?:(album|track)-)?(\d+)["']`)
	jsonFieldRe     = regexp.MustCompile(`"(tralbum_id|album_id)"\s*:\s*(\d+)`)
	currentObjectRe = regexp.MustCompile(`"current"\s*:\s*\{[^{}]*?"id"\s*:\s*(\d+)`)
)

// Embeddable reports false only when the page explicitly marks itself as
// not publicly embeddable.
func Embeddable(page string) bool {
	return !notEmbeddableRe.MatchString(html.UnescapeString(page))
}

// ItemID runs IDStrategies against page.
func ItemID(page string) (string, result.EntityType, bool) {
	for _, s := range IDStrategies {
		if id, typ, ok := s(page); ok {
			return id, typ, true
		}
	}
	return "", "", false
}

func pagePropertiesID(page string) (string, result.EntityType, bool) {
	m := propertiesRe.FindStringSubmatch(page)
	if m == nil {
		return "", "", false
	}
	var props struct {
		ItemType string      `json:"item_type"`
		ItemID   json.Number `json:"item_id"`
	}
	if err := json.Unmarshal([]byte(html.UnescapeString(m[1])), &props); err != nil || props.ItemID == "" {
		return "", "", false
	}
	var typ result.EntityType
	switch props.ItemType {
	case "a", "album":
		typ = result.TypeAlbum
	case "t", "track":
		typ = result.TypeTrack
	default:
		// Band and label pages carry their own id, which no player accepts.
		return "", "", false
	}
	return props.ItemID.String(), typ, true
}

func queryStyleID(page string) (string, result.EntityType, bool) {
	m := queryStyleRe.FindStringSubmatch(page)
	if m == nil {
		return "", "", false
	}
	return m[2], result.EntityType(m[1]), true
}

func dataAttributeID(page string) (string, result.EntityType, bool) {
	m := dataAttributeRe.FindStringSubmatch(page)
	if m == nil {
		return "", "", false
	}
	return m[2], result.EntityType(m[1]), true
}

func jsonFieldID(page string) (string, result.EntityType, bool) {
	m := jsonFieldRe.FindStringSubmatch(unquote(page))
	if m == nil {
		return "", "", false
	}
	return m[2], "", true
}

func currentObjectID(page string) (string, result.EntityType, bool) {
	m := currentObjectRe.FindStringSubmatch(unquote(page))
	if m == nil {
		return "", "", false
	}
	return m[1], "", true
}

// unquote decodes the &quot; escaping used in data-* JSON blobs.
func unquote(page string) string {
	return strings.ReplaceAll(page, "&quot;", `"`)
}
