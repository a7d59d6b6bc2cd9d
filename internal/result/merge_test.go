package result

import (
	"sort"
	"testing"

	"github.com/sydlexius/elsewhere/internal/source"
)

func link(id source.ID, url string) PlatformLink {
	return PlatformLink{SourceID: id, URL: url}
}

func releaseLink(id source.ID, title string) PlatformLink {
	return PlatformLink{
		SourceID:      id,
		URL:           "https://" + string(id) + ".example/artist",
		LatestRelease: &LatestRelease{Title: title, Type: TypeAlbum},
	}
}

func artist(name string, links ...PlatformLink) Entity {
	e := NewArtist(name, links[0])
	e.Platforms = append(e.Platforms, links[1:]...)
	return e
}

func sourceSet(e Entity) []string {
	var ids []string
	for _, p := range e.Platforms {
		ids = append(ids, string(p.SourceID))
	}
	sort.Strings(ids)
	return ids
}

func findByKey(t *testing.T, entities []Entity, key string) Entity {
	t.Helper()
	for _, e := range entities {
		if e.Key() == key {
			return e
		}
	}
	t.Fatalf("no entity with key %q", key)
	return Entity{}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"Mo-Rice":         "morice",
		"  The  XX ":      "thexx",
		"Kid Lightbulbs!": "kidlightbulbs",
		"Sigur Rós":       "sigurrós",
		"":                "",
	}
	for in, want := range tests {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEntityKeyUsesArtist(t *testing.T) {
	album := Entity{Name: "Midnight EP", Artist: "Kid Lightbulbs", Type: TypeAlbum}
	if album.Key() != "kidlightbulbsmidnightep" {
		t.Errorf("unexpected key %q", album.Key())
	}
	a := Entity{Name: "Kid Lightbulbs", Type: TypeArtist}
	if a.Key() != "kidlightbulbs" {
		t.Errorf("unexpected key %q", a.Key())
	}
}

func TestMergeSingleResponseIsIdempotent(t *testing.T) {
	resp := SearchResponse{
		Query: "Static Age",
		Results: []Entity{
			artist("Static Age", link("bandcamp", "https://staticage.bandcamp.com")),
			artist("static age", link("patreon", "https://patreon.com/staticage")),
			artist("Other", link("audius", "https://audius.co/other"), link("kofi", "https://ko-fi.com/other")),
		},
	}

	got := Merge("Static Age", []SearchResponse{resp})
	if len(got.Results) != 2 {
		t.Fatalf("expected 2 deduplicated results, got %d", len(got.Results))
	}
	sa := findByKey(t, got.Results, "staticage")
	if ids := sourceSet(sa); len(ids) != 2 || ids[0] != "bandcamp" || ids[1] != "patreon" {
		t.Errorf("unexpected sources %v", ids)
	}
	if sa.Confidence != ConfidenceUnset {
		t.Errorf("single response merge should not mark unverified, got %q", sa.Confidence)
	}
	if got.Query != "Static Age" {
		t.Errorf("unexpected query %q", got.Query)
	}
}

func TestMergeCommutative(t *testing.T) {
	a := SearchResponse{Results: []Entity{
		artist("Mo-Rice", link("bandcamp", "https://morice.bandcamp.com")),
		artist("Babebee", releaseLink("bandcamp", "Hive")),
	}}
	b := SearchResponse{Results: []Entity{
		artist("MO RICE", link("patreon", "https://patreon.com/morice"), link("bandcamp", "https://other.bandcamp.com")),
		artist("Babebee", releaseLink("mirlo", "hive")),
	}}

	ab := Merge("q", []SearchResponse{a, b})
	ba := Merge("q", []SearchResponse{b, a})

	if len(ab.Results) != len(ba.Results) {
		t.Fatalf("result counts differ: %d vs %d", len(ab.Results), len(ba.Results))
	}
	for _, key := range []string{"morice", "babebee"} {
		x := findByKey(t, ab.Results, key)
		y := findByKey(t, ba.Results, key)
		xs, ys := sourceSet(x), sourceSet(y)
		if len(xs) != len(ys) {
			t.Fatalf("%s: source sets differ: %v vs %v", key, xs, ys)
		}
		for i := range xs {
			if xs[i] != ys[i] {
				t.Errorf("%s: source sets differ: %v vs %v", key, xs, ys)
			}
		}
		if x.Confidence != y.Confidence {
			t.Errorf("%s: confidence differs: %q vs %q", key, x.Confidence, y.Confidence)
		}
	}

	if c := findByKey(t, ab.Results, "babebee").Confidence; c != ConfidenceVerified {
		t.Errorf("expected babebee verified by matching release titles, got %q", c)
	}
	if c := findByKey(t, ab.Results, "morice").Confidence; c != ConfidenceUnverified {
		t.Errorf("expected morice unverified, got %q", c)
	}
}

func TestMergeFirstLinkWins(t *testing.T) {
	a := SearchResponse{Results: []Entity{artist("X", link("bandcamp", "https://first"))}}
	b := SearchResponse{Results: []Entity{artist("X", link("bandcamp", "https://second"))}}

	got := Merge("X", []SearchResponse{a, b})
	if len(got.Results[0].Platforms) != 1 {
		t.Fatalf("expected one link, got %d", len(got.Results[0].Platforms))
	}
	if got.Results[0].Platforms[0].URL != "https://first" {
		t.Errorf("expected first-seen link kept, got %s", got.Results[0].Platforms[0].URL)
	}
}

func TestMergeConfidenceMonotonic(t *testing.T) {
	verified := artist("Static Age", link("bandcamp", "https://staticage.bandcamp.com"))
	verified.Confidence = ConfidenceVerified
	plain := artist("Static Age", link("kofi", "https://ko-fi.com/staticage"))
	plain.Confidence = ConfidenceUnverified

	for _, order := range [][]SearchResponse{
		{{Results: []Entity{verified}}, {Results: []Entity{plain}}},
		{{Results: []Entity{plain}}, {Results: []Entity{verified}}},
	} {
		got := Merge("Static Age", order)
		if got.Results[0].Confidence != ConfidenceVerified {
			t.Errorf("verified was downgraded to %q", got.Results[0].Confidence)
		}
		// Merging the merged output again must keep it verified.
		again := Merge("Static Age", []SearchResponse{got, {Results: []Entity{plain}}})
		if again.Results[0].Confidence != ConfidenceVerified {
			t.Errorf("verified was downgraded on re-merge to %q", again.Results[0].Confidence)
		}
	}
}

func TestMergeBackfillsImage(t *testing.T) {
	noImg := artist("X", link("bandcamp", "https://a"))
	withImg := artist("X", link("mirlo", "https://b"))
	withImg.ImageURL = "https://img"

	got := Merge("X", []SearchResponse{{Results: []Entity{noImg}}, {Results: []Entity{withImg}}})
	if got.Results[0].ImageURL != "https://img" {
		t.Errorf("expected image backfilled, got %q", got.Results[0].ImageURL)
	}
}

func TestMergeRanksByPlatformCount(t *testing.T) {
	one := artist("One", link("bandcamp", "https://1"))
	three := artist("Three", link("bandcamp", "https://3"), link("mirlo", "https://3m"), link("kofi", "https://3k"))
	two := artist("Two", link("bandcamp", "https://2"), link("mirlo", "https://2m"))
	alsoOne := artist("Also One", link("kofi", "https://1k"))

	got := Merge("q", []SearchResponse{{Results: []Entity{one, three, two, alsoOne}}})
	want := []string{"Three", "Two", "One", "Also One"}
	for i, name := range want {
		if got.Results[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, got.Results[i].Name)
		}
	}
}

func TestMergeEmpty(t *testing.T) {
	got := Merge("nothing", nil)
	if got.Results == nil || len(got.Results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", got.Results)
	}
}

func TestVerifyRequiresDistinctPlatforms(t *testing.T) {
	e := artist("Kid Lightbulbs", releaseLink("bandcamp", "Midnight EP"))
	Verify(&e)
	if e.Confidence == ConfidenceVerified {
		t.Error("a single platform must not verify")
	}

	e.Platforms = append(e.Platforms, releaseLink("mirlo", "Other Record"))
	Verify(&e)
	if e.Confidence == ConfidenceVerified {
		t.Error("disagreeing releases must not verify")
	}

	e.Platforms = append(e.Platforms, releaseLink("audius", "midnight ep"))
	Verify(&e)
	if e.Confidence != ConfidenceVerified {
		t.Error("matching releases on two platforms should verify")
	}
}

func TestAssembleAttachesSearchLinks(t *testing.T) {
	candidates := []Entity{
		artist("Kid Lightbulbs", PlatformLink{SourceID: "qobuz", URL: "https://qobuz/search?q=kid", SearchOnly: true}),
		artist("Kid Lightbulbs", releaseLink("bandcamp", "Midnight EP")),
		artist("Kid Lightbulbs", releaseLink("mirlo", "Midnight EP")),
	}

	got := Assemble("Kid Lightbulbs", candidates)
	if len(got.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got.Results))
	}
	e := got.Results[0]
	if len(e.Platforms) != 3 {
		t.Fatalf("expected 3 links, got %d", len(e.Platforms))
	}
	if e.Confidence != ConfidenceVerified {
		t.Errorf("expected verified, got %q", e.Confidence)
	}
}

func TestAssembleDropsSearchOnlyEntities(t *testing.T) {
	candidates := []Entity{
		artist("Babebee", PlatformLink{SourceID: "qobuz", URL: "https://qobuz/search?q=babebee", SearchOnly: true}),
	}
	got := Assemble("Babebee", candidates)
	if len(got.Results) != 0 {
		t.Errorf("expected no results when only search links exist, got %d", len(got.Results))
	}
}
