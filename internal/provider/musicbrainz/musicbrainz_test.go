package musicbrainz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/sydlexius/elsewhere/internal/provider"
	"github.com/sydlexius/elsewhere/internal/source"
)

const staticAgeMBID = "3c1e2f7a-5b0d-4d6e-9a51-0f4d2b8e7c11"

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/artist" && r.URL.Query().Get("query") != "":
			query := r.URL.Query().Get("query")
			switch query {
			case "nonexistent-artist-xyz":
				w.Write([]byte(`{"created":"","count":0,"offset":0,"artists":[]}`))
			case "server-error":
				w.WriteHeader(http.StatusServiceUnavailable)
			default:
				w.Write(loadFixture(t, "search_static_age.json"))
			}

		case strings.HasPrefix(r.URL.Path, "/artist/"):
			mbid := strings.TrimPrefix(r.URL.Path, "/artist/")
			if mbid != staticAgeMBID {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(loadFixture(t, "artist_static_age.json"))

		case r.URL.Path == "/release-group" && r.URL.Query().Get("artist") == staticAgeMBID:
			w.Write(loadFixture(t, "release_groups_static_age.json"))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	limiter := provider.NewRateLimiterMapWith(nil)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWithBaseURL(limiter, logger, baseURL)
}

func TestEnrich(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	d, err := a.Enrich(context.Background(), "static age")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if !d.Found() || d.ResolvedName != "Static Age" {
		t.Fatalf("expected Static Age resolved, got %+v", d)
	}
	if d.Query != "static age" {
		t.Errorf("expected query preserved, got %q", d.Query)
	}
	if d.CatalogURL != "https://musicbrainz.org/artist/"+staticAgeMBID {
		t.Errorf("unexpected catalog url %q", d.CatalogURL)
	}
	if d.OfficialURL != "https://staticage.example/" {
		t.Errorf("unexpected official url %q", d.OfficialURL)
	}
	if !d.HasPre2005Release {
		t.Error("expected pre-2005 release from 2003 EP")
	}

	want := map[source.ID]string{
		source.Instagram: "https://www.instagram.com/staticageband/",
		source.Twitter:   "https://x.com/staticage",
		source.Mastodon:  "https://mastodon.social/@staticage",
		source.YouTube:   "https://www.youtube.com/@staticage",
	}
	if len(d.Socials) != len(want) {
		t.Fatalf("expected %d socials, got %+v", len(want), d.Socials)
	}
	for _, s := range d.Socials {
		if want[s.Platform] != s.URL {
			t.Errorf("%s: expected %q, got %q", s.Platform, want[s.Platform], s.URL)
		}
	}
}

func TestEnrichNotFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	d, err := a.Enrich(context.Background(), "nonexistent-artist-xyz")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if d.Found() {
		t.Errorf("expected not found, got %+v", d)
	}
}

func TestEnrichLowScoreIsNotAMatch(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	// The fixture lists "Static Agent" with a score below the threshold.
	d, err := a.Enrich(context.Background(), "Static Agent")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if d.Found() {
		t.Errorf("expected no match, got %q", d.ResolvedName)
	}
}

func TestEnrichServerError(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.Enrich(context.Background(), "server-error")
	var unavail *provider.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Errorf("expected ErrProviderUnavailable, got %T: %v", err, err)
	}
}

func TestGetArtistNotFound(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	_, err := a.GetArtist(context.Background(), "not-found-id")
	if !provider.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %T: %v", err, err)
	}
}

func TestGetReleaseGroups(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	groups, err := a.GetReleaseGroups(context.Background(), staticAgeMBID)
	if err != nil {
		t.Fatalf("GetReleaseGroups: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 release groups, got %d", len(groups))
	}
	if groups[0].Title != "Neon Hum" {
		t.Errorf("expected Neon Hum first, got %s", groups[0].Title)
	}
}

func TestContextCancellation(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.SearchArtist(ctx, "Static Age"); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"created":"","count":0,"offset":0,"artists":[]}`))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, _ = a.SearchArtist(context.Background(), "test")

	if !strings.HasPrefix(gotUA, "Elsewhere/") {
		t.Errorf("expected User-Agent starting with Elsewhere/, got %s", gotUA)
	}
}

func TestReleasedBefore(t *testing.T) {
	groups := []ReleaseGroup{
		{FirstReleaseDate: "2005-01-01"},
		{FirstReleaseDate: "19"},
		{FirstReleaseDate: ""},
	}
	if releasedBefore(groups, 2005) {
		t.Error("2005 is not before 2005")
	}
	groups = append(groups, ReleaseGroup{FirstReleaseDate: "1999"})
	if !releasedBefore(groups, 2005) {
		t.Error("expected 1999 to count")
	}
}

func TestSocialPlatform(t *testing.T) {
	cases := []struct {
		relType, url string
		want         source.ID
	}{
		{"social network", "https://www.instagram.com/x", source.Instagram},
		{"social network", "https://m.facebook.com/x", source.Facebook},
		{"social network", "https://bsky.app/profile/x", source.Bluesky},
		{"social network", "https://www.tiktok.com/@x", source.TikTok},
		{"soundcloud", "https://soundcloud.com/x", source.SoundCloud},
		{"social network", "https://fosstodon.org/@x", source.Mastodon},
		{"blog", "https://blog.example/@x", ""},
		{"social network", "not a url", ""},
	}
	for _, c := range cases {
		if got := socialPlatform(c.relType, c.url); got != c.want {
			t.Errorf("socialPlatform(%q, %q) = %q, want %q", c.relType, c.url, got, c.want)
		}
	}
}

func TestNormalizeHyphens(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"a\u2010ha", "a-ha"},                    // U+2010 HYPHEN
		{"a\u2011ha", "a-ha"},                    // U+2011 NON-BREAKING HYPHEN
		{"a-ha", "a-ha"},                         // already ASCII, unchanged
		{"Sigur \u2013 Ros", "Sigur \u2013 Ros"}, // en-dash left as-is
		{"", ""},
	}
	for _, c := range cases {
		got := normalizeHyphens(c.input)
		if got != c.want {
			t.Errorf("normalizeHyphens(%q) = %q, want %q", c.input, got, c.want)
		}
	}
}
