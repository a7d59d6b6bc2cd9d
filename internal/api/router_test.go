package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sydlexius/elsewhere/internal/api/middleware"
	"github.com/sydlexius/elsewhere/internal/database"
	"github.com/sydlexius/elsewhere/internal/embed"
	"github.com/sydlexius/elsewhere/internal/enrich"
	"github.com/sydlexius/elsewhere/internal/event"
	"github.com/sydlexius/elsewhere/internal/maintenance"
	"github.com/sydlexius/elsewhere/internal/provider"
	"github.com/sydlexius/elsewhere/internal/resolve"
	"github.com/sydlexius/elsewhere/internal/result"
	"github.com/sydlexius/elsewhere/internal/source"
)

type stubAdapter struct{ id source.ID }

func (s stubAdapter) Source() source.ID { return s.id }

func (s stubAdapter) FetchCandidates(_ context.Context, q string) ([]result.Entity, error) {
	if !strings.EqualFold(q, "Static Age") {
		return nil, nil
	}
	return []result.Entity{result.NewArtist("Static Age", result.PlatformLink{
		SourceID: s.id,
		URL:      "https://staticage.bandcamp.com",
	})}, nil
}

type stubLookup struct{ err error }

func (s stubLookup) Enrich(_ context.Context, artist string) (enrich.Data, error) {
	if s.err != nil {
		return enrich.Data{}, s.err
	}
	if !strings.EqualFold(artist, "Static Age") {
		return enrich.Data{Query: artist}, nil
	}
	return enrich.Data{
		Query:             artist,
		ResolvedName:      "Static Age",
		OfficialURL:       "https://staticage.example/",
		HasPre2005Release: true,
	}, nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testEnv struct {
	handler http.Handler
	bus     *event.Bus
}

func newTestEnv(t *testing.T, lookup enrich.Lookup, perMinute int) testEnv {
	t.Helper()
	logger := silentLogger()
	sources := source.Default()

	reg := provider.NewRegistry(sources)
	reg.Register(stubAdapter{id: source.Bandcamp})
	orch := provider.NewOrchestrator(reg, time.Second, lookup != nil, logger)

	var svc *enrich.Service
	if lookup != nil {
		svc = enrich.NewService(lookup, nil, time.Second, logger)
	}

	deezer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":27,"name":"Daft Punk"}`)) //nolint:errcheck
	}))
	t.Cleanup(deezer.Close)

	fetcher := provider.NewFetcher(provider.NewRateLimiterMapWith(nil), "", logger)
	bus := event.NewBus(logger, 16)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := NewRouter(RouterDeps{
		Sources:      sources,
		Orchestrator: orch,
		Enrichment:   svc,
		Embed:        embed.NewResolver(fetcher, time.Second, logger),
		Resolver:     resolve.NewWithBaseURL(fetcher, logger, deezer.URL),
		EventBus:     bus,
		RateLimiter:  middleware.NewIPRateLimiter(ctx, perMinute),
		Logger:       logger,
	})
	return testEnv{handler: router.Handler(), bus: bus}
}

func (e testEnv) do(t *testing.T, method, target string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.RemoteAddr = "203.0.113.7:5555"
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: decoding body %q: %v", method, target, w.Body.String(), err)
	}
	return w, out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	w, body := env.do(t, http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("unexpected health response %d %v", w.Code, body)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestSources(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	_, body := env.do(t, http.MethodGet, "/api/v1/sources", nil)

	list, ok := body["sources"].([]any)
	if !ok || len(list) != len(source.Catalog()) {
		t.Fatalf("expected every catalog source, got %v", body["sources"])
	}
	first := list[0].(map[string]any)
	if first["id"] != string(source.Bandcamp) || first["enabled"] != true {
		t.Errorf("expected bandcamp enabled first, got %v", first)
	}
	second := list[1].(map[string]any)
	if second["enabled"] != false {
		t.Errorf("expected %v disabled", second["id"])
	}
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, stubLookup{}, 0)
	events := make(chan event.Event, 1)
	env.bus.Subscribe(event.SearchCompleted, func(e event.Event) { events <- e })
	go env.bus.Start()
	t.Cleanup(env.bus.Stop)

	w, body := env.do(t, http.MethodGet, "/api/v1/search?q=Static+Age", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	results := body["results"].([]any)
	if len(results) != 1 || results[0].(map[string]any)["name"] != "Static Age" {
		t.Errorf("unexpected results %v", results)
	}
	if body["enrichment_pending"] != true {
		t.Error("expected enrichment_pending")
	}

	select {
	case e := <-events:
		if e.Query != "Static Age" || e.Data["enrichment_pending"] != true {
			t.Errorf("unexpected event %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("search.completed not published")
	}
}

func TestSearchInvalidQuery(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	w, body := env.do(t, http.MethodGet, "/api/v1/search?q=+++", nil)
	if w.Code != http.StatusBadRequest || body["error"] == nil {
		t.Errorf("expected 400 with error, got %d %v", w.Code, body)
	}
}

func TestSearchNoResults(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	w, body := env.do(t, http.MethodGet, "/api/v1/search?q=Nobody", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if results, _ := body["results"].([]any); len(results) != 0 {
		t.Errorf("expected no results, got %v", results)
	}
}

func TestEnrich(t *testing.T) {
	env := newTestEnv(t, stubLookup{}, 0)

	w, body := env.do(t, http.MethodGet, "/api/v1/enrich?artist=Static+Age", nil)
	if w.Code != http.StatusOK || body["found"] != true || body["official_url"] != "https://staticage.example/" {
		t.Errorf("unexpected enrichment %d %v", w.Code, body)
	}

	_, body = env.do(t, http.MethodGet, "/api/v1/enrich?artist=Nobody", nil)
	if body["found"] != false {
		t.Errorf("expected not found, got %v", body)
	}

	w, _ = env.do(t, http.MethodGet, "/api/v1/enrich?artist=", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty artist status = %d, want 400", w.Code)
	}
}

func TestEnrichLookupFailureIsNotFound(t *testing.T) {
	env := newTestEnv(t, stubLookup{err: errors.New("musicbrainz down")}, 0)
	w, body := env.do(t, http.MethodGet, "/api/v1/enrich?artist=Static+Age", nil)
	if w.Code != http.StatusOK || body["found"] != false {
		t.Errorf("expected found=false, got %d %v", w.Code, body)
	}
}

func TestEnrichDisabled(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	w, _ := env.do(t, http.MethodGet, "/api/v1/enrich?artist=Static+Age", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestEnrichApply(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	payload, _ := json.Marshal(map[string]any{
		"results": []result.Entity{result.NewArtist("Static Age", result.PlatformLink{
			SourceID: source.Bandcamp,
			URL:      "https://staticage.bandcamp.com",
		})},
		"enrichment": enrich.Data{
			Query:             "Static Age",
			ResolvedName:      "Static Age",
			OfficialURL:       "https://staticage.example/",
			HasPre2005Release: true,
		},
	})

	w, body := env.do(t, http.MethodPost, "/api/v1/enrich/apply", payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	platforms := body["results"].([]any)[0].(map[string]any)["platforms"].([]any)
	var ids []string
	for _, p := range platforms {
		ids = append(ids, p.(map[string]any)["source_id"].(string))
	}
	want := "bandcamp,official,hoopla,freegal"
	if got := strings.Join(ids, ","); got != want {
		t.Errorf("platforms = %s, want %s", got, want)
	}
}

func TestEnrichApplyBadBody(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	w, _ := env.do(t, http.MethodPost, "/api/v1/enrich/apply", []byte(`{"results":`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEmbedInvalidURL(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	w, _ := env.do(t, http.MethodGet, "/api/v1/embed?url=not-a-url", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEmbedNotEmbeddable(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<script>{"public_embeddable":false,"id":1}</script>`)) //nolint:errcheck
	}))
	defer page.Close()

	env := newTestEnv(t, nil, 0)
	w, body := env.do(t, http.MethodGet, "/api/v1/embed?url="+page.URL+"/album/x", nil)
	if w.Code != http.StatusOK || body["embeddable"] != false || body["found"] != false {
		t.Errorf("unexpected response %d %v", w.Code, body)
	}
}

func TestResolve(t *testing.T) {
	env := newTestEnv(t, nil, 0)

	_, body := env.do(t, http.MethodGet, "/api/v1/resolve?url=https://www.deezer.com/en/artist/27", nil)
	if body["found"] != true || body["artist"] != "Daft Punk" {
		t.Errorf("unexpected resolve response %v", body)
	}

	w, _ := env.do(t, http.MethodGet, "/api/v1/resolve?url=https://example.com/x", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unsupported host status = %d, want 400", w.Code)
	}
}

func TestSearchRateLimited(t *testing.T) {
	env := newTestEnv(t, nil, 1)
	if w, _ := env.do(t, http.MethodGet, "/api/v1/search?q=Static+Age", nil); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	if w, _ := env.do(t, http.MethodGet, "/api/v1/search?q=Static+Age", nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", w.Code)
	}
	// Health is never limited.
	if w, _ := env.do(t, http.MethodGet, "/api/v1/health", nil); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
}

func TestCacheStatusUnavailable(t *testing.T) {
	env := newTestEnv(t, nil, 0)
	w, _ := env.do(t, http.MethodGet, "/api/v1/cache", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestCacheStatus(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	db, err := database.OpenAndMigrate(dbPath)
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := silentLogger()
	sources := source.Default()
	router := NewRouter(RouterDeps{
		Sources:      sources,
		Orchestrator: provider.NewOrchestrator(provider.NewRegistry(sources), time.Second, false, logger),
		Maintenance:  maintenance.NewService(db, dbPath, nil, logger),
		Logger:       logger,
	})
	env := testEnv{handler: router.Handler()}

	w, body := env.do(t, http.MethodGet, "/api/v1/cache", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["cache_entries"] != float64(0) {
		t.Errorf("unexpected cache status %v", body)
	}
}
