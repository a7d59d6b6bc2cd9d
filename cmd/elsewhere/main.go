package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sydlexius/elsewhere/internal/api"
	"github.com/sydlexius/elsewhere/internal/api/middleware"
	"github.com/sydlexius/elsewhere/internal/config"
	"github.com/sydlexius/elsewhere/internal/database"
	"github.com/sydlexius/elsewhere/internal/embed"
	"github.com/sydlexius/elsewhere/internal/enrich"
	"github.com/sydlexius/elsewhere/internal/event"
	"github.com/sydlexius/elsewhere/internal/logging"
	"github.com/sydlexius/elsewhere/internal/maintenance"
	"github.com/sydlexius/elsewhere/internal/provider"
	"github.com/sydlexius/elsewhere/internal/provider/adapters"
	"github.com/sydlexius/elsewhere/internal/provider/musicbrainz"
	"github.com/sydlexius/elsewhere/internal/resolve"
	"github.com/sydlexius/elsewhere/internal/source"
	"github.com/sydlexius/elsewhere/internal/version"
	"github.com/sydlexius/elsewhere/internal/watcher"
)

const usage = `usage: elsewhere [command]

With no command the HTTP server is started.

commands:
  search <query>    search every platform and print the results
  enrich <artist>   print the enrichment record for an artist
  embed <url>       print the embeddable player for a Bandcamp page
  resolve <url>     print the artist behind a streaming link
  version           print the version
`

func main() {
	var err error
	if len(os.Args) > 1 {
		err = runCommand(os.Args[1], os.Args[2:])
	} else {
		err = run()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the services shared by the server and the CLI commands.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	logManager   *logging.Manager
	db           *sql.DB
	sources      *source.Registry
	orchestrator *provider.Orchestrator
	enrichment   *enrich.Service
	cache        *enrich.Cache
	embed        *embed.Resolver
	resolver     *resolve.Resolver
}

func configPath() string {
	if p := os.Getenv("EW_CONFIG_PATH"); p != "" {
		return p
	}
	return "/data/config.yaml"
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	a := &app{
		cfg:        cfg,
		logger:     logger,
		logManager: logManager,
		sources:    source.Default(),
	}

	limiter := provider.NewRateLimiterMap()
	fetcher := provider.NewFetcher(limiter, cfg.Sources.UserAgent, logger)

	reg := adapters.Build(a.sources, fetcher, adapters.Options{
		MaxAlbumPages: cfg.Sources.MaxAlbumPages,
		Disabled:      cfg.DisabledSources(),
	}, logger)
	a.orchestrator = provider.NewOrchestrator(reg, cfg.Sources.Timeout, cfg.Enrichment.Enabled, logger)
	a.orchestrator.SetQueueBudget(cfg.Sources.QueueBudget)

	if cfg.Enrichment.Enabled {
		// A missing cache slows enrichment down but does not disable it.
		db, err := database.OpenAndMigrate(cfg.Database.Path)
		if err != nil {
			logger.Warn("enrichment cache unavailable",
				slog.String("path", cfg.Database.Path),
				slog.String("error", err.Error()))
		} else {
			logger.Debug("database ready", slog.String("path", cfg.Database.Path))
			a.db = db
			a.cache = enrich.NewCache(db, cfg.Enrichment.CacheTTL, cfg.Enrichment.NegativeCacheTTL)
		}
		mb := musicbrainz.NewWithBaseURL(limiter, logger, cfg.Enrichment.MusicBrainzURL)
		a.enrichment = enrich.NewService(mb, a.cache, cfg.Enrichment.Timeout, logger)
	}

	a.embed = embed.NewResolver(fetcher, cfg.Embed.Timeout, logger)
	a.resolver = resolve.New(fetcher, logger)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("closing database", slog.String("error", err.Error()))
		}
	}
	a.logManager.Close() //nolint:errcheck
}

func run() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, logger := a.cfg, a.logger
	logger.Info("starting elsewhere",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("logging", logging.Describe(cfg.Logging)),
		slog.Int("adapters", len(a.orchestrator.Adapters())),
		slog.Bool("enrichment", a.enrichment != nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventBus := event.NewBus(logger, 256)
	if a.enrichment != nil {
		eventBus.Subscribe(event.SearchCompleted, a.enrichment.HandleEvent)
	}
	eventBus.Subscribe(event.ConfigReloaded, func(e event.Event) {
		logger.Debug("logging reconfigured",
			slog.Any("path", e.Data["path"]),
			slog.String("logging", logging.Describe(a.logManager.Config())))
	})
	go eventBus.Start()
	defer func() {
		eventBus.Stop()
		eventBus.Wait()
		if a.enrichment != nil {
			a.enrichment.Wait()
		}
	}()

	// Only logging settings take effect without a restart.
	cfgWatcher := watcher.NewService(configPath(), func(next *config.Config) {
		a.logManager.Reconfigure(next.Logging)
	}, eventBus, logger)
	go cfgWatcher.Start(ctx)

	var maint *maintenance.Service
	if a.db != nil {
		maint = maintenance.NewService(a.db, cfg.Database.Path, a.cache, logger)
		go maint.StartScheduler(ctx, 6*time.Hour)
	}

	router := api.NewRouter(api.RouterDeps{
		Sources:      a.sources,
		Orchestrator: a.orchestrator,
		Enrichment:   a.enrichment,
		Embed:        a.embed,
		Resolver:     a.resolver,
		EventBus:     eventBus,
		Maintenance:  maint,
		RateLimiter:  middleware.NewIPRateLimiter(ctx, cfg.RateLimit.RequestsPerMinute),
		Logger:       logger,
		BasePath:     cfg.Server.BasePath,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("serving http: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runCommand executes a one-shot CLI command and prints its result as JSON.
func runCommand(name string, args []string) error {
	switch name {
	case "version", "--version":
		fmt.Printf("elsewhere %s (%s)\n", version.Version, version.Commit)
		return nil
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	case "search", "enrich", "embed", "resolve":
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", name)
	}
	arg := strings.TrimSpace(strings.Join(args, " "))
	if arg == "" {
		return fmt.Errorf("%s: missing argument", name)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var out any
	switch name {
	case "search":
		out, err = a.orchestrator.Search(ctx, arg)
	case "enrich":
		if a.enrichment == nil {
			return errors.New("enrichment is disabled")
		}
		out, err = a.enrichment.Lookup(ctx, arg)
	case "embed":
		var e *embed.Embed
		e, err = a.embed.Resolve(ctx, arg)
		if e == nil && err == nil {
			out = map[string]bool{"found": false}
		} else {
			out = e
		}
	case "resolve":
		var artist string
		artist, err = a.resolver.Resolve(ctx, arg)
		out = map[string]any{"found": artist != "", "artist": artist}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
