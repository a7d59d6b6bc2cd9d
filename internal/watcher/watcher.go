// Package watcher reloads the config file when it changes on disk.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sydlexius/elsewhere/internal/config"
	"github.com/sydlexius/elsewhere/internal/event"
)

// ReloadFunc receives each successfully reloaded config.
type ReloadFunc func(cfg *config.Config)

// Service watches one config file. It watches the parent directory rather
// than the file so editors that replace the file on save are still seen.
type Service struct {
	path         string
	reload       ReloadFunc
	eventBus     *event.Bus
	logger       *slog.Logger
	debounce     time.Duration
	pollInterval time.Duration
	probeTimeout time.Duration
}

// NewService creates a config watcher. eventBus may be nil.
func NewService(path string, reload ReloadFunc, eventBus *event.Bus, logger *slog.Logger) *Service {
	return &Service{
		path:         filepath.Clean(path),
		reload:       reload,
		eventBus:     eventBus,
		logger:       logger.With(slog.String("component", "config-watcher")),
		debounce:     500 * time.Millisecond,
		pollInterval: 30 * time.Second,
		probeTimeout: 2 * time.Second,
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// SetPollInterval overrides the poll interval used when fsnotify does not
// work for the config directory (for testing).
func (s *Service) SetPollInterval(d time.Duration) {
	s.pollInterval = d
}

// Start blocks until ctx is canceled. When fsnotify is unavailable or does
// not deliver events for the config directory, the file's modification
// time is polled instead.
func (s *Service) Start(ctx context.Context) {
	dir := filepath.Dir(s.path)

	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	if ProbeFSNotify(dir, s.probeTimeout) {
		w, err := fsnotify.NewWatcher()
		if err == nil {
			defer w.Close() //nolint:errcheck
			if err := w.Add(dir); err == nil {
				eventCh = w.Events
				errCh = w.Errors
			} else {
				s.logger.Warn("watching config directory failed", slog.String("dir", dir), slog.String("error", err.Error()))
			}
		}
	}

	// A nil channel never receives, which disables the poll case.
	var pollCh <-chan time.Time
	if eventCh == nil {
		s.logger.Info("fsnotify unavailable for config directory, polling", slog.Duration("interval", s.pollInterval))
		t := time.NewTicker(s.pollInterval)
		defer t.Stop()
		pollCh = t.C
	}
	lastMod := s.modTime()

	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	pending := false
	schedule := func() {
		if !debounceTimer.Stop() {
			select {
			case <-debounceTimer.C:
			default:
			}
		}
		debounceTimer.Reset(s.debounce)
		pending = true
	}

	s.logger.Info("config watcher starting", slog.String("path", s.path))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("config watcher stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				schedule()
			}

		case err, ok := <-errCh:
			if !ok {
				return
			}
			s.logger.Error("fsnotify error", slog.String("error", err.Error()))

		case <-pollCh:
			if m := s.modTime(); !m.Equal(lastMod) {
				lastMod = m
				schedule()
			}

		case <-debounceTimer.C:
			if pending {
				pending = false
				s.apply()
			}
		}
	}
}

// apply reloads the file. An invalid file is logged and the running
// configuration is kept.
func (s *Service) apply() {
	cfg, err := config.Load(s.path)
	if err != nil {
		s.logger.Warn("config reload rejected", slog.String("path", s.path), slog.String("error", err.Error()))
		return
	}
	s.reload(cfg)
	s.logger.Info("config reloaded", slog.String("path", s.path))
	if s.eventBus != nil {
		s.eventBus.Publish(event.Event{
			Type: event.ConfigReloaded,
			Data: map[string]any{"path": s.path},
		})
	}
}

func (s *Service) modTime() time.Time {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
