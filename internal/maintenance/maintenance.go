// Package maintenance keeps the enrichment cache database small: expired
// records are pruned and sqlite is optimized on a schedule.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Pruner removes expired cache records and reports how many were removed.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// Status holds database maintenance status information.
type Status struct {
	DBFileSize   int64  `json:"db_file_size"`
	WALFileSize  int64  `json:"wal_file_size"`
	PageCount    int64  `json:"page_count"`
	PageSize     int64  `json:"page_size"`
	CacheEntries int64  `json:"cache_entries"`
	LastRunAt    string `json:"last_run_at,omitempty"`
	LastPruned   int64  `json:"last_pruned"`
}

// Service provides database maintenance operations.
type Service struct {
	db     *sql.DB
	dbPath string
	pruner Pruner
	logger *slog.Logger

	mu         sync.Mutex
	lastRun    time.Time
	lastPruned int64
}

// NewService creates a maintenance service. pruner may be nil, in which
// case Run only optimizes.
func NewService(db *sql.DB, dbPath string, pruner Pruner, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		dbPath: dbPath,
		pruner: pruner,
		logger: logger.With(slog.String("component", "maintenance")),
	}
}

// Status returns current database maintenance status.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	s.mu.Lock()
	st := &Status{LastPruned: s.lastPruned}
	if !s.lastRun.IsZero() {
		st.LastRunAt = s.lastRun.UTC().Format(time.RFC3339)
	}
	s.mu.Unlock()

	if info, err := os.Stat(s.dbPath); err == nil {
		st.DBFileSize = info.Size()
	}
	if info, err := os.Stat(s.dbPath + "-wal"); err == nil {
		st.WALFileSize = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&st.PageCount); err != nil {
		return nil, fmt.Errorf("reading page_count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&st.PageSize); err != nil {
		return nil, fmt.Errorf("reading page_size: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM enrichment_cache").Scan(&st.CacheEntries); err != nil {
		return nil, fmt.Errorf("counting cache entries: %w", err)
	}
	return st, nil
}

// Run prunes expired cache records, then optimizes the database.
func (s *Service) Run(ctx context.Context) error {
	var pruned int64
	if s.pruner != nil {
		n, err := s.pruner.Prune(ctx)
		if err != nil {
			return err
		}
		pruned = n
	}
	if err := s.Optimize(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastPruned = pruned
	s.mu.Unlock()
	s.logger.Debug("maintenance complete", slog.Int64("pruned", pruned))
	return nil
}

// Optimize runs PRAGMA optimize followed by a WAL checkpoint.
func (s *Service) Optimize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("PRAGMA optimize: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}
	return nil
}

// Vacuum runs VACUUM to rebuild the database file.
func (s *Service) Vacuum(ctx context.Context) error {
	s.logger.Info("running VACUUM")
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM: %w", err)
	}
	return nil
}

// StartScheduler runs maintenance on a fixed interval until the context is canceled.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	s.logger.Info("maintenance scheduler started",
		slog.String("interval", interval.String()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.logger.Error("scheduled maintenance failed", slog.String("error", err.Error()))
			}
		}
	}
}
