package maintenance

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sydlexius/elsewhere/internal/database"
)

type stubPruner struct {
	n     int64
	err   error
	calls int
}

func (p *stubPruner) Prune(context.Context) (int64, error) {
	p.calls++
	return p.n, p.err
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.OpenAndMigrate(dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, dbPath
}

func TestStatus(t *testing.T) {
	db, dbPath := setupTestDB(t)
	if _, err := db.Exec(`INSERT INTO enrichment_cache (query_key, query, found, data, fetched_at)
		VALUES ('staticage', 'Static Age', 1, '{}', '2026-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}
	svc := NewService(db, dbPath, nil, silentLogger())

	st, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.DBFileSize <= 0 {
		t.Error("expected positive DB file size")
	}
	if st.PageSize <= 0 || st.PageCount <= 0 {
		t.Errorf("expected page stats, got %+v", st)
	}
	if st.CacheEntries != 1 {
		t.Errorf("cache entries = %d, want 1", st.CacheEntries)
	}
	if st.LastRunAt != "" {
		t.Error("expected empty last run time initially")
	}
}

func TestRun(t *testing.T) {
	db, dbPath := setupTestDB(t)
	p := &stubPruner{n: 4}
	svc := NewService(db, dbPath, p, silentLogger())

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("prune calls = %d, want 1", p.calls)
	}

	st, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.LastRunAt == "" || st.LastPruned != 4 {
		t.Errorf("expected last run recorded, got %+v", st)
	}
}

func TestRunPruneError(t *testing.T) {
	db, dbPath := setupTestDB(t)
	boom := errors.New("disk full")
	svc := NewService(db, dbPath, &stubPruner{err: boom}, silentLogger())

	if err := svc.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected prune error, got %v", err)
	}
	st, _ := svc.Status(context.Background())
	if st.LastRunAt != "" {
		t.Error("failed run should not be recorded")
	}
}

func TestOptimizeAndVacuum(t *testing.T) {
	db, dbPath := setupTestDB(t)
	svc := NewService(db, dbPath, nil, silentLogger())

	if err := svc.Optimize(context.Background()); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if err := svc.Vacuum(context.Background()); err != nil {
		t.Fatalf("Vacuum: %v", err)
	}
}

func TestStartSchedulerStopsOnCancel(t *testing.T) {
	db, dbPath := setupTestDB(t)
	svc := NewService(db, dbPath, nil, silentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.StartScheduler(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
