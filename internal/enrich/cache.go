package enrich

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sydlexius/elsewhere/internal/result"
)

// Default cache lifetimes.
const (
	DefaultCacheTTL         = 7 * 24 * time.Hour
	DefaultNegativeCacheTTL = 24 * time.Hour
)

// Cache stores enrichment records in sqlite keyed by normalized query.
// Records for artists that were not found expire after the negative TTL.
type Cache struct {
	db          *sql.DB
	ttl         time.Duration
	negativeTTL time.Duration
	now         func() time.Time
}

// NewCache creates a Cache. Zero durations select the defaults.
func NewCache(db *sql.DB, ttl, negativeTTL time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if negativeTTL <= 0 {
		negativeTTL = DefaultNegativeCacheTTL
	}
	return &Cache{db: db, ttl: ttl, negativeTTL: negativeTTL, now: time.Now}
}

// Get returns the cached record for artist. ok is false on a miss or when
// the record has expired.
func (c *Cache) Get(ctx context.Context, artist string) (d Data, ok bool, err error) {
	var raw, fetchedAt string
	var found bool
	err = c.db.QueryRowContext(ctx,
		`SELECT data, found, fetched_at FROM enrichment_cache WHERE query_key = ?`,
		result.NormalizeKey(artist)).Scan(&raw, &found, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Data{}, false, nil
	}
	if err != nil {
		return Data{}, false, fmt.Errorf("reading enrichment cache: %w", err)
	}

	fetched, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil {
		return Data{}, false, nil
	}
	ttl := c.ttl
	if !found {
		ttl = c.negativeTTL
	}
	if c.now().Sub(fetched) > ttl {
		return Data{}, false, nil
	}

	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Data{}, false, fmt.Errorf("decoding cached enrichment: %w", err)
	}
	return d, true, nil
}

// Put stores d under its query, replacing any previous record.
func (c *Cache) Put(ctx context.Context, d Data) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding enrichment: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO enrichment_cache (query_key, query, found, data, fetched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(query_key) DO UPDATE SET
		   query = excluded.query,
		   found = excluded.found,
		   data = excluded.data,
		   fetched_at = excluded.fetched_at`,
		result.NormalizeKey(d.Query), d.Query, d.Found(), string(raw),
		c.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing enrichment cache: %w", err)
	}
	return nil
}

// Prune deletes records older than the positive TTL and returns how many
// were removed.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.ttl).UTC().Format(time.RFC3339)
	res, err := c.db.ExecContext(ctx, `DELETE FROM enrichment_cache WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning enrichment cache: %w", err)
	}
	return res.RowsAffected()
}
