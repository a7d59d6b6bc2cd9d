package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sydlexius/elsewhere/internal/source"
	"github.com/sydlexius/elsewhere/internal/version"
)

// DefaultFetchTimeout bounds a single HTTP request when the context does
// not carry a fetch timeout.
const DefaultFetchTimeout = 10 * time.Second

type fetchTimeoutKey struct{}

// WithFetchTimeout returns a context under which every Fetcher.Get request
// is bounded by d. The clock starts once the rate limiter admits the
// request, so time spent queueing behind other searches is not charged to it.
func WithFetchTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, fetchTimeoutKey{}, d)
}

func fetchTimeout(ctx context.Context) time.Duration {
	if d, ok := ctx.Value(fetchTimeoutKey{}).(time.Duration); ok && d > 0 {
		return d
	}
	return DefaultFetchTimeout
}

// maxBodySize caps how much of a third-party page is read into memory.
const maxBodySize = 2 << 20

// Fetcher performs rate-limited GET requests against third-party platforms
// and maps HTTP failures into typed errors.
type Fetcher struct {
	client    *http.Client
	limiter   *RateLimiterMap
	logger    *slog.Logger
	userAgent string
}

// NewFetcher creates a Fetcher. An empty userAgent selects the default.
func NewFetcher(limiter *RateLimiterMap, userAgent string, logger *slog.Logger) *Fetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent()
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter:   limiter,
		logger:    logger.With(slog.String("component", "fetcher")),
		userAgent: userAgent,
	}
}

// DefaultUserAgent identifies the service to the platforms it queries.
func DefaultUserAgent() string {
	return fmt.Sprintf("Elsewhere/%s (https://github.com/sydlexius/elsewhere)", version.Version)
}

// Get fetches rawURL on behalf of source id and returns the body as text.
func (f *Fetcher) Get(ctx context.Context, id source.ID, rawURL string) (string, error) {
	if err := f.limiter.Wait(ctx, id); err != nil {
		return "", &ErrProviderUnavailable{
			Source: id,
			Cause:  fmt.Errorf("rate limiter: %w", err),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout(ctx))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	f.logger.Debug("requesting", slog.String("source", string(id)), slog.String("url", rawURL))

	resp, err := f.client.Do(req) //nolint:gosec // URL built from registry templates
	if err != nil {
		return "", &ErrProviderUnavailable{
			Source: id,
			Cause:  err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &ErrNotFound{
			Source: id,
			URL:    rawURL,
		}
	}

	if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &ErrProviderUnavailable{
			Source:     id,
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &ErrProviderUnavailable{
			Source: id,
			Cause:  fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", &ErrProviderUnavailable{
			Source: id,
			Cause:  fmt.Errorf("reading body: %w", err),
		}
	}
	return string(body), nil
}

// retryAfter parses a Retry-After header in seconds, defaulting to 2s.
func retryAfter(h string) time.Duration {
	if secs, err := strconv.Atoi(h); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 2 * time.Second
}
