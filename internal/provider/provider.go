// Package provider defines the source adapter contract, the shared HTTP
// fetcher adapters use to reach third-party platforms and the fan-out
// orchestrator that queries every adapter for a search.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sydlexius/elsewhere/internal/result"
	"github.com/sydlexius/elsewhere/internal/source"
)

// MaxQueryLength bounds the number of characters accepted in a search query.
const MaxQueryLength = 200

// ErrInvalidQuery is returned when a query is empty or too long. It is the
// only error Search surfaces to callers.
var ErrInvalidQuery = errors.New("invalid query")

// Adapter fetches candidate entities for a query from one platform.
type Adapter interface {
	// Source returns the id of the platform this adapter queries.
	Source() source.ID

	// FetchCandidates returns the entities the platform lists for query.
	// An error means "nothing from this source"; callers never propagate it.
	FetchCandidates(ctx context.Context, query string) ([]result.Entity, error)
}

// ValidateQuery trims q and checks it is usable.
func ValidateQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidQuery)
	}
	if utf8.RuneCountInString(q) > MaxQueryLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidQuery, MaxQueryLength)
	}
	return q, nil
}

// ErrProviderUnavailable indicates a transient failure (rate-limited, timeout, server error).
type ErrProviderUnavailable struct {
	Source     source.ID
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the platform has nothing at the requested URL.
type ErrNotFound struct {
	Source source.ID
	URL    string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("source %s: %s not found", e.Source, e.URL)
}

// IsNotFound reports whether err is or wraps an *ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}
