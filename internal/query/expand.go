// Package query splits collaboration queries ("A feat. B") into the
// individual artist names worth searching for.
package query

import (
	"regexp"
	"strings"

	"github.com/sydlexius/elsewhere/internal/result"
)

// separators matches collaboration separators. The standalone "x" and the
// ampersand must be surrounded by whitespace so names like "The xx" and
// "Mumford&Sons" stay intact.
var separators = regexp.MustCompile(`(?i)\s+and\s+|\s+&\s+|\s*\bfeat(?:uring|\.)?(?:\s+|$)|\s*,\s*|\s*\+\s*|\s+x\s+`)

// Split returns the trimmed, non-empty segments of q.
func Split(q string) []string {
	var out []string
	for _, part := range separators.Split(q, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Expand returns the queries to run for q. Without a recognized separator
// it returns [q]. Otherwise it returns q followed by each segment,
// deduplicated on the normalized form while keeping the original casing.
func Expand(q string) []string {
	segments := Split(q)
	if len(segments) < 2 {
		return []string{q}
	}

	seen := make(map[string]struct{}, len(segments)+1)
	out := make([]string, 0, len(segments)+1)
	for _, s := range append([]string{strings.TrimSpace(q)}, segments...) {
		key := result.NormalizeKey(s)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
