// Package version holds build metadata injected via -ldflags.
package version

// Set at build time with -ldflags "-X github.com/sydlexius/elsewhere/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
)
