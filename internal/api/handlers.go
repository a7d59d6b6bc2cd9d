package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sydlexius/elsewhere/internal/source"
	"github.com/sydlexius/elsewhere/internal/version"
)

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleSources(w http.ResponseWriter, req *http.Request) {
	type sourceView struct {
		source.Source
		Enabled bool `json:"enabled"`
	}
	enabled := make(map[source.ID]bool)
	for _, a := range r.orchestrator.Adapters() {
		enabled[a.Source()] = true
	}
	all := r.sources.All()
	out := make([]sourceView, 0, len(all))
	for _, s := range all {
		out = append(out, sourceView{Source: s, Enabled: enabled[s.ID]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": out})
}

func (r *Router) handleCacheStatus(w http.ResponseWriter, req *http.Request) {
	if r.maintenance == nil {
		writeError(w, http.StatusServiceUnavailable, "enrichment cache unavailable")
		return
	}
	st, err := r.maintenance.Status(req.Context())
	if err != nil {
		r.logger.Error("reading cache status", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "reading cache status")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// writeError sends a JSON error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
