package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sydlexius/elsewhere/internal/event"
	"github.com/sydlexius/elsewhere/internal/provider"
)

// handleSearch runs a search and publishes search.completed so the
// enrichment cache can be warmed while the client renders the results.
func (r *Router) handleSearch(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query().Get("q")
	resp, err := r.orchestrator.Search(req.Context(), q)
	if errors.Is(err, provider.ErrInvalidQuery) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		r.logger.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	if r.eventBus != nil {
		r.eventBus.Publish(event.Event{
			Type:  event.SearchCompleted,
			Query: resp.Query,
			Data: map[string]any{
				"results":            len(resp.Results),
				"enrichment_pending": resp.EnrichmentPending,
			},
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
