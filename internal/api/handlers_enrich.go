package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sydlexius/elsewhere/internal/enrich"
	"github.com/sydlexius/elsewhere/internal/result"
)

// maxApplyBody bounds the result list a client may post back.
const maxApplyBody = 4 << 20

// handleEnrich returns the enrichment record for an artist. Lookup
// failures are reported as not found so clients show one message.
func (r *Router) handleEnrich(w http.ResponseWriter, req *http.Request) {
	if r.enrichment == nil {
		writeError(w, http.StatusServiceUnavailable, "enrichment disabled")
		return
	}
	artist := req.URL.Query().Get("artist")
	d, err := r.enrichment.Lookup(req.Context(), artist)
	if errors.Is(err, enrich.ErrInvalidArtist) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		r.logger.Warn("enrichment lookup failed", slog.String("artist", artist), slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, map[string]any{"found": false, "query": artist})
		return
	}
	if !d.Found() {
		writeJSON(w, http.StatusOK, map[string]any{"found": false, "query": d.Query})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Found bool `json:"found"`
		enrich.Data
	}{true, d})
}

type applyRequest struct {
	Results    []result.Entity `json:"results"`
	Enrichment enrich.Data     `json:"enrichment"`
}

// handleEnrichApply merges an enrichment record into a result list the
// client already holds and returns the replacement list.
func (r *Router) handleEnrichApply(w http.ResponseWriter, req *http.Request) {
	var body applyRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxApplyBody))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	results := enrich.Apply(body.Results, body.Enrichment, r.sources)
	if results == nil {
		results = []result.Entity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
