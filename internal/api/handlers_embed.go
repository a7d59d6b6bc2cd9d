package api

import (
	"errors"
	"net/http"

	"github.com/sydlexius/elsewhere/internal/embed"
	"github.com/sydlexius/elsewhere/internal/resolve"
)

func (r *Router) handleEmbed(w http.ResponseWriter, req *http.Request) {
	e, err := r.embed.Resolve(req.Context(), req.URL.Query().Get("url"))
	switch {
	case errors.Is(err, embed.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, embed.ErrNotEmbeddable):
		writeJSON(w, http.StatusOK, map[string]any{"found": false, "embeddable": false})
	case err != nil || e == nil:
		writeJSON(w, http.StatusOK, map[string]any{"found": false})
	default:
		writeJSON(w, http.StatusOK, struct {
			Found bool `json:"found"`
			*embed.Embed
		}{true, e})
	}
}

func (r *Router) handleResolve(w http.ResponseWriter, req *http.Request) {
	artist, err := r.resolver.Resolve(req.Context(), req.URL.Query().Get("url"))
	switch {
	case errors.Is(err, resolve.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil || artist == "":
		writeJSON(w, http.StatusOK, map[string]any{"found": false})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"found": true, "artist": artist})
	}
}
