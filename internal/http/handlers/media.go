package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MediaServe streams a stored asset by its storage key. Keys are opaque and
// unguessable enough for authenticated use; the store rejects path escapes.
func (a *App) MediaServe(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	path, err := a.Store.Resolve(key)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid media key")
		return
	}
	http.ServeFile(w, r, path)
}
