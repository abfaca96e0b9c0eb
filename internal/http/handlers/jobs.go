package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// JobsGet returns one job's status. Ownership is checked through the job's
// entity, so jobs for another user's entities read as not found.
func (a *App) JobsGet(w http.ResponseWriter, r *http.Request) {
	job, err := a.Queue.GetStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	if _, err := a.ownerOf(r, job.EntityType, job.EntityID); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, jobView(job))
}
