package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/usecase"
)

func jobView(j *domain.Job) map[string]any {
	return map[string]any{
		"id":            j.ID,
		"entity_id":     j.EntityID,
		"entity_type":   j.EntityType,
		"job_type":      j.JobType,
		"status":        j.Status,
		"error_message": j.ErrorMessage,
		"created_at":    j.CreatedAt,
		"completed_at":  j.CompletedAt,
	}
}

// ownerOf resolves the owning user of an entity, returning not-found both
// when the row is missing and when the caller is not the owner.
func (a *App) ownerOf(r *http.Request, entityType domain.EntityType, id string) (string, error) {
	var createdBy string
	switch entityType {
	case domain.EntityTypePodcast:
		p, err := a.Podcasts.GetByID(r.Context(), id)
		if err != nil {
			return "", err
		}
		createdBy = p.CreatedBy
	case domain.EntityTypeVoiceover:
		v, err := a.Voiceovers.GetByID(r.Context(), id)
		if err != nil {
			return "", err
		}
		createdBy = v.CreatedBy
	case domain.EntityTypeInfographic:
		i, err := a.Infographics.GetByID(r.Context(), id)
		if err != nil {
			return "", err
		}
		createdBy = i.CreatedBy
	default:
		return "", domain.NewError(domain.KindValidation, "unknown entity type %q", entityType)
	}
	if createdBy != a.currentUserID(r) {
		return "", domain.ErrNotFound(string(entityType))
	}
	return createdBy, nil
}

// generate is the shared enqueue endpoint body: ownership check, optional
// voice and locale overrides, then an idempotent enqueue. Repeated requests
// while a job is in flight return the existing job with created false.
func (a *App) generate(w http.ResponseWriter, r *http.Request, entityType domain.EntityType, jobType domain.JobType) {
	id := chi.URLParam(r, "id")
	if _, err := a.ownerOf(r, entityType, id); err != nil {
		a.domainError(w, err)
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	a.enqueueGeneration(w, r, entityType, id, jobType, req)
}

func (a *App) enqueueGeneration(w http.ResponseWriter, r *http.Request, entityType domain.EntityType, id string, jobType domain.JobType, req generateRequest) {
	locale := req.Locale
	if locale == "" {
		locale = a.currentLocale(r)
	}
	payload, err := json.Marshal(usecase.JobPayload{Voice: req.Voice, Locale: locale})
	if err != nil {
		a.domainError(w, err)
		return
	}
	job, created, err := a.Queue.Enqueue(r.Context(), id, entityType, jobType, payload)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if created {
		a.record(r, fmt.Sprintf("%s.%s", entityType, jobType), entityType, id)
	}
	a.json(w, http.StatusAccepted, map[string]any{
		"job":     jobView(job),
		"created": created,
	})
}
