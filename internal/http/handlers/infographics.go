package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

type infographicCreateRequest struct {
	Title string `json:"title"`
	Brief string `json:"brief"`
}

type infographicGenerateRequest struct {
	Feedback string `json:"feedback"`
	Locale   string `json:"locale"`
}

func infographicView(i *domain.Infographic) map[string]any {
	return map[string]any{
		"id":            i.ID,
		"title":         i.Title,
		"brief":         i.Brief,
		"feedback":      i.Feedback,
		"status":        i.Status,
		"error_message": i.ErrorMessage,
		"image_key":     i.ImageKey,
		"created_at":    i.CreatedAt,
		"updated_at":    i.UpdatedAt,
	}
}

func (a *App) ownedInfographic(r *http.Request, id string) (*domain.Infographic, error) {
	i, err := a.Infographics.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if i.CreatedBy != a.currentUserID(r) {
		return nil, domain.ErrNotFound("infographic")
	}
	return i, nil
}

func (a *App) InfographicsCreate(w http.ResponseWriter, r *http.Request) {
	var req infographicCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Title == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "title is required")
		return
	}
	if req.Brief == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "brief is required")
		return
	}
	i := &domain.Infographic{
		Title:     req.Title,
		Brief:     req.Brief,
		CreatedBy: a.currentUserID(r),
	}
	if err := a.Infographics.Create(r.Context(), i); err != nil {
		a.domainError(w, err)
		return
	}
	a.record(r, "infographic.created", domain.EntityTypeInfographic, i.ID)
	a.json(w, http.StatusCreated, infographicView(i))
}

func (a *App) InfographicsList(w http.ResponseWriter, r *http.Request) {
	items, err := a.Infographics.ListByOwner(r.Context(), a.currentUserID(r))
	if err != nil {
		a.domainError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(items))
	for i := range items {
		views = append(views, infographicView(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": views})
}

func (a *App) InfographicsGet(w http.ResponseWriter, r *http.Request) {
	i, err := a.ownedInfographic(r, chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, infographicView(i))
}

func (a *App) InfographicsDelete(w http.ResponseWriter, r *http.Request) {
	i, err := a.ownedInfographic(r, chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	if err := a.Infographics.Delete(r.Context(), i.ID); err != nil {
		a.domainError(w, err)
		return
	}
	a.record(r, "infographic.deleted", domain.EntityTypeInfographic, i.ID)
	if a.Publisher != nil {
		a.Publisher.Publish(r.Context(), domain.EntityChangeEvent(i.CreatedBy, domain.EntityTypeInfographic, i.ID, domain.ChangeDelete))
	}
	a.json(w, http.StatusOK, map[string]any{"deleted": true})
}

// InfographicsGenerate enqueues an image render. Feedback in the body is
// stored on the entity first so the worker sees it when the job runs.
func (a *App) InfographicsGenerate(w http.ResponseWriter, r *http.Request) {
	i, err := a.ownedInfographic(r, chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	var req infographicGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Feedback != "" {
		if err := a.Infographics.SetFeedback(r.Context(), i.ID, req.Feedback); err != nil {
			a.domainError(w, err)
			return
		}
	}
	a.enqueueGeneration(w, r, domain.EntityTypeInfographic, i.ID, domain.JobTypeGenerateImage, generateRequest{Locale: req.Locale})
}
