package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

type voiceoverCreateRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

func voiceoverView(v *domain.Voiceover) map[string]any {
	return map[string]any{
		"id":               v.ID,
		"title":            v.Title,
		"text":             v.Text,
		"status":           v.Status,
		"error_message":    v.ErrorMessage,
		"audio_url":        v.AudioURL,
		"duration_seconds": v.DurationSeconds,
		"created_at":       v.CreatedAt,
		"updated_at":       v.UpdatedAt,
	}
}

func (a *App) ownedVoiceover(r *http.Request, id string) (*domain.Voiceover, error) {
	v, err := a.Voiceovers.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if v.CreatedBy != a.currentUserID(r) {
		return nil, domain.ErrNotFound("voiceover")
	}
	return v, nil
}

func (a *App) VoiceoversCreate(w http.ResponseWriter, r *http.Request) {
	var req voiceoverCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Title == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "title is required")
		return
	}
	if req.Text == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "text is required")
		return
	}
	v := &domain.Voiceover{
		Title:     req.Title,
		Text:      req.Text,
		CreatedBy: a.currentUserID(r),
	}
	if err := a.Voiceovers.Create(r.Context(), v); err != nil {
		a.domainError(w, err)
		return
	}
	a.record(r, "voiceover.created", domain.EntityTypeVoiceover, v.ID)
	a.json(w, http.StatusCreated, voiceoverView(v))
}

func (a *App) VoiceoversList(w http.ResponseWriter, r *http.Request) {
	items, err := a.Voiceovers.ListByOwner(r.Context(), a.currentUserID(r))
	if err != nil {
		a.domainError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(items))
	for i := range items {
		views = append(views, voiceoverView(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": views})
}

func (a *App) VoiceoversGet(w http.ResponseWriter, r *http.Request) {
	v, err := a.ownedVoiceover(r, chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, voiceoverView(v))
}

func (a *App) VoiceoversDelete(w http.ResponseWriter, r *http.Request) {
	v, err := a.ownedVoiceover(r, chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	if err := a.Voiceovers.Delete(r.Context(), v.ID); err != nil {
		a.domainError(w, err)
		return
	}
	a.record(r, "voiceover.deleted", domain.EntityTypeVoiceover, v.ID)
	if a.Publisher != nil {
		a.Publisher.Publish(r.Context(), domain.EntityChangeEvent(v.CreatedBy, domain.EntityTypeVoiceover, v.ID, domain.ChangeDelete))
	}
	a.json(w, http.StatusOK, map[string]any{"deleted": true})
}

func (a *App) VoiceoversGenerate(w http.ResponseWriter, r *http.Request) {
	a.generate(w, r, domain.EntityTypeVoiceover, domain.JobTypeGenerateAudio)
}
