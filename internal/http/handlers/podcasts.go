package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

type podcastCreateRequest struct {
	Title          string `json:"title"`
	SourceDocument string `json:"source_document"`
}

type generateRequest struct {
	Voice  string `json:"voice"`
	Locale string `json:"locale"`
}

func podcastView(p *domain.Podcast) map[string]any {
	return map[string]any{
		"id":               p.ID,
		"title":            p.Title,
		"source_document":  p.SourceDocument,
		"status":           p.Status,
		"error_message":    p.ErrorMessage,
		"audio_url":        p.AudioURL,
		"duration_seconds": p.DurationSeconds,
		"created_at":       p.CreatedAt,
		"updated_at":       p.UpdatedAt,
	}
}

func scriptView(v *domain.ScriptVersion) map[string]any {
	return map[string]any{
		"id":         v.ID,
		"podcast_id": v.PodcastID,
		"version":    v.Version,
		"segments":   v.Content.Segments,
		"summary":    v.Content.Summary,
		"is_active":  v.IsActive,
		"created_at": v.CreatedAt,
	}
}

// ownedPodcast loads a podcast and hides it from everyone but its owner.
func (a *App) ownedPodcast(r *http.Request, id string) (*domain.Podcast, error) {
	p, err := a.Podcasts.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if p.CreatedBy != a.currentUserID(r) {
		return nil, domain.ErrNotFound("podcast")
	}
	return p, nil
}

func (a *App) PodcastsCreate(w http.ResponseWriter, r *http.Request) {
	var req podcastCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Title == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "title is required")
		return
	}
	if req.SourceDocument == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "source_document is required")
		return
	}
	p := &domain.Podcast{
		Title:          req.Title,
		SourceDocument: req.SourceDocument,
		CreatedBy:      a.currentUserID(r),
	}
	if err := a.Podcasts.Create(r.Context(), p); err != nil {
		a.domainError(w, err)
		return
	}
	a.record(r, "podcast.created", domain.EntityTypePodcast, p.ID)
	a.json(w, http.StatusCreated, podcastView(p))
}

func (a *App) PodcastsList(w http.ResponseWriter, r *http.Request) {
	items, err := a.Podcasts.ListByOwner(r.Context(), a.currentUserID(r))
	if err != nil {
		a.domainError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(items))
	for i := range items {
		views = append(views, podcastView(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": views})
}

func (a *App) PodcastsGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.ownedPodcast(r, chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, podcastView(p))
}

func (a *App) PodcastsDelete(w http.ResponseWriter, r *http.Request) {
	p, err := a.ownedPodcast(r, chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	if err := a.Podcasts.Delete(r.Context(), p.ID); err != nil {
		a.domainError(w, err)
		return
	}
	a.record(r, "podcast.deleted", domain.EntityTypePodcast, p.ID)
	if a.Publisher != nil {
		a.Publisher.Publish(r.Context(), domain.EntityChangeEvent(p.CreatedBy, domain.EntityTypePodcast, p.ID, domain.ChangeDelete))
	}
	a.json(w, http.StatusOK, map[string]any{"deleted": true})
}

func (a *App) PodcastsGenerateScript(w http.ResponseWriter, r *http.Request) {
	a.generate(w, r, domain.EntityTypePodcast, domain.JobTypeGenerateScript)
}

func (a *App) PodcastsGenerateAudio(w http.ResponseWriter, r *http.Request) {
	a.generate(w, r, domain.EntityTypePodcast, domain.JobTypeGenerateAudio)
}

func (a *App) PodcastsGetScript(w http.ResponseWriter, r *http.Request) {
	p, err := a.ownedPodcast(r, chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	v, err := a.Scripts.GetActive(r.Context(), p.ID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, scriptView(v))
}

func (a *App) PodcastsListScriptVersions(w http.ResponseWriter, r *http.Request) {
	p, err := a.ownedPodcast(r, chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	versions, err := a.Scripts.ListVersions(r.Context(), p.ID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(versions))
	for i := range versions {
		views = append(views, scriptView(&versions[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": views})
}

type scriptSaveRequest struct {
	Segments []domain.ScriptSegment `json:"segments"`
	Summary  string                 `json:"summary"`
}

// PodcastsSaveScript stores a manually edited script as a new active version.
func (a *App) PodcastsSaveScript(w http.ResponseWriter, r *http.Request) {
	p, err := a.ownedPodcast(r, chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}
	if p.Status == domain.StatusGeneratingScript || p.Status == domain.StatusGeneratingAudio {
		a.domainError(w, domain.NewError(domain.KindInvalidState, "cannot edit script while %s", p.Status))
		return
	}
	var req scriptSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.Segments) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "segments are required")
		return
	}
	for _, seg := range req.Segments {
		if seg.Text == "" {
			a.error(w, http.StatusBadRequest, "bad_request", "segment text is required")
			return
		}
	}
	v, err := a.Scripts.CreateVersion(r.Context(), p.ID, domain.ScriptContent{
		Segments: req.Segments,
		Summary:  req.Summary,
	})
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.record(r, "podcast.script_edited", domain.EntityTypePodcast, p.ID)
	if a.Publisher != nil {
		a.Publisher.Publish(r.Context(), domain.EntityChangeEvent(p.CreatedBy, domain.EntityTypePodcast, p.ID, domain.ChangeUpdate))
	}
	a.json(w, http.StatusCreated, scriptView(v))
}
