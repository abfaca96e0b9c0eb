// Package handlers implements the HTTP API surface.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"server/internal/activity"
	"server/internal/domain"
	"server/internal/events"
	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/storage"
)

// Enqueuer is the queue surface the handlers need.
type Enqueuer interface {
	Enqueue(ctx context.Context, entityID string, entityType domain.EntityType, jobType domain.JobType, payload []byte) (*domain.Job, bool, error)
	GetStatus(ctx context.Context, jobID string) (*domain.Job, error)
}

// App carries the wired dependencies for every handler.
type App struct {
	Podcasts     domain.PodcastRepository
	Scripts      domain.ScriptRepository
	Voiceovers   domain.VoiceoverRepository
	Infographics domain.InfographicRepository
	Queue        Enqueuer
	Publisher    events.Publisher
	Activity     *activity.Recorder
	Store        *storage.FileStore
	Logger       infra.Logger
	Metrics      *infra.Metrics
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": message},
	})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) currentLocale(r *http.Request) string {
	return middleware.LocaleFromContext(r.Context())
}

// record appends an activity feed entry for the request's user.
func (a *App) record(r *http.Request, action string, entityType domain.EntityType, entityID string) {
	if a.Activity == nil {
		return
	}
	a.Activity.Record(r.Context(), a.currentUserID(r), action, entityType, entityID, middleware.ClientIP(r))
}
