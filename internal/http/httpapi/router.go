// Package httpapi assembles the middleware stack and route table.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

// NewRouter wires the HTTP API. The health and metrics endpoints stay outside
// the authenticated group so probes and scrapers need no token.
func NewRouter(app *handlers.App, cfg *infra.Config, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Logger(app.Logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.I18N("en", lookup),
	)

	r.Get("/v1/healthz", app.Health)
	if app.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", app.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(
			middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
			middleware.AuthJWT(cfg.JWTSecret),
		)

		r.Route("/v1/podcasts", func(r chi.Router) {
			r.Post("/", app.PodcastsCreate)
			r.Get("/", app.PodcastsList)
			r.Get("/{id}", app.PodcastsGet)
			r.Delete("/{id}", app.PodcastsDelete)
			r.Post("/{id}/script", app.PodcastsGenerateScript)
			r.Put("/{id}/script", app.PodcastsSaveScript)
			r.Get("/{id}/script", app.PodcastsGetScript)
			r.Get("/{id}/script/versions", app.PodcastsListScriptVersions)
			r.Post("/{id}/audio", app.PodcastsGenerateAudio)
			r.Get("/{id}/export", app.PodcastsExport)
		})

		r.Route("/v1/voiceovers", func(r chi.Router) {
			r.Post("/", app.VoiceoversCreate)
			r.Get("/", app.VoiceoversList)
			r.Get("/{id}", app.VoiceoversGet)
			r.Delete("/{id}", app.VoiceoversDelete)
			r.Post("/{id}/generate", app.VoiceoversGenerate)
		})

		r.Route("/v1/infographics", func(r chi.Router) {
			r.Post("/", app.InfographicsCreate)
			r.Get("/", app.InfographicsList)
			r.Get("/{id}", app.InfographicsGet)
			r.Delete("/{id}", app.InfographicsDelete)
			r.Post("/{id}/generate", app.InfographicsGenerate)
		})

		r.Get("/v1/jobs/{id}", app.JobsGet)
		r.Get("/v1/activity", app.ActivityList)
		r.Get("/v1/events", app.EventsStream)
		r.Get("/v1/media/*", app.MediaServe)
	})

	return r
}
