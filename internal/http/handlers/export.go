package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/pkg/zip"
)

// PodcastsExport bundles everything produced for a podcast into one zip:
// metadata, the active script and the rendered audio when present.
func (a *App) PodcastsExport(w http.ResponseWriter, r *http.Request) {
	p, err := a.ownedPodcast(r, chi.URLParam(r, "id"))
	if err != nil {
		a.domainError(w, err)
		return
	}

	meta, err := json.MarshalIndent(podcastView(p), "", "  ")
	if err != nil {
		a.domainError(w, err)
		return
	}
	assets := []zip.Asset{{Filename: "podcast.json", MIME: "application/json", Data: meta}}

	if active, err := a.Scripts.GetActive(r.Context(), p.ID); err == nil {
		if script, err := json.MarshalIndent(scriptView(active), "", "  "); err == nil {
			assets = append(assets, zip.Asset{Filename: "script.json", MIME: "application/json", Data: script})
		}
	} else if !domain.IsKind(err, domain.KindNotFound) {
		a.domainError(w, err)
		return
	}

	if p.AudioURL != "" {
		audio, err := a.Store.Read(r.Context(), p.AudioURL)
		if err != nil {
			a.Logger.Warn().Err(err).Str("podcast_id", p.ID).Msg("export: audio asset unreadable")
		} else {
			assets = append(assets, zip.Asset{Filename: path.Base(p.AudioURL), MIME: "audio/wav", Data: audio})
		}
	}

	archive := zip.ArchiveAssets(assets)
	if archive == nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}

	a.record(r, "podcast.exported", domain.EntityTypePodcast, p.ID)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "podcast-"+p.ID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
