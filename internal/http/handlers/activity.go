package handlers

import (
	"net/http"
	"strconv"

	"server/internal/domain"
)

func activityView(e *domain.ActivityEntry) map[string]any {
	return map[string]any{
		"id":          e.ID,
		"action":      e.Action,
		"entity_type": e.EntityType,
		"entity_id":   e.EntityID,
		"country":     e.Country,
		"created_at":  e.CreatedAt,
	}
}

// ActivityList returns the caller's recent activity feed entries.
func (a *App) ActivityList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := a.Activity.ListRecent(r.Context(), a.currentUserID(r), limit)
	if err != nil {
		a.domainError(w, err)
		return
	}
	views := make([]map[string]any, 0, len(items))
	for i := range items {
		views = append(views, activityView(&items[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": views})
}
