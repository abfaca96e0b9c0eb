package repo

import (
	"context"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// ActivityRepositoryPG implements ActivityRepository using PostgreSQL.
type ActivityRepositoryPG struct {
	runner *infra.SQLRunner
}

// NewActivityRepository creates a new activity repo.
func NewActivityRepository(runner *infra.SQLRunner) *ActivityRepositoryPG {
	return &ActivityRepositoryPG{runner: runner}
}

// Record appends one entry to the activity feed.
func (r *ActivityRepositoryPG) Record(ctx context.Context, entry *domain.ActivityEntry) error {
	var entityID any
	if entry.EntityID != "" {
		entityID = entry.EntityID
	}
	return r.runner.QueryRow(ctx, sqlinline.QInsertActivity,
		entry.UserID, entry.Action, entry.EntityType, entityID, entry.Country).
		Scan(&entry.ID, &entry.CreatedAt)
}

// ListRecent returns the user's latest entries, newest first.
func (r *ActivityRepositoryPG) ListRecent(ctx context.Context, userID string, limit int) ([]domain.ActivityEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.runner.Query(ctx, sqlinline.QListRecentActivity, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ActivityEntry
	for rows.Next() {
		var (
			entry    domain.ActivityEntry
			entityID *string
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.EntityType,
			&entityID, &entry.Country, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if entityID != nil {
			entry.EntityID = *entityID
		}
		items = append(items, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var _ domain.ActivityRepository = (*ActivityRepositoryPG)(nil)
