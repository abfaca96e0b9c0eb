package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"server/internal/domain"
	"server/internal/infra"
)

// ScriptRepositoryPG implements ScriptRepository using PostgreSQL.
type ScriptRepositoryPG struct {
	db DB
}

// NewScriptRepository creates a new script repo.
func NewScriptRepository(db DB) *ScriptRepositoryPG {
	return &ScriptRepositoryPG{db: db}
}

// CreateVersion appends the next script version and makes it the active one.
// The previous active row is deactivated in the same transaction, so readers
// always see exactly one active version.
func (r *ScriptRepositoryPG) CreateVersion(ctx context.Context, podcastID string, content domain.ScriptContent) (*domain.ScriptVersion, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encode script content: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
UPDATE podcast_scripts SET is_active = FALSE
WHERE podcast_id = $1 AND is_active;
`, podcastID); err != nil {
		return nil, err
	}

	version := &domain.ScriptVersion{PodcastID: podcastID, Content: content, IsActive: true}
	err = tx.QueryRow(ctx, `
INSERT INTO podcast_scripts (podcast_id, version, content, is_active)
VALUES ($1, (SELECT COALESCE(MAX(version), 0) + 1 FROM podcast_scripts WHERE podcast_id = $1), $2, TRUE)
RETURNING id, version, created_at;
`, podcastID, raw).Scan(&version.ID, &version.Version, &version.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return version, nil
}

// GetActive loads the podcast's active script version.
func (r *ScriptRepositoryPG) GetActive(ctx context.Context, podcastID string) (*domain.ScriptVersion, error) {
	var (
		v   domain.ScriptVersion
		raw []byte
	)
	err := r.db.QueryRow(ctx, `
SELECT id, podcast_id, version, content, is_active, created_at
FROM podcast_scripts
WHERE podcast_id = $1 AND is_active;
`, podcastID).Scan(&v.ID, &v.PodcastID, &v.Version, &raw, &v.IsActive, &v.CreatedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound("script")
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &v.Content); err != nil {
		return nil, fmt.Errorf("decode script content: %w", err)
	}
	return &v, nil
}

// ListVersions returns every version of the podcast's script, newest first.
func (r *ScriptRepositoryPG) ListVersions(ctx context.Context, podcastID string) ([]domain.ScriptVersion, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, podcast_id, version, content, is_active, created_at
FROM podcast_scripts
WHERE podcast_id = $1
ORDER BY version DESC;
`, podcastID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ScriptVersion
	for rows.Next() {
		var (
			v   domain.ScriptVersion
			raw []byte
		)
		if err := rows.Scan(&v.ID, &v.PodcastID, &v.Version, &raw, &v.IsActive, &v.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &v.Content); err != nil {
			return nil, fmt.Errorf("decode script content: %w", err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var _ domain.ScriptRepository = (*ScriptRepositoryPG)(nil)
