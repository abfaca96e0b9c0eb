package repo

import (
	"context"

	"server/internal/domain"
	"server/internal/infra"
)

// PodcastRepositoryPG implements PodcastRepository using PostgreSQL.
type PodcastRepositoryPG struct {
	db DB
}

// NewPodcastRepository creates a new podcast repo.
func NewPodcastRepository(db DB) *PodcastRepositoryPG {
	return &PodcastRepositoryPG{db: db}
}

// Create inserts a new podcast in its initial draft status.
func (r *PodcastRepositoryPG) Create(ctx context.Context, p *domain.Podcast) error {
	if p.Status == "" {
		p.Status = domain.InitialStatus(domain.EntityTypePodcast)
	}
	return r.db.QueryRow(ctx, `
INSERT INTO podcasts (title, source_document, status, created_by)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at;
`, p.Title, p.SourceDocument, p.Status, p.CreatedBy).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID loads one podcast.
func (r *PodcastRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Podcast, error) {
	var p domain.Podcast
	err := r.db.QueryRow(ctx, `
SELECT id, title, source_document, status, error_message, audio_url,
       duration_seconds, created_by, created_at, updated_at
FROM podcasts
WHERE id = $1;
`, id).Scan(&p.ID, &p.Title, &p.SourceDocument, &p.Status, &p.ErrorMessage,
		&p.AudioURL, &p.DurationSeconds, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound("podcast")
		}
		return nil, err
	}
	return &p, nil
}

// ListByOwner returns the owner's podcasts, newest first.
func (r *PodcastRepositoryPG) ListByOwner(ctx context.Context, userID string) ([]domain.Podcast, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, title, source_document, status, error_message, audio_url,
       duration_seconds, created_by, created_at, updated_at
FROM podcasts
WHERE created_by = $1
ORDER BY created_at DESC;
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Podcast
	for rows.Next() {
		var p domain.Podcast
		if err := rows.Scan(&p.ID, &p.Title, &p.SourceDocument, &p.Status, &p.ErrorMessage,
			&p.AudioURL, &p.DurationSeconds, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SetAudioResult records the produced audio on the podcast row.
func (r *PodcastRepositoryPG) SetAudioResult(ctx context.Context, id, audioURL string, durationSeconds float64) error {
	tag, err := r.db.Exec(ctx, `
UPDATE podcasts
SET audio_url = $2, duration_seconds = $3, updated_at = NOW()
WHERE id = $1;
`, id, audioURL, durationSeconds)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("podcast")
	}
	return nil
}

// Delete removes the podcast; script versions cascade.
func (r *PodcastRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM podcasts WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("podcast")
	}
	return nil
}

var _ domain.PodcastRepository = (*PodcastRepositoryPG)(nil)
