package repo

import (
	"context"

	"server/internal/domain"
	"server/internal/infra"
)

// VoiceoverRepositoryPG implements VoiceoverRepository using PostgreSQL.
type VoiceoverRepositoryPG struct {
	db DB
}

// NewVoiceoverRepository creates a new voiceover repo.
func NewVoiceoverRepository(db DB) *VoiceoverRepositoryPG {
	return &VoiceoverRepositoryPG{db: db}
}

// Create inserts a new voiceover in its initial drafting status.
func (r *VoiceoverRepositoryPG) Create(ctx context.Context, v *domain.Voiceover) error {
	if v.Status == "" {
		v.Status = domain.InitialStatus(domain.EntityTypeVoiceover)
	}
	return r.db.QueryRow(ctx, `
INSERT INTO voiceovers (title, text, status, created_by)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at;
`, v.Title, v.Text, v.Status, v.CreatedBy).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

// GetByID loads one voiceover.
func (r *VoiceoverRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Voiceover, error) {
	var v domain.Voiceover
	err := r.db.QueryRow(ctx, `
SELECT id, title, text, status, error_message, audio_url,
       duration_seconds, created_by, created_at, updated_at
FROM voiceovers
WHERE id = $1;
`, id).Scan(&v.ID, &v.Title, &v.Text, &v.Status, &v.ErrorMessage,
		&v.AudioURL, &v.DurationSeconds, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound("voiceover")
		}
		return nil, err
	}
	return &v, nil
}

// ListByOwner returns the owner's voiceovers, newest first.
func (r *VoiceoverRepositoryPG) ListByOwner(ctx context.Context, userID string) ([]domain.Voiceover, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, title, text, status, error_message, audio_url,
       duration_seconds, created_by, created_at, updated_at
FROM voiceovers
WHERE created_by = $1
ORDER BY created_at DESC;
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Voiceover
	for rows.Next() {
		var v domain.Voiceover
		if err := rows.Scan(&v.ID, &v.Title, &v.Text, &v.Status, &v.ErrorMessage,
			&v.AudioURL, &v.DurationSeconds, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SetAudioResult records the produced audio on the voiceover row.
func (r *VoiceoverRepositoryPG) SetAudioResult(ctx context.Context, id, audioURL string, durationSeconds float64) error {
	tag, err := r.db.Exec(ctx, `
UPDATE voiceovers
SET audio_url = $2, duration_seconds = $3, updated_at = NOW()
WHERE id = $1;
`, id, audioURL, durationSeconds)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("voiceover")
	}
	return nil
}

// Delete removes the voiceover.
func (r *VoiceoverRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM voiceovers WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("voiceover")
	}
	return nil
}

var _ domain.VoiceoverRepository = (*VoiceoverRepositoryPG)(nil)
