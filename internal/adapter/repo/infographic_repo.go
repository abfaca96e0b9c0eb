package repo

import (
	"context"

	"server/internal/domain"
	"server/internal/infra"
)

// InfographicRepositoryPG implements InfographicRepository using PostgreSQL.
type InfographicRepositoryPG struct {
	db DB
}

// NewInfographicRepository creates a new infographic repo.
func NewInfographicRepository(db DB) *InfographicRepositoryPG {
	return &InfographicRepositoryPG{db: db}
}

// Create inserts a new infographic in its initial drafting status.
func (r *InfographicRepositoryPG) Create(ctx context.Context, i *domain.Infographic) error {
	if i.Status == "" {
		i.Status = domain.InitialStatus(domain.EntityTypeInfographic)
	}
	return r.db.QueryRow(ctx, `
INSERT INTO infographics (title, brief, feedback, status, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, updated_at;
`, i.Title, i.Brief, i.Feedback, i.Status, i.CreatedBy).Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
}

// GetByID loads one infographic.
func (r *InfographicRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Infographic, error) {
	var i domain.Infographic
	err := r.db.QueryRow(ctx, `
SELECT id, title, brief, feedback, status, error_message, image_key,
       created_by, created_at, updated_at
FROM infographics
WHERE id = $1;
`, id).Scan(&i.ID, &i.Title, &i.Brief, &i.Feedback, &i.Status, &i.ErrorMessage,
		&i.ImageKey, &i.CreatedBy, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound("infographic")
		}
		return nil, err
	}
	return &i, nil
}

// ListByOwner returns the owner's infographics, newest first.
func (r *InfographicRepositoryPG) ListByOwner(ctx context.Context, userID string) ([]domain.Infographic, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, title, brief, feedback, status, error_message, image_key,
       created_by, created_at, updated_at
FROM infographics
WHERE created_by = $1
ORDER BY created_at DESC;
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Infographic
	for rows.Next() {
		var i domain.Infographic
		if err := rows.Scan(&i.ID, &i.Title, &i.Brief, &i.Feedback, &i.Status, &i.ErrorMessage,
			&i.ImageKey, &i.CreatedBy, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SetImageResult records the rendered image key on the infographic row.
func (r *InfographicRepositoryPG) SetImageResult(ctx context.Context, id, imageKey string) error {
	tag, err := r.db.Exec(ctx, `
UPDATE infographics
SET image_key = $2, updated_at = NOW()
WHERE id = $1;
`, id, imageKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("infographic")
	}
	return nil
}

// SetFeedback stores revision notes used by the next regeneration.
func (r *InfographicRepositoryPG) SetFeedback(ctx context.Context, id, feedback string) error {
	tag, err := r.db.Exec(ctx, `
UPDATE infographics
SET feedback = $2, updated_at = NOW()
WHERE id = $1;
`, id, feedback)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("infographic")
	}
	return nil
}

// Delete removes the infographic.
func (r *InfographicRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM infographics WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("infographic")
	}
	return nil
}

var _ domain.InfographicRepository = (*InfographicRepositoryPG)(nil)
