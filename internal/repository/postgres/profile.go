package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
)

type profileRepository struct {
	BaseRepository
}

func NewProfileRepository(base BaseRepository) repository.ProfileRepository {
	return &profileRepository{base}
}

func (r *profileRepository) Upsert(ctx context.Context, profile *model.Profile) error {
	query := `
		INSERT INTO profiles (user_id, full_name, image_url, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		ON CONFLICT (user_id) DO UPDATE
		SET full_name = EXCLUDED.full_name, image_url = EXCLUDED.image_url, updated_at = EXCLUDED.updated_at
	`
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query, profile.UserID, profile.FullName, profile.ImageURL, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (r *profileRepository) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	query := `
		SELECT user_id, full_name, COALESCE(image_url, '') AS image_url, updated_at
		FROM profiles WHERE user_id = $1
	`
	var profile model.Profile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", notFound(err))
	}
	return &profile, nil
}
