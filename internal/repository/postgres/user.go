package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
)

const userColumns = `
	id, email, password_hash,
	COALESCE(full_name, '') AS full_name,
	COALESCE(profile_picture_url, '') AS profile_picture_url,
	email_confirmed_at,
	COALESCE(pending_email, '') AS pending_email,
	created_at, updated_at`

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

// Create inserts the account and its initial profile row together.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO users (id, email, password_hash, full_name, profile_picture_url, email_confirmed_at, created_at, updated_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
		`
		_, err := tx.ExecContext(ctx, query,
			user.ID,
			user.Email,
			user.PasswordHash,
			user.FullName,
			user.ProfilePictureURL,
			user.EmailConfirmedAt,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", duplicate(err))
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO profiles (user_id, full_name, updated_at) VALUES ($1, $2, $3) ON CONFLICT (user_id) DO NOTHING`,
			user.ID, user.DisplayName(), user.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	})
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", notFound(err))
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", notFound(err))
	}
	return &user, nil
}

func (r *userRepository) GetByPendingEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE pending_email = $1`
	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, fmt.Errorf("failed to get user by pending email: %w", notFound(err))
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET email = $1, password_hash = $2, full_name = NULLIF($3, ''), profile_picture_url = NULLIF($4, ''),
			email_confirmed_at = $5, pending_email = NULLIF($6, ''), updated_at = $7
		WHERE id = $8
	`
	user.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query,
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.PasswordHash,
		user.FullName,
		user.ProfilePictureURL,
		user.EmailConfirmedAt,
		strings.ToLower(strings.TrimSpace(user.PendingEmail)),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", duplicate(err))
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}
