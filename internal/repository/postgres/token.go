package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
)

type tokenRepository struct {
	BaseRepository
}

func NewTokenRepository(base BaseRepository) repository.TokenRepository {
	return &tokenRepository{base}
}

func (r *tokenRepository) Create(ctx context.Context, token *model.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (id, user_id, kind, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.Kind, token.TokenHash, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (r *tokenRepository) Consume(ctx context.Context, userID uuid.UUID, kind model.TokenKind, tokenHash string, now time.Time) (*model.AuthToken, error) {
	query := `
		UPDATE auth_tokens
		SET consumed_at = $1
		WHERE user_id = $2
		AND kind = $3
		AND token_hash = $4
		AND expires_at > $1
		AND consumed_at IS NULL
		RETURNING id, user_id, kind, token_hash, expires_at, consumed_at, attempts, created_at
	`
	var token model.AuthToken
	if err := r.db.GetContext(ctx, &token, query, now, userID, string(kind), tokenHash); err != nil {
		return nil, fmt.Errorf("failed to consume token: %w", notFound(err))
	}
	return &token, nil
}

func (r *tokenRepository) RecordFailure(ctx context.Context, userID uuid.UUID, kind model.TokenKind, now time.Time, maxAttempts int) error {
	query := `
		UPDATE auth_tokens
		SET attempts = attempts + 1,
			consumed_at = CASE WHEN attempts + 1 >= $4 THEN $1 ELSE consumed_at END
		WHERE user_id = $2
		AND kind = $3
		AND expires_at > $1
		AND consumed_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, now, userID, string(kind), maxAttempts); err != nil {
		return fmt.Errorf("failed to record token failure: %w", err)
	}
	return nil
}

func (r *tokenRepository) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup tokens: %w", err)
	}
	return result.RowsAffected()
}
