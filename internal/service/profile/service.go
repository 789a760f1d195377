package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
	"github.com/echocare/caregiver-api/internal/storage"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

const AvatarUpdatedMessage = "Profile picture updated successfully!"

// Avatar is an uploaded profile picture.
type Avatar struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Details is the signed-in account with its profile row.
type Details struct {
	User    *model.User    `json:"user"`
	Profile *model.Profile `json:"profile"`
}

type Service struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	blobs    storage.BlobStore
	now      func() time.Time
}

func NewService(users repository.UserRepository, profiles repository.ProfileRepository, blobs storage.BlobStore) *Service {
	return &Service{
		users:    users,
		profiles: profiles,
		blobs:    blobs,
		now:      time.Now,
	}
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Details, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		profile = &model.Profile{UserID: userID, FullName: user.DisplayName(), ImageURL: user.ProfilePictureURL}
	} else if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to get profile: %w", err))
	}
	return &Details{User: user, Profile: profile}, nil
}

// UploadAvatar stores an image of at most 5 MB, points the account at its
// public URL and mirrors the URL into the profile row.
func (s *Service) UploadAvatar(ctx context.Context, userID uuid.UUID, a Avatar) (*Details, error) {
	if !model.IsImage(a.ContentType) {
		return nil, apperrors.Validation(model.AvatarTypeMessage, []apperrors.FieldError{{Field: "file", Message: model.AvatarTypeMessage}})
	}
	if a.Size > model.AvatarMaxBytes {
		return nil, apperrors.Validation(model.AvatarSizeMessage, []apperrors.FieldError{{Field: "file", Message: model.AvatarSizeMessage}})
	}

	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := model.AvatarKey(userID, s.now(), a.Name)
	if _, err := s.blobs.Put(ctx, model.AvatarBucket, key, a.ContentType, a.Content); err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, apperrors.Validation(model.AvatarSizeMessage, []apperrors.FieldError{{Field: "file", Message: model.AvatarSizeMessage}})
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to store avatar: %w", err))
	}
	url := s.blobs.PublicURL(model.AvatarBucket, key)

	user.ProfilePictureURL = url
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to update account: %w", err))
	}

	profile := &model.Profile{UserID: userID, FullName: user.DisplayName(), ImageURL: url}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to update profile: %w", err))
	}

	log.Info().Str("user_id", userID.String()).Str("key", key).Msg("Profile picture updated")
	return &Details{User: user, Profile: profile}, nil
}

func (s *Service) user(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("User", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to get user: %w", err))
	}
	return user, nil
}
