package profile

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository/memory"
	"github.com/echocare/caregiver-api/internal/storage"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

func setup(t *testing.T) (*Service, *memory.Store, *storage.MemoryStore, *model.User) {
	t.Helper()
	db := memory.NewStore()
	blobs := storage.NewMemoryStore("http://files.test", model.AvatarMaxBytes)
	user := &model.User{Email: "carer@example.com", FullName: "Meera"}
	require.NoError(t, db.Users().Create(context.Background(), user))

	svc := NewService(db.Users(), db.Profiles(), blobs)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc, db, blobs, user
}

func TestUploadAvatar(t *testing.T) {
	ctx := context.Background()
	svc, db, blobs, user := setup(t)

	details, err := svc.UploadAvatar(ctx, user.ID, Avatar{
		Name:        "me.png",
		ContentType: "image/png",
		Size:        3,
		Content:     strings.NewReader("png"),
	})
	require.NoError(t, err)

	key := user.ID.String() + "-1700000000000.png"
	url := blobs.PublicURL(model.AvatarBucket, key)
	assert.Equal(t, url, details.User.ProfilePictureURL)
	assert.Equal(t, url, details.Profile.ImageURL)

	r, obj, err := blobs.Get(model.AvatarBucket, key)
	require.NoError(t, err)
	body, _ := io.ReadAll(r)
	assert.Equal(t, "png", string(body))
	assert.Equal(t, "image/png", obj.ContentType)

	stored, err := db.Users().Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, url, stored.ProfilePictureURL)
	profile, err := db.Profiles().Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Meera", profile.FullName)
}

func TestUploadAvatarRejectsNonImage(t *testing.T) {
	svc, _, _, user := setup(t)
	_, err := svc.UploadAvatar(context.Background(), user.ID, Avatar{
		Name: "cv.pdf", ContentType: "application/pdf", Size: 10, Content: strings.NewReader("x"),
	})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, model.AvatarTypeMessage, appErr.Message)
}

func TestUploadAvatarRejectsLargeFile(t *testing.T) {
	svc, _, _, user := setup(t)
	_, err := svc.UploadAvatar(context.Background(), user.ID, Avatar{
		Name: "big.jpg", ContentType: "image/jpeg", Size: model.AvatarMaxBytes + 1, Content: strings.NewReader("x"),
	})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, model.AvatarSizeMessage, appErr.Message)
}

func TestUploadAvatarUnknownUser(t *testing.T) {
	svc, _, _, _ := setup(t)
	_, err := svc.UploadAvatar(context.Background(), uuid.New(), Avatar{
		Name: "me.png", ContentType: "image/png", Size: 1, Content: strings.NewReader("x"),
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestGetUsesDisplayName(t *testing.T) {
	ctx := context.Background()
	db := memory.NewStore()
	svc := NewService(db.Users(), db.Profiles(), storage.NewMemoryStore("", 0))

	user := &model.User{Email: "nobody@example.com"}
	require.NoError(t, db.Users().Create(ctx, user))

	details, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "nobody", details.Profile.FullName)
	assert.Equal(t, "nobody@example.com", details.User.Email)
}
