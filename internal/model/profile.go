package model

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	AvatarBucket   = "profile-pictures"
	AvatarMaxBytes = 5 * 1024 * 1024

	AvatarTypeMessage = "Please select an image file"
	AvatarSizeMessage = "File size must be < 5MB"
)

// Profile mirrors the display name and avatar of an account.
type Profile struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	ImageURL  string    `db:"image_url" json:"image_url"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsImage reports whether contentType is an image MIME type.
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// AvatarKey builds the object key {userID}-{unixMillis}.{ext}.
func AvatarKey(userID uuid.UUID, now time.Time, fileName string) string {
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	if ext == "" {
		ext = fileName
	}
	return fmt.Sprintf("%s-%d.%s", userID, now.UnixMilli(), ext)
}
