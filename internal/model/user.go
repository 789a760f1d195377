package model

import (
	"strings"
	"time"
)

// User is a caregiver account. FullName and ProfilePictureURL make up the
// account metadata.
type User struct {
	Base
	Email             string     `db:"email" json:"email"`
	PasswordHash      string     `db:"password_hash" json:"-"`
	FullName          string     `db:"full_name" json:"full_name"`
	ProfilePictureURL string     `db:"profile_picture_url" json:"profile_picture_url"`
	EmailConfirmedAt  *time.Time `db:"email_confirmed_at" json:"email_confirmed_at"`
	PendingEmail      string     `db:"pending_email" json:"pending_email,omitempty"`
}

// Confirmed reports whether the sign-up OTP was verified.
func (u *User) Confirmed() bool {
	return u.EmailConfirmedAt != nil
}

// DisplayName falls back from the metadata name to the email local part
// and finally to "User".
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
		return local
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return u.Email
	}
	return "User"
}
