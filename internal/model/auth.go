package model

import (
	"time"

	"github.com/google/uuid"
)

type TokenKind string

const (
	TokenSignup      TokenKind = "signup"
	TokenEmailChange TokenKind = "email_change"
	TokenRecovery    TokenKind = "recovery"
)

// AuthToken is a one-time code sent by email. Only its hash is stored.
type AuthToken struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	Kind       string     `db:"kind" json:"kind"`
	TokenHash  string     `db:"token_hash" json:"-"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
	// Attempts counts wrong codes entered while the token was live.
	Attempts  int       `db:"attempts" json:"attempts"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Token string `json:"token" binding:"required"`
	Type  string `json:"type" binding:"required,oneof=signup email_change"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// UpdatePasswordRequest sets a new password. Token is the emailed recovery
// code; it is not needed when the caller is already signed in.
type UpdatePasswordRequest struct {
	Email           string `json:"email"`
	Token           string `json:"token"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password"`
}

type EmailChangeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Session is returned on sign-in and by the session endpoint.
type Session struct {
	AccessToken string    `json:"access_token,omitempty"`
	TokenType   string    `json:"token_type,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *User     `json:"user"`
}
