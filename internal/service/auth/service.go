package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/echocare/caregiver-api/internal/email"
	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
	"github.com/echocare/caregiver-api/pkg/auth"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
	"github.com/echocare/caregiver-api/pkg/security"
)

const (
	otpDigits      = 6
	otpExpiry      = time.Hour
	otpMaxAttempts = 5

	InvalidCredentialsMessage = "Invalid login credentials"
	NotConfirmedMessage       = "Email not confirmed"
	InvalidOTPMessage         = "Token has expired or is invalid"
	EmailTakenMessage         = "A user with this email address has already been registered"

	SignUpMessage        = "Check your email for the verification code"
	ResetSentMessage     = "If an account exists for that email, a reset code has been sent"
	PasswordUpdated      = "Password updated successfully!"
	EmailChangeMessage   = "Check your new email for the confirmation code"
	SignedOutMessage     = "Signed out"
	EmailVerifiedMessage = "Email verified"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("token revoked")
)

type Service struct {
	users   repository.UserRepository
	tokens  repository.TokenRepository
	jwt     auth.JWTService
	hasher  security.PasswordHasher
	mailer  email.Service
	revoked *cache.Cache
	now     func() time.Time
}

func NewService(users repository.UserRepository, tokens repository.TokenRepository, jwt auth.JWTService,
	hasher security.PasswordHasher, mailer email.Service) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		jwt:     jwt,
		hasher:  hasher,
		mailer:  mailer,
		revoked: cache.New(time.Hour, 10*time.Minute),
		now:     time.Now,
	}
}

// SignUp creates an unconfirmed account and emails a signup code.
func (s *Service) SignUp(ctx context.Context, req model.SignUpRequest) (*model.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	user := &model.User{
		Base:         model.Base{ID: uuid.New()},
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict(EmailTakenMessage)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to create user: %w", err))
	}

	if err := s.issue(ctx, user, model.TokenSignup, user.Email); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to send verification email")
	}
	log.Info().Str("user_id", user.ID.String()).Msg("User signed up")
	return user, nil
}

// VerifyOTP confirms a signup or an email change and signs the user in.
func (s *Service) VerifyOTP(ctx context.Context, req model.VerifyOTPRequest) (*model.Session, error) {
	kind := model.TokenKind(req.Type)

	var user *model.User
	var err error
	switch kind {
	case model.TokenSignup:
		user, err = s.users.GetByEmail(ctx, req.Email)
	case model.TokenEmailChange:
		user, err = s.users.GetByPendingEmail(ctx, req.Email)
	default:
		return nil, apperrors.BadRequest("Unsupported verification type", nil)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.UnauthorizedMessage(InvalidOTPMessage, err)
		}
		return nil, apperrors.Internal(err)
	}

	if err := s.consume(ctx, user.ID, kind, req.Token); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	switch kind {
	case model.TokenSignup:
		if user.EmailConfirmedAt == nil {
			user.EmailConfirmedAt = &now
		}
	case model.TokenEmailChange:
		user.Email = user.PendingEmail
		user.PendingEmail = ""
	}
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict(EmailTakenMessage)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to update user: %w", err))
	}

	log.Info().Str("user_id", user.ID.String()).Str("type", req.Type).Msg("Email verified")
	return s.session(user)
}

func (s *Service) SignIn(ctx context.Context, req model.SignInRequest) (*model.Session, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.BadRequest(InvalidCredentialsMessage, ErrInvalidCredentials)
		}
		return nil, apperrors.Internal(err)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.BadRequest(InvalidCredentialsMessage, ErrInvalidCredentials)
	}
	if !user.Confirmed() {
		return nil, apperrors.Forbidden(NotConfirmedMessage)
	}

	log.Info().Str("user_id", user.ID.String()).Msg("User signed in")
	return s.session(user)
}

// SignOut revokes the token until it would have expired anyway.
func (s *Service) SignOut(ctx context.Context, claims *auth.Claims) {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if ttl <= 0 {
		return
	}
	s.revoked.Set(claims.ID, struct{}{}, ttl)
}

// Authenticate validates an access token and rejects signed-out ones.
func (s *Service) Authenticate(token string) (*auth.Claims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if _, revoked := s.revoked.Get(claims.ID); revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Session returns the current user.
func (s *Service) Session(ctx context.Context, userID uuid.UUID, claims *auth.Claims) (*model.Session, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(err)
		}
		return nil, apperrors.Internal(err)
	}
	session := &model.Session{User: user}
	if claims != nil && claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// RequestPasswordReset emails a recovery code. Unknown addresses succeed
// silently.
func (s *Service) RequestPasswordReset(ctx context.Context, req model.PasswordResetRequest) error {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Debug().Msg("Password reset requested for unknown email")
			return nil
		}
		return apperrors.Internal(err)
	}
	if err := s.issue(ctx, user, model.TokenRecovery, user.Email); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// UpdatePassword sets a new password. Without a signed-in user the
// request must carry the emailed recovery code.
func (s *Service) UpdatePassword(ctx context.Context, userID *uuid.UUID, req model.UpdatePasswordRequest) error {
	if err := security.CheckNewPassword(req.Password, req.ConfirmPassword); err != nil {
		return apperrors.Validation(err.Error(), []apperrors.FieldError{{Field: "password", Message: err.Error()}})
	}

	var user *model.User
	var err error
	if userID != nil {
		user, err = s.users.Get(ctx, *userID)
	} else {
		if req.Email == "" || req.Token == "" {
			return apperrors.BadRequest("Email and reset code are required", nil)
		}
		user, err = s.users.GetByEmail(ctx, req.Email)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.UnauthorizedMessage(InvalidOTPMessage, err)
		}
		return apperrors.Internal(err)
	}

	if userID == nil {
		if err := s.consume(ctx, user.ID, model.TokenRecovery, req.Token); err != nil {
			return err
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.Internal(fmt.Errorf("failed to update password: %w", err))
	}
	log.Info().Str("user_id", user.ID.String()).Msg("Password updated")
	return nil
}

// RequestEmailChange records the new address and emails it a code.
func (s *Service) RequestEmailChange(ctx context.Context, userID uuid.UUID, req model.EmailChangeRequest) error {
	newEmail := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := s.users.GetByEmail(ctx, newEmail); err == nil && existing != nil {
		return apperrors.Conflict(EmailTakenMessage)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperrors.Internal(err)
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.Unauthorized(err)
		}
		return apperrors.Internal(err)
	}
	user.PendingEmail = newEmail
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.Internal(fmt.Errorf("failed to update user: %w", err))
	}
	if err := s.issue(ctx, user, model.TokenEmailChange, newEmail); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) issue(ctx context.Context, user *model.User, kind model.TokenKind, to string) error {
	code, err := security.GenerateOTP(otpDigits)
	if err != nil {
		return err
	}
	token := &model.AuthToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Kind:      string(kind),
		TokenHash: security.HashToken(code),
		ExpiresAt: s.now().UTC().Add(otpExpiry),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	switch kind {
	case model.TokenSignup:
		return s.mailer.SendVerification(ctx, to, code)
	case model.TokenEmailChange:
		return s.mailer.SendEmailChange(ctx, to, code)
	default:
		return s.mailer.SendPasswordReset(ctx, to, code)
	}
}

// consume uses up a matching code. A wrong code counts against the user's
// live codes of that kind, which stop working after otpMaxAttempts misses.
func (s *Service) consume(ctx context.Context, userID uuid.UUID, kind model.TokenKind, code string) error {
	now := s.now().UTC()
	_, err := s.tokens.Consume(ctx, userID, kind, security.HashToken(strings.TrimSpace(code)), now)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return apperrors.Internal(fmt.Errorf("failed to check token: %w", err))
	}
	if ferr := s.tokens.RecordFailure(ctx, userID, kind, now, otpMaxAttempts); ferr != nil {
		log.Warn().Err(ferr).
			Str("user_id", userID.String()).
			Str("kind", string(kind)).
			Msg("Failed to record code attempt")
	}
	return apperrors.UnauthorizedMessage(InvalidOTPMessage, err)
}

func (s *Service) session(user *model.User) (*model.Session, error) {
	token, claims, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        user,
	}, nil
}
