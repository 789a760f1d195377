package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository/memory"
	"github.com/echocare/caregiver-api/pkg/auth"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
	"github.com/echocare/caregiver-api/pkg/security"
)

type sent struct {
	Kind string
	To   string
	Code string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sent
}

func (m *recordingMailer) record(kind, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sent{Kind: kind, To: to, Code: code})
	return nil
}

func (m *recordingMailer) SendVerification(ctx context.Context, to, code string) error {
	return m.record("signup", to, code)
}

func (m *recordingMailer) SendEmailChange(ctx context.Context, to, code string) error {
	return m.record("email_change", to, code)
}

func (m *recordingMailer) SendPasswordReset(ctx context.Context, to, code string) error {
	return m.record("recovery", to, code)
}

func (m *recordingMailer) last(t *testing.T) sent {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

func setup(t *testing.T) (*Service, *recordingMailer) {
	t.Helper()
	db := memory.NewStore()
	jwtSvc, err := auth.NewJWTService(auth.Config{Secret: "0123456789abcdef0123", Issuer: "test"})
	require.NoError(t, err)
	mailer := &recordingMailer{}
	return NewService(db.Users(), db.Tokens(), jwtSvc, security.NewBcryptHasher(bcrypt.MinCost), mailer), mailer
}

func signUpAndVerify(t *testing.T, svc *Service, mailer *recordingMailer, email string) *model.Session {
	t.Helper()
	ctx := context.Background()
	_, err := svc.SignUp(ctx, model.SignUpRequest{Email: email, Password: "password1", FullName: "Meera"})
	require.NoError(t, err)
	code := mailer.last(t).Code

	session, err := svc.VerifyOTP(ctx, model.VerifyOTPRequest{Email: email, Token: code, Type: "signup"})
	require.NoError(t, err)
	return session
}

func TestSignUpVerifySignIn(t *testing.T) {
	ctx := context.Background()
	svc, mailer := setup(t)

	user, err := svc.SignUp(ctx, model.SignUpRequest{Email: " Carer@Example.com ", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "carer@example.com", user.Email)
	assert.False(t, user.Confirmed())

	msg := mailer.last(t)
	assert.Equal(t, "signup", msg.Kind)
	assert.Len(t, msg.Code, 6)

	_, err = svc.SignIn(ctx, model.SignInRequest{Email: "carer@example.com", Password: "password1"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, NotConfirmedMessage, appErr.Message)

	session, err := svc.VerifyOTP(ctx, model.VerifyOTPRequest{Email: "carer@example.com", Token: msg.Code, Type: "signup"})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.True(t, session.User.Confirmed())

	// Codes are single use.
	_, err = svc.VerifyOTP(ctx, model.VerifyOTPRequest{Email: "carer@example.com", Token: msg.Code, Type: "signup"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))

	session, err = svc.SignIn(ctx, model.SignInRequest{Email: "carer@example.com", Password: "password1"})
	require.NoError(t, err)
	claims, err := svc.Authenticate(session.AccessToken)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	_, err := svc.SignUp(ctx, model.SignUpRequest{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, model.SignUpRequest{Email: "A@example.com", Password: "password2"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, EmailTakenMessage, appErr.Message)
}

func TestVerifyOTPWrongCode(t *testing.T) {
	ctx := context.Background()
	svc, mailer := setup(t)
	_, err := svc.SignUp(ctx, model.SignUpRequest{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	wrong := "000000"
	if mailer.last(t).Code == wrong {
		wrong = "111111"
	}
	_, err = svc.VerifyOTP(ctx, model.VerifyOTPRequest{Email: "a@example.com", Token: wrong, Type: "signup"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, InvalidOTPMessage, appErr.Message)
}

func TestVerifyOTPLocksAfterRepeatedMisses(t *testing.T) {
	ctx := context.Background()
	svc, mailer := setup(t)
	_, err := svc.SignUp(ctx, model.SignUpRequest{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)
	code := mailer.last(t).Code
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < otpMaxAttempts-1; i++ {
		_, err = svc.VerifyOTP(ctx, model.VerifyOTPRequest{Email: "a@example.com", Token: wrong, Type: "signup"})
		require.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	}
	_, err = svc.VerifyOTP(ctx, model.VerifyOTPRequest{Email: "a@example.com", Token: code, Type: "signup"})
	require.NoError(t, err, "code still valid below the limit")

	_, err = svc.SignUp(ctx, model.SignUpRequest{Email: "b@example.com", Password: "password1"})
	require.NoError(t, err)
	code = mailer.last(t).Code
	wrong = "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < otpMaxAttempts; i++ {
		_, err = svc.VerifyOTP(ctx, model.VerifyOTPRequest{Email: "b@example.com", Token: wrong, Type: "signup"})
		require.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	}
	_, err = svc.VerifyOTP(ctx, model.VerifyOTPRequest{Email: "b@example.com", Token: code, Type: "signup"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, InvalidOTPMessage, appErr.Message)
}

func TestSignInInvalidCredentials(t *testing.T) {
	ctx := context.Background()
	svc, mailer := setup(t)
	signUpAndVerify(t, svc, mailer, "a@example.com")

	for _, req := range []model.SignInRequest{
		{Email: "a@example.com", Password: "wrong-password"},
		{Email: "b@example.com", Password: "password1"},
	} {
		_, err := svc.SignIn(ctx, req)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, InvalidCredentialsMessage, appErr.Message)
	}
}

func TestSignOutRevokesToken(t *testing.T) {
	svc, mailer := setup(t)
	session := signUpAndVerify(t, svc, mailer, "a@example.com")

	claims, err := svc.Authenticate(session.AccessToken)
	require.NoError(t, err)
	svc.SignOut(context.Background(), claims)

	_, err = svc.Authenticate(session.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	svc, mailer := setup(t)
	signUpAndVerify(t, svc, mailer, "a@example.com")

	require.NoError(t, svc.RequestPasswordReset(ctx, model.PasswordResetRequest{Email: "nobody@example.com"}))
	require.NoError(t, svc.RequestPasswordReset(ctx, model.PasswordResetRequest{Email: "a@example.com"}))
	msg := mailer.last(t)
	assert.Equal(t, "recovery", msg.Kind)

	err := svc.UpdatePassword(ctx, nil, model.UpdatePasswordRequest{
		Email: "a@example.com", Token: msg.Code, Password: "newpassword", ConfirmPassword: "different",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	require.NoError(t, svc.UpdatePassword(ctx, nil, model.UpdatePasswordRequest{
		Email: "a@example.com", Token: msg.Code, Password: "newpassword", ConfirmPassword: "newpassword",
	}))

	_, err = svc.SignIn(ctx, model.SignInRequest{Email: "a@example.com", Password: "password1"})
	assert.Error(t, err)
	_, err = svc.SignIn(ctx, model.SignInRequest{Email: "a@example.com", Password: "newpassword"})
	require.NoError(t, err)
}

func TestUpdatePasswordSignedIn(t *testing.T) {
	ctx := context.Background()
	svc, mailer := setup(t)
	session := signUpAndVerify(t, svc, mailer, "a@example.com")

	id := session.User.ID
	require.NoError(t, svc.UpdatePassword(ctx, &id, model.UpdatePasswordRequest{
		Password: "another-pass", ConfirmPassword: "another-pass",
	}))
	_, err := svc.SignIn(ctx, model.SignInRequest{Email: "a@example.com", Password: "another-pass"})
	require.NoError(t, err)

	missing := uuid.New()
	err = svc.UpdatePassword(ctx, &missing, model.UpdatePasswordRequest{Password: "another-pass", ConfirmPassword: "another-pass"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
}

func TestEmailChange(t *testing.T) {
	ctx := context.Background()
	svc, mailer := setup(t)
	session := signUpAndVerify(t, svc, mailer, "old@example.com")
	signUpAndVerify(t, svc, mailer, "taken@example.com")

	err := svc.RequestEmailChange(ctx, session.User.ID, model.EmailChangeRequest{Email: "taken@example.com"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))

	require.NoError(t, svc.RequestEmailChange(ctx, session.User.ID, model.EmailChangeRequest{Email: "New@Example.com"}))
	msg := mailer.last(t)
	assert.Equal(t, "email_change", msg.Kind)
	assert.Equal(t, "new@example.com", msg.To)

	updated, err := svc.VerifyOTP(ctx, model.VerifyOTPRequest{Email: "new@example.com", Token: msg.Code, Type: "email_change"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.User.Email)
	assert.Empty(t, updated.User.PendingEmail)

	_, err = svc.SignIn(ctx, model.SignInRequest{Email: "new@example.com", Password: "password1"})
	require.NoError(t, err)
}

func TestSession(t *testing.T) {
	svc, mailer := setup(t)
	session := signUpAndVerify(t, svc, mailer, "a@example.com")
	claims, err := svc.Authenticate(session.AccessToken)
	require.NoError(t, err)

	current, err := svc.Session(context.Background(), session.User.ID, claims)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", current.User.Email)
	assert.Empty(t, current.AccessToken)
	assert.Equal(t, claims.ExpiresAt.Time, current.ExpiresAt)
}
