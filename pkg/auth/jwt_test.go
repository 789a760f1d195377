package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echocare/caregiver-api/internal/model"
)

func newService(t *testing.T) *jwtService {
	t.Helper()
	svc, err := NewJWTService(Config{Secret: "0123456789abcdef0123", Issuer: "caregiver-api", TTL: time.Hour})
	require.NoError(t, err)
	return svc.(*jwtService)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newService(t)
	user := &model.User{Base: model.Base{ID: uuid.New()}, Email: "a@example.com"}

	token, issued, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := newService(t)
	user := &model.User{Base: model.Base{ID: uuid.New()}}
	token, _, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestForeignSignatureRejected(t *testing.T) {
	a := newService(t)
	b, err := NewJWTService(Config{Secret: "another-secret-value-123", Issuer: "caregiver-api"})
	require.NoError(t, err)

	token, _, err := b.GenerateAccessToken(&model.User{Base: model.Base{ID: uuid.New()}})
	require.NoError(t, err)
	_, err = a.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestShortSecretRefused(t *testing.T) {
	_, err := NewJWTService(Config{Secret: "short"})
	assert.Error(t, err)
}
