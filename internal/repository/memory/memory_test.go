package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
)

func TestPatientsNewestFirstAndScopedByOwner(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Patients()
	owner, other := uuid.New(), uuid.New()

	first := &model.CareRecipient{OwnerID: owner, FullName: "First"}
	second := &model.CareRecipient{OwnerID: owner, FullName: "Second"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, &model.CareRecipient{OwnerID: other, FullName: "Other"}))

	list, err := repo.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Second", list[0].FullName)
	assert.Equal(t, "First", list[1].FullName)

	_, err = repo.Get(ctx, other, first.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFindDuplicateIgnoresNameCase(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := s.Patients()
	owner := uuid.New()
	require.NoError(t, repo.Create(ctx, &model.CareRecipient{OwnerID: owner, FullName: "Asha Rao", PrimaryContact: "+919999888877"}))

	dup, err := repo.FindDuplicate(ctx, owner, "asha rao", "+919999888877")
	require.NoError(t, err)
	assert.NotNil(t, dup)

	dup, err = repo.FindDuplicate(ctx, owner, "asha rao", "+919999888800")
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestDeletePatientCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	owner := uuid.New()
	p := &model.CareRecipient{OwnerID: owner, FullName: "P"}
	require.NoError(t, s.Patients().Create(ctx, p))
	require.NoError(t, s.Medications().Create(ctx, &model.MedicationPlan{ID: uuid.New(), PatientID: p.ID}))

	require.NoError(t, s.Patients().Delete(ctx, owner, p.ID))
	meds, err := s.Medications().ListByPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, meds)
}

func TestTokenConsumedOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	userID := uuid.New()
	now := time.Now()
	require.NoError(t, s.Tokens().Create(ctx, &model.AuthToken{
		UserID: userID, Kind: string(model.TokenSignup), TokenHash: "h", ExpiresAt: now.Add(time.Hour),
	}))

	tok, err := s.Tokens().Consume(ctx, userID, model.TokenSignup, "h", now)
	require.NoError(t, err)
	assert.NotNil(t, tok.ConsumedAt)

	_, err = s.Tokens().Consume(ctx, userID, model.TokenSignup, "h", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTokenUsedUpAfterFailures(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	userID := uuid.New()
	now := time.Now()
	require.NoError(t, s.Tokens().Create(ctx, &model.AuthToken{
		UserID: userID, Kind: string(model.TokenSignup), TokenHash: "h", ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, s.Tokens().Create(ctx, &model.AuthToken{
		UserID: userID, Kind: string(model.TokenRecovery), TokenHash: "r", ExpiresAt: now.Add(time.Hour),
	}))

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Tokens().RecordFailure(ctx, userID, model.TokenSignup, now, 3))
	}
	_, err := s.Tokens().Consume(ctx, userID, model.TokenSignup, "h", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	tok, err := s.Tokens().Consume(ctx, userID, model.TokenRecovery, "r", now)
	require.NoError(t, err)
	assert.Equal(t, 0, tok.Attempts)
}

func TestExpiredTokenRejected(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	userID := uuid.New()
	now := time.Now()
	require.NoError(t, s.Tokens().Create(ctx, &model.AuthToken{
		UserID: userID, Kind: string(model.TokenRecovery), TokenHash: "h", ExpiresAt: now,
	}))
	_, err := s.Tokens().Consume(ctx, userID, model.TokenRecovery, "h", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserEmailUnique(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Users().Create(ctx, &model.User{Email: "A@example.com"}))
	err := s.Users().Create(ctx, &model.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	u, err := s.Users().GetByEmail(ctx, "a@EXAMPLE.com")
	require.NoError(t, err)
	profile, err := s.Profiles().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", profile.FullName)
}
