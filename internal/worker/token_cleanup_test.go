package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository/memory"
)

func TestTokenCleanup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens := memory.NewStore().Tokens()
	user := uuid.New()

	require.NoError(t, tokens.Create(ctx, &model.AuthToken{UserID: user, Kind: string(model.TokenSignup), TokenHash: "old", ExpiresAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, tokens.Create(ctx, &model.AuthToken{UserID: user, Kind: string(model.TokenSignup), TokenHash: "recent", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, tokens.Create(ctx, &model.AuthToken{UserID: user, Kind: string(model.TokenSignup), TokenHash: "live", ExpiresAt: now.Add(time.Hour)}))

	w := NewTokenCleanupWorker(tokens, 24*time.Hour, time.Hour)
	w.now = func() time.Time { return now }

	n, err := w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTokenCleanupDisabled(t *testing.T) {
	w := NewTokenCleanupWorker(memory.NewStore().Tokens(), time.Hour, 0)
	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker did not return")
	}
}
