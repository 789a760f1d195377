package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// TokenStore is the part of the token repository the cleanup needs.
type TokenStore interface {
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenCleanupWorker purges one-time email codes some time after they
// expire.
type TokenCleanupWorker struct {
	repo            TokenStore
	retention       time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

func NewTokenCleanupWorker(repo TokenStore, retention, cleanupInterval time.Duration) *TokenCleanupWorker {
	return &TokenCleanupWorker{
		repo:            repo,
		retention:       retention,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
	}
}

// Start runs until ctx is done. A non-positive interval disables it.
func (w *TokenCleanupWorker) Start(ctx context.Context) {
	if w.cleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Cleanup(ctx); err != nil {
				log.Error().Err(err).Msg("Token cleanup failed")
			}
		}
	}
}

func (w *TokenCleanupWorker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.retention)

	rows, err := w.repo.Cleanup(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup tokens: %w", err)
	}

	if rows > 0 {
		log.Info().Int64("rows", rows).Time("cutoff", cutoff).Msg("Expired tokens removed")
	}
	return rows, nil
}
