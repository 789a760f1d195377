package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/echocare/caregiver-api/internal/event"
	"github.com/echocare/caregiver-api/pkg/metrics"
)

// Config controls board lifetime and refresh.
type Config struct {
	// IdleTTL evicts boards that have not been touched for this long.
	IdleTTL time.Duration
	// StaleAfter is the age after which an entry is refetched on expand.
	// Zero keeps data until it is marked stale.
	StaleAfter time.Duration
}

// Store keeps one Board per account.
type Store struct {
	cache   *cache.Cache
	loader  *Loader
	cfg     Config
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewStore(loader *Loader, cfg Config, m *metrics.Metrics) *Store {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	s := &Store{
		cache:   cache.New(cfg.IdleTTL, cfg.IdleTTL/2),
		loader:  loader,
		cfg:     cfg,
		metrics: m,
		now:     time.Now,
	}
	s.cache.OnEvicted(func(key string, _ interface{}) {
		log.Debug().Str("owner_id", key).Msg("Dashboard board evicted")
		s.metrics.SetBoards(s.cache.ItemCount())
	})
	return s
}

// Board returns the account's board, creating an empty one when needed.
// Every access pushes back the idle expiry.
func (s *Store) Board(ownerID uuid.UUID) *Board {
	key := ownerID.String()
	if v, ok := s.cache.Get(key); ok {
		b := v.(*Board)
		s.cache.SetDefault(key, b)
		return b
	}
	b := newBoard(ownerID, s.loader, s.cfg.StaleAfter, s.now)
	if err := s.cache.Add(key, b, cache.DefaultExpiration); err != nil {
		// Lost a race with another request; use the winner.
		if v, ok := s.cache.Get(key); ok {
			return v.(*Board)
		}
	}
	s.metrics.SetBoards(s.cache.ItemCount())
	return b
}

// Peek returns the account's board without creating or touching it.
func (s *Store) Peek(ownerID uuid.UUID) (*Board, bool) {
	v, ok := s.cache.Get(ownerID.String())
	if !ok {
		return nil, false
	}
	return v.(*Board), true
}

// Handle applies a bus event to the owner's board if it is live. Boards
// that are not cached load fresh data on first use anyway.
func (s *Store) Handle(_ context.Context, e event.Event) {
	b, ok := s.Peek(e.OwnerID)
	if !ok {
		return
	}
	b.Apply(e)
	if e.Remote() {
		s.metrics.DashboardPatch("remote")
		return
	}
	s.metrics.DashboardPatch(string(e.Type))
}

// MarkStale flags a patient's entry on the owner's board.
func (s *Store) MarkStale(ownerID, patientID uuid.UUID) {
	if b, ok := s.Peek(ownerID); ok {
		b.MarkStale(patientID)
	}
}

// Boards returns the live boards.
func (s *Store) Boards() []*Board {
	items := s.cache.Items()
	out := make([]*Board, 0, len(items))
	for _, it := range items {
		out = append(out, it.Object.(*Board))
	}
	return out
}

// RefreshStale refetches expanded entries that are stale or past their
// age limit, and reloads boards whose patient list was invalidated. It
// returns the number of entries refreshed.
func (s *Store) RefreshStale(ctx context.Context) (int, error) {
	refreshed := 0
	var firstErr error
	for _, b := range s.Boards() {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if b.ListStale() {
			if err := b.LoadAll(ctx); err != nil {
				log.Error().Err(err).Str("owner_id", b.OwnerID().String()).Msg("Failed to reload dashboard")
				if firstErr == nil {
					firstErr = err
				}
			}
			continue
		}
		ids := b.StaleExpanded()
		if len(ids) == 0 {
			continue
		}
		if err := b.Refresh(ctx, ids); err != nil {
			log.Error().Err(err).Str("owner_id", b.OwnerID().String()).Msg("Failed to refresh dashboard entries")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		refreshed += len(ids)
	}
	return refreshed, firstErr
}
