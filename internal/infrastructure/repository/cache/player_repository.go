package cache

import (
	"context"
	"time"

	"github.com/matchpulse/livesync/internal/domain/player"
	basecache "github.com/matchpulse/livesync/internal/platform/cache"
)

const playerListKey = "player:list"

// PlayerRepository caches the player metadata catalog in front of the
// durable repository. Metadata changes rarely next to live rows, so
// summary recomputations read it from here instead of hitting postgres
// on every cascade.
type PlayerRepository struct {
	next  player.Repository
	cache *basecache.Store
	ttl   time.Duration
}

func NewPlayerRepository(next player.Repository, cache *basecache.Store, ttl time.Duration) *PlayerRepository {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PlayerRepository{next: next, cache: cache, ttl: ttl}
}

func (r *PlayerRepository) ListAll(ctx context.Context) ([]player.Player, error) {
	v, err := r.cache.GetOrLoad(ctx, playerListKey, r.ttl, func(ctx context.Context) (any, error) {
		items, err := r.next.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		return append([]player.Player(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]player.Player)
	return append([]player.Player(nil), items...), nil
}

// Upsert writes through and drops the cached catalog so the next read
// sees the new metadata.
func (r *PlayerRepository) Upsert(ctx context.Context, players []player.Player) error {
	if err := r.next.Upsert(ctx, players); err != nil {
		return err
	}
	r.cache.Delete(ctx, playerListKey)
	return nil
}
