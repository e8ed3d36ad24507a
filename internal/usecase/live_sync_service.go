package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/matchpulse/livesync/internal/domain/explain"
	"github.com/matchpulse/livesync/internal/domain/livestat"
)

// ExternalLiveBundle is one gameweek's payload as fetched from the
// stats provider, already structurally validated and normalized.
type ExternalLiveBundle struct {
	GameweekID int
	Elements   []ExternalLiveElement
	// Skipped counts payload elements the provider client dropped
	// because they failed to transform.
	Skipped int
}

type ExternalLiveElement struct {
	PlayerID int64
	Stats    ExternalLiveStats
	Explain  []ExternalExplainEntry
}

type ExternalLiveStats struct {
	Minutes         int
	GoalsScored     int
	Assists         int
	CleanSheets     int
	GoalsConceded   int
	OwnGoals        int
	PenaltiesSaved  int
	PenaltiesMissed int
	YellowCards     int
	RedCards        int
	Saves           int
	Bonus           int
	BPS             int
	Influence       float64
	Creativity      float64
	Threat          float64
	ICTIndex        float64
	Starts          int
	TotalPoints     int
	InDreamTeam     bool
}

type ExternalExplainEntry struct {
	Identifier string
	Points     int
	Value      int
}

type LiveStatsProvider interface {
	GameweekLive(ctx context.Context, gameweekID int) (ExternalLiveBundle, error)
}

// CacheStore is the in-process cache surface use cases depend on.
// Writes are full-value replacements, reads never block on population.
type CacheStore interface {
	Get(ctx context.Context, key string) (any, bool)
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
	DeletePrefix(ctx context.Context, prefix string)
	GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(context.Context) (any, error)) (any, error)
}

type SyncOutcome struct {
	GameweekID  int
	PlayerCount int
	// SkippedCount counts payload elements dropped during transform,
	// e.g. rows without a player id. They never abort the sync.
	SkippedCount int
	SyncedAt     time.Time
}

// LiveSyncService fetches one gameweek's live stats from the provider
// and lands them durably plus in cache. The raw rows and the points
// breakdown come out of the same fetch and are written in the same
// pass. Re-running a sync with an unchanged payload leaves the stored
// rows semantically identical.
type LiveSyncService struct {
	provider    LiveStatsProvider
	liveRepo    livestat.Repository
	explainRepo explain.Repository
	cache       CacheStore
	cacheTTL    time.Duration
	now         func() time.Time
}

func NewLiveSyncService(
	provider LiveStatsProvider,
	liveRepo livestat.Repository,
	explainRepo explain.Repository,
	cache CacheStore,
	cacheTTL time.Duration,
) *LiveSyncService {
	if cacheTTL <= 0 {
		cacheTTL = 45 * time.Second
	}
	return &LiveSyncService{
		provider:    provider,
		liveRepo:    liveRepo,
		explainRepo: explainRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SyncGameweek is the durable path: provider fetch, idempotent batch
// upsert, then cache overwrite.
func (s *LiveSyncService) SyncGameweek(ctx context.Context, gameweekID int) (SyncOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LiveSyncService.SyncGameweek")
	defer span.End()

	if gameweekID <= 0 {
		return SyncOutcome{}, fmt.Errorf("%w: gameweek id must be greater than zero", ErrInvalidInput)
	}

	bundle, err := s.provider.GameweekLive(ctx, gameweekID)
	if err != nil {
		return SyncOutcome{}, fmt.Errorf("fetch live bundle: %w", err)
	}

	syncedAt := s.now()
	records, skipped := mapLiveBundle(bundle, syncedAt)
	skipped += bundle.Skipped
	if err := s.liveRepo.BatchUpsert(ctx, records); err != nil {
		return SyncOutcome{}, fmt.Errorf("%w: upsert live stats gameweek_id=%d: %v", ErrPersistence, gameweekID, err)
	}

	explainRecords := mapExplainBundle(bundle)
	if s.explainRepo != nil {
		if err := s.explainRepo.BatchUpsert(ctx, explainRecords); err != nil {
			return SyncOutcome{}, fmt.Errorf("%w: upsert explain records gameweek_id=%d: %v", ErrPersistence, gameweekID, err)
		}
	}

	if len(records) == 0 {
		s.cache.Delete(ctx, liveStatsCacheKey(gameweekID))
		s.cache.Delete(ctx, explainCacheKey(gameweekID))
	} else {
		s.cache.SetWithTTL(ctx, liveStatsCacheKey(gameweekID), records, s.cacheTTL)
		if s.explainRepo != nil {
			s.cache.SetWithTTL(ctx, explainCacheKey(gameweekID), explainRecords, s.cacheTTL)
		}
	}

	return SyncOutcome{GameweekID: gameweekID, PlayerCount: len(records), SkippedCount: skipped, SyncedAt: syncedAt}, nil
}

// SyncGameweekCacheOnly is the fast path used between durable runs:
// provider fetch plus cache overwrite, nothing touches the store. The
// next durable sync wins over whatever this one cached.
func (s *LiveSyncService) SyncGameweekCacheOnly(ctx context.Context, gameweekID int) (SyncOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LiveSyncService.SyncGameweekCacheOnly")
	defer span.End()

	if gameweekID <= 0 {
		return SyncOutcome{}, fmt.Errorf("%w: gameweek id must be greater than zero", ErrInvalidInput)
	}

	bundle, err := s.provider.GameweekLive(ctx, gameweekID)
	if err != nil {
		return SyncOutcome{}, fmt.Errorf("fetch live bundle: %w", err)
	}

	syncedAt := s.now()
	records, skipped := mapLiveBundle(bundle, syncedAt)
	skipped += bundle.Skipped
	if len(records) == 0 {
		s.cache.Delete(ctx, liveStatsCacheKey(gameweekID))
	} else {
		s.cache.SetWithTTL(ctx, liveStatsCacheKey(gameweekID), records, s.cacheTTL)
	}

	return SyncOutcome{GameweekID: gameweekID, PlayerCount: len(records), SkippedCount: skipped, SyncedAt: syncedAt}, nil
}

// ListGameweekLive serves reads cache-first with a store fallback. A
// miss loads from the store, returns the loaded rows to the caller and
// repopulates the cache in the background.
func (s *LiveSyncService) ListGameweekLive(ctx context.Context, gameweekID int) ([]livestat.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LiveSyncService.ListGameweekLive")
	defer span.End()

	if gameweekID <= 0 {
		return nil, fmt.Errorf("%w: gameweek id must be greater than zero", ErrInvalidInput)
	}

	value, err := s.cache.GetOrLoad(ctx, liveStatsCacheKey(gameweekID), s.cacheTTL, func(loadCtx context.Context) (any, error) {
		records, loadErr := s.liveRepo.ListByGameweek(loadCtx, gameweekID)
		if loadErr != nil {
			return nil, fmt.Errorf("%w: list live stats gameweek_id=%d: %v", ErrPersistence, gameweekID, loadErr)
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}

	records, ok := value.([]livestat.Record)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected cached value type %T for gameweek_id=%d", ErrCache, value, gameweekID)
	}

	out := make([]livestat.Record, len(records))
	copy(out, records)
	return out, nil
}

// ClearGameweekCache drops the cached live rows for one gameweek.
func (s *LiveSyncService) ClearGameweekCache(ctx context.Context, gameweekID int) error {
	if gameweekID <= 0 {
		return fmt.Errorf("%w: gameweek id must be greater than zero", ErrInvalidInput)
	}
	s.cache.Delete(ctx, liveStatsCacheKey(gameweekID))
	return nil
}

func mapLiveBundle(bundle ExternalLiveBundle, syncedAt time.Time) ([]livestat.Record, int) {
	out := make([]livestat.Record, 0, len(bundle.Elements))
	skipped := 0
	for _, element := range bundle.Elements {
		if element.PlayerID <= 0 {
			skipped++
			continue
		}
		sourceUpdatedAt := syncedAt
		out = append(out, livestat.Record{
			GameweekID:      bundle.GameweekID,
			PlayerID:        element.PlayerID,
			Minutes:         element.Stats.Minutes,
			GoalsScored:     element.Stats.GoalsScored,
			Assists:         element.Stats.Assists,
			CleanSheets:     element.Stats.CleanSheets,
			GoalsConceded:   element.Stats.GoalsConceded,
			OwnGoals:        element.Stats.OwnGoals,
			PenaltiesSaved:  element.Stats.PenaltiesSaved,
			PenaltiesMissed: element.Stats.PenaltiesMissed,
			YellowCards:     element.Stats.YellowCards,
			RedCards:        element.Stats.RedCards,
			Saves:           element.Stats.Saves,
			Bonus:           element.Stats.Bonus,
			BPS:             element.Stats.BPS,
			Influence:       element.Stats.Influence,
			Creativity:      element.Stats.Creativity,
			Threat:          element.Stats.Threat,
			ICTIndex:        element.Stats.ICTIndex,
			Starts:          element.Stats.Starts,
			TotalPoints:     element.Stats.TotalPoints,
			InDreamTeam:     element.Stats.InDreamTeam,
			SourceUpdatedAt: &sourceUpdatedAt,
		})
	}
	return out, skipped
}
