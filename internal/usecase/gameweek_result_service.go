package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/matchpulse/livesync/internal/domain/gameweek"
	"github.com/matchpulse/livesync/internal/domain/livestat"
)

// GameweekResultService derives the overall outcome of one gameweek
// from the stored live rows: average and highest score plus the number
// of players with a row.
type GameweekResultService struct {
	liveRepo   livestat.Repository
	resultRepo gameweek.Repository
	cache      CacheStore
	cacheTTL   time.Duration
	now        func() time.Time
}

func NewGameweekResultService(
	liveRepo livestat.Repository,
	resultRepo gameweek.Repository,
	cache CacheStore,
	cacheTTL time.Duration,
) *GameweekResultService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &GameweekResultService{
		liveRepo:   liveRepo,
		resultRepo: resultRepo,
		cache:      cache,
		cacheTTL:   cacheTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *GameweekResultService) Recompute(ctx context.Context, gameweekID int) (gameweek.Result, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameweekResultService.Recompute")
	defer span.End()

	if gameweekID <= 0 {
		return gameweek.Result{}, fmt.Errorf("%w: gameweek id must be greater than zero", ErrInvalidInput)
	}

	rows, err := s.liveRepo.ListByGameweek(ctx, gameweekID)
	if err != nil {
		return gameweek.Result{}, fmt.Errorf("%w: list live stats gameweek_id=%d: %v", ErrPersistence, gameweekID, err)
	}

	result := computeGameweekResult(gameweekID, rows, s.now())
	if err := s.resultRepo.UpsertResult(ctx, result); err != nil {
		return gameweek.Result{}, fmt.Errorf("%w: upsert gameweek result gameweek_id=%d: %v", ErrPersistence, gameweekID, err)
	}

	s.cache.SetWithTTL(ctx, gameweekResultCacheKey(gameweekID), result, s.cacheTTL)
	return result, nil
}

// GetResult serves the stored result cache-first.
func (s *GameweekResultService) GetResult(ctx context.Context, gameweekID int) (gameweek.Result, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameweekResultService.GetResult")
	defer span.End()

	if gameweekID <= 0 {
		return gameweek.Result{}, fmt.Errorf("%w: gameweek id must be greater than zero", ErrInvalidInput)
	}

	value, err := s.cache.GetOrLoad(ctx, gameweekResultCacheKey(gameweekID), s.cacheTTL, func(loadCtx context.Context) (any, error) {
		result, loadErr := s.resultRepo.GetResult(loadCtx, gameweekID)
		if loadErr != nil {
			return nil, fmt.Errorf("%w: get gameweek result gameweek_id=%d: %v", ErrPersistence, gameweekID, loadErr)
		}
		return result, nil
	})
	if err != nil {
		return gameweek.Result{}, err
	}

	result, ok := value.(gameweek.Result)
	if !ok {
		return gameweek.Result{}, fmt.Errorf("%w: unexpected cached value type %T for gameweek_id=%d", ErrCache, value, gameweekID)
	}
	if result.GameweekID == 0 {
		return gameweek.Result{}, fmt.Errorf("%w: gameweek result gameweek_id=%d", ErrNotFound, gameweekID)
	}
	return result, nil
}

func computeGameweekResult(gameweekID int, rows []livestat.Record, computedAt time.Time) gameweek.Result {
	result := gameweek.Result{GameweekID: gameweekID, ComputedAt: computedAt}
	if len(rows) == 0 {
		return result
	}

	total := 0
	for _, row := range rows {
		total += row.TotalPoints
		if row.TotalPoints > result.HighestScore {
			result.HighestScore = row.TotalPoints
		}
	}
	result.PlayerCount = len(rows)
	result.AverageScore = float64(total) / float64(len(rows))
	return result
}
