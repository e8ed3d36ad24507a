package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/matchpulse/livesync/internal/domain/explain"
)

// ExplainSyncService persists the per-stat points breakdown for one
// gameweek. It re-fetches the provider payload rather than sharing
// state with the live sync so the two can run and fail independently.
type ExplainSyncService struct {
	provider    LiveStatsProvider
	explainRepo explain.Repository
	cache       CacheStore
	cacheTTL    time.Duration
}

func NewExplainSyncService(
	provider LiveStatsProvider,
	explainRepo explain.Repository,
	cache CacheStore,
	cacheTTL time.Duration,
) *ExplainSyncService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ExplainSyncService{
		provider:    provider,
		explainRepo: explainRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
	}
}

func (s *ExplainSyncService) SyncGameweek(ctx context.Context, gameweekID int) (SyncOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ExplainSyncService.SyncGameweek")
	defer span.End()

	if gameweekID <= 0 {
		return SyncOutcome{}, fmt.Errorf("%w: gameweek id must be greater than zero", ErrInvalidInput)
	}

	bundle, err := s.provider.GameweekLive(ctx, gameweekID)
	if err != nil {
		return SyncOutcome{}, fmt.Errorf("fetch live bundle: %w", err)
	}

	records := mapExplainBundle(bundle)
	if err := s.explainRepo.BatchUpsert(ctx, records); err != nil {
		return SyncOutcome{}, fmt.Errorf("%w: upsert explain records gameweek_id=%d: %v", ErrPersistence, gameweekID, err)
	}

	if len(records) == 0 {
		s.cache.Delete(ctx, explainCacheKey(gameweekID))
	} else {
		s.cache.SetWithTTL(ctx, explainCacheKey(gameweekID), records, s.cacheTTL)
	}

	return SyncOutcome{GameweekID: gameweekID, PlayerCount: len(records), SkippedCount: bundle.Skipped, SyncedAt: time.Now().UTC()}, nil
}

// ListGameweekExplain reads the stored breakdown cache-first.
func (s *ExplainSyncService) ListGameweekExplain(ctx context.Context, gameweekID int) ([]explain.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ExplainSyncService.ListGameweekExplain")
	defer span.End()

	if gameweekID <= 0 {
		return nil, fmt.Errorf("%w: gameweek id must be greater than zero", ErrInvalidInput)
	}

	value, err := s.cache.GetOrLoad(ctx, explainCacheKey(gameweekID), s.cacheTTL, func(loadCtx context.Context) (any, error) {
		records, loadErr := s.explainRepo.ListByGameweek(loadCtx, gameweekID)
		if loadErr != nil {
			return nil, fmt.Errorf("%w: list explain records gameweek_id=%d: %v", ErrPersistence, gameweekID, loadErr)
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}

	records, ok := value.([]explain.Record)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected cached value type %T for gameweek_id=%d", ErrCache, value, gameweekID)
	}

	out := make([]explain.Record, len(records))
	copy(out, records)
	return out, nil
}

func mapExplainBundle(bundle ExternalLiveBundle) []explain.Record {
	out := make([]explain.Record, 0, len(bundle.Elements))
	for _, element := range bundle.Elements {
		if element.PlayerID <= 0 {
			continue
		}
		record := explain.Record{
			GameweekID: bundle.GameweekID,
			PlayerID:   element.PlayerID,
		}
		for _, entry := range element.Explain {
			record.TotalPoints += entry.Points
			switch entry.Identifier {
			case "minutes":
				record.MinutesPoints += entry.Points
			case "goals_scored":
				record.GoalsScoredPoints += entry.Points
			case "assists":
				record.AssistsPoints += entry.Points
			case "clean_sheets":
				record.CleanSheetsPoints += entry.Points
			case "goals_conceded":
				record.GoalsConcededPoints += entry.Points
			case "own_goals":
				record.OwnGoalsPoints += entry.Points
			case "penalties_saved":
				record.PenaltiesSavedPoints += entry.Points
			case "penalties_missed":
				record.PenaltiesMissedPoints += entry.Points
			case "yellow_cards":
				record.YellowCardsPoints += entry.Points
			case "red_cards":
				record.RedCardsPoints += entry.Points
			case "saves":
				record.SavesPoints += entry.Points
			case "bonus":
				record.BonusPoints += entry.Points
			}
		}
		out = append(out, record)
	}
	return out
}
