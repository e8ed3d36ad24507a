package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/matchpulse/livesync/internal/domain/livestat"
	"github.com/matchpulse/livesync/internal/domain/player"
	"github.com/matchpulse/livesync/internal/domain/summary"
)

type RecomputeOutcome struct {
	UpToGameweek int
	PlayerCount  int
	ComputedAt   time.Time
}

// SummaryService maintains the season-to-date per-player totals as a
// materialized view over the raw gameweek rows. Recompute always
// replaces the whole view in one transaction.
type SummaryService struct {
	liveRepo    livestat.Repository
	playerRepo  player.Repository
	summaryRepo summary.Repository
	cache       CacheStore
	cacheTTL    time.Duration
	now         func() time.Time
}

func NewSummaryService(
	liveRepo livestat.Repository,
	playerRepo player.Repository,
	summaryRepo summary.Repository,
	cache CacheStore,
	cacheTTL time.Duration,
) *SummaryService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &SummaryService{
		liveRepo:    liveRepo,
		playerRepo:  playerRepo,
		summaryRepo: summaryRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Recompute rebuilds the view from every stored row with a gameweek at
// or below upToGameweek. An empty input range clears the view and its
// cache key instead of writing stale totals.
func (s *SummaryService) Recompute(ctx context.Context, upToGameweek int) (RecomputeOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SummaryService.Recompute")
	defer span.End()

	if upToGameweek <= 0 {
		return RecomputeOutcome{}, fmt.Errorf("%w: gameweek id must be greater than zero", ErrInvalidInput)
	}

	rows, err := s.liveRepo.ListUpToGameweek(ctx, upToGameweek)
	if err != nil {
		return RecomputeOutcome{}, fmt.Errorf("%w: list live stats up to gameweek_id=%d: %v", ErrPersistence, upToGameweek, err)
	}

	players, err := s.playerRepo.ListAll(ctx)
	if err != nil {
		return RecomputeOutcome{}, fmt.Errorf("%w: list players: %v", ErrPersistence, err)
	}

	computedAt := s.now()
	records := aggregateSummaries(rows, players, computedAt)

	if err := s.summaryRepo.ReplaceAll(ctx, records); err != nil {
		return RecomputeOutcome{}, fmt.Errorf("%w: replace summaries: %v", ErrPersistence, err)
	}

	if len(records) > 0 {
		s.cache.SetWithTTL(ctx, summaryCacheKeyAll, records, s.cacheTTL)
	} else {
		s.cache.Delete(ctx, summaryCacheKeyAll)
	}

	return RecomputeOutcome{UpToGameweek: upToGameweek, PlayerCount: len(records), ComputedAt: computedAt}, nil
}

// ListSummaries reads the view cache-first with a store fallback.
func (s *SummaryService) ListSummaries(ctx context.Context) ([]summary.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SummaryService.ListSummaries")
	defer span.End()

	value, err := s.cache.GetOrLoad(ctx, summaryCacheKeyAll, s.cacheTTL, func(loadCtx context.Context) (any, error) {
		records, loadErr := s.summaryRepo.ListAll(loadCtx)
		if loadErr != nil {
			return nil, fmt.Errorf("%w: list summaries: %v", ErrPersistence, loadErr)
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}

	records, ok := value.([]summary.Record)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected cached value type %T for summaries", ErrCache, value)
	}

	out := make([]summary.Record, len(records))
	copy(out, records)
	return out, nil
}

// GetPlayerSummary returns one player's totals, bypassing the cache.
func (s *SummaryService) GetPlayerSummary(ctx context.Context, playerID int64) (summary.Record, error) {
	if playerID <= 0 {
		return summary.Record{}, fmt.Errorf("%w: player id must be greater than zero", ErrInvalidInput)
	}

	record, exists, err := s.summaryRepo.GetByPlayer(ctx, playerID)
	if err != nil {
		return summary.Record{}, fmt.Errorf("%w: get summary player_id=%d: %v", ErrPersistence, playerID, err)
	}
	if !exists {
		return summary.Record{}, fmt.Errorf("%w: summary player_id=%d", ErrNotFound, playerID)
	}
	return record, nil
}

func aggregateSummaries(rows []livestat.Record, players []player.Player, computedAt time.Time) []summary.Record {
	metadata := make(map[int64]player.Player, len(players))
	for _, item := range players {
		metadata[item.ID] = item
	}

	byPlayer := make(map[int64]*summary.Record, len(players))
	for _, row := range rows {
		record, exists := byPlayer[row.PlayerID]
		if !exists {
			record = &summary.Record{PlayerID: row.PlayerID, ComputedAt: computedAt}
			if meta, ok := metadata[row.PlayerID]; ok {
				record.TeamID = meta.TeamID
				record.PositionType = string(meta.Position)
			}
			byPlayer[row.PlayerID] = record
		}

		if row.Minutes > 0 {
			record.GameweeksPlayed++
		}
		record.Minutes += row.Minutes
		record.GoalsScored += row.GoalsScored
		record.Assists += row.Assists
		record.CleanSheets += row.CleanSheets
		record.GoalsConceded += row.GoalsConceded
		record.OwnGoals += row.OwnGoals
		record.PenaltiesSaved += row.PenaltiesSaved
		record.PenaltiesMissed += row.PenaltiesMissed
		record.YellowCards += row.YellowCards
		record.RedCards += row.RedCards
		record.Saves += row.Saves
		record.Bonus += row.Bonus
		record.BPS += row.BPS
		record.TotalPoints += row.TotalPoints
	}

	out := make([]summary.Record, 0, len(byPlayer))
	for _, record := range byPlayer {
		out = append(out, *record)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}
