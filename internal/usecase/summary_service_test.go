package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matchpulse/livesync/internal/domain/player"
	"github.com/matchpulse/livesync/internal/platform/cache"
)

func testPlayers() []player.Player {
	return []player.Player{
		{ID: 10, Name: "Aan Saputra", TeamID: 3, Position: player.PositionMidfielder},
		{ID: 11, Name: "Bima Wijaya", TeamID: 3, Position: player.PositionGoalkeeper},
		{ID: 12, Name: "Candra Pratama", TeamID: 7, Position: player.PositionDefender},
	}
}

func TestSummaryService_Recompute_AggregatesAcrossGameweeks(t *testing.T) {
	t.Parallel()

	provider := &stubStatsProvider{bundles: map[int]ExternalLiveBundle{
		4: {
			GameweekID: 4,
			Elements: []ExternalLiveElement{
				{PlayerID: 10, Stats: ExternalLiveStats{Minutes: 90, GoalsScored: 2, TotalPoints: 13}},
				{PlayerID: 11, Stats: ExternalLiveStats{Minutes: 90, Saves: 6, TotalPoints: 8}},
			},
		},
		5: testLiveBundle(5),
	}}
	liveRepo := newStubLiveStatRepository()
	store := cache.NewStore(time.Minute)
	liveSync := NewLiveSyncService(provider, liveRepo, newStubExplainRepository(), store, time.Minute)

	for _, gameweekID := range []int{4, 5} {
		if _, err := liveSync.SyncGameweek(context.Background(), gameweekID); err != nil {
			t.Fatalf("sync gameweek %d: %v", gameweekID, err)
		}
	}

	summaryRepo := &stubSummaryRepository{}
	service := NewSummaryService(liveRepo, &stubPlayerRepository{players: testPlayers()}, summaryRepo, store, time.Minute)

	outcome, err := service.Recompute(context.Background(), 5)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if outcome.PlayerCount != 3 {
		t.Fatalf("expected three summaries, got=%d", outcome.PlayerCount)
	}

	records, err := service.ListSummaries(context.Background())
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected three summaries, got=%d", len(records))
	}

	// Ordered by total points descending.
	top := records[0]
	if top.PlayerID != 10 || top.TotalPoints != 24 {
		t.Fatalf("unexpected top summary: %+v", top)
	}
	if top.GameweeksPlayed != 2 || top.Minutes != 180 || top.GoalsScored != 3 || top.Assists != 1 {
		t.Fatalf("unexpected aggregation for player 10: %+v", top)
	}
	if top.TeamID != 3 || top.PositionType != string(player.PositionMidfielder) {
		t.Fatalf("expected player metadata joined, got=%+v", top)
	}

	keeper := records[1]
	if keeper.PlayerID != 11 || keeper.TotalPoints != 14 || keeper.Saves != 6 || keeper.CleanSheets != 1 {
		t.Fatalf("unexpected aggregation for player 11: %+v", keeper)
	}

	last := records[2]
	if last.PlayerID != 12 || last.TotalPoints != 0 || last.GameweeksPlayed != 1 {
		t.Fatalf("unexpected aggregation for player 12: %+v", last)
	}
}

func TestSummaryService_Recompute_RespectsGameweekBound(t *testing.T) {
	t.Parallel()

	provider := &stubStatsProvider{bundles: map[int]ExternalLiveBundle{
		4: {
			GameweekID: 4,
			Elements: []ExternalLiveElement{
				{PlayerID: 10, Stats: ExternalLiveStats{Minutes: 90, TotalPoints: 2}},
			},
		},
		5: testLiveBundle(5),
	}}
	liveRepo := newStubLiveStatRepository()
	store := cache.NewStore(time.Minute)
	liveSync := NewLiveSyncService(provider, liveRepo, newStubExplainRepository(), store, time.Minute)
	for _, gameweekID := range []int{4, 5} {
		if _, err := liveSync.SyncGameweek(context.Background(), gameweekID); err != nil {
			t.Fatalf("sync gameweek %d: %v", gameweekID, err)
		}
	}

	summaryRepo := &stubSummaryRepository{}
	service := NewSummaryService(liveRepo, &stubPlayerRepository{players: testPlayers()}, summaryRepo, store, time.Minute)

	outcome, err := service.Recompute(context.Background(), 4)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if outcome.PlayerCount != 1 {
		t.Fatalf("expected only gameweek 4 rows aggregated, got=%d players", outcome.PlayerCount)
	}
	if summaryRepo.rows[0].PlayerID != 10 || summaryRepo.rows[0].TotalPoints != 2 {
		t.Fatalf("unexpected bounded summary: %+v", summaryRepo.rows[0])
	}
}

func TestSummaryService_Recompute_EmptyRangeClearsViewAndCache(t *testing.T) {
	t.Parallel()

	liveRepo := newStubLiveStatRepository()
	store := cache.NewStore(time.Minute)
	store.Set(context.Background(), summaryCacheKeyAll, "stale")

	summaryRepo := &stubSummaryRepository{}
	service := NewSummaryService(liveRepo, &stubPlayerRepository{}, summaryRepo, store, time.Minute)

	outcome, err := service.Recompute(context.Background(), 9)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if outcome.PlayerCount != 0 {
		t.Fatalf("expected empty recompute, got=%d", outcome.PlayerCount)
	}
	if summaryRepo.replaceCalls != 1 {
		t.Fatalf("expected the view replaced even when empty, got=%d calls", summaryRepo.replaceCalls)
	}
	if _, found := store.Get(context.Background(), summaryCacheKeyAll); found {
		t.Fatalf("expected stale cache key dropped for empty view")
	}
}

func TestSummaryService_GetPlayerSummary_NotFound(t *testing.T) {
	t.Parallel()

	service := NewSummaryService(newStubLiveStatRepository(), &stubPlayerRepository{}, &stubSummaryRepository{}, cache.NewStore(time.Minute), time.Minute)

	_, err := service.GetPlayerSummary(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got=%v", err)
	}
}
