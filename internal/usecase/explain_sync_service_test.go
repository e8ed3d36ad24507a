package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/matchpulse/livesync/internal/platform/cache"
)

func TestExplainSyncService_SyncGameweek_AggregatesIdentifiers(t *testing.T) {
	t.Parallel()

	provider := &stubStatsProvider{bundles: map[int]ExternalLiveBundle{5: testLiveBundle(5)}}
	explainRepo := newStubExplainRepository()
	store := cache.NewStore(time.Minute)
	service := NewExplainSyncService(provider, explainRepo, store, time.Minute)

	outcome, err := service.SyncGameweek(context.Background(), 5)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if outcome.PlayerCount != 3 {
		t.Fatalf("expected three players, got=%d", outcome.PlayerCount)
	}

	records, err := explainRepo.ListByGameweek(context.Background(), 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected three records, got=%d", len(records))
	}
	for _, record := range records {
		switch record.PlayerID {
		case 10:
			if record.MinutesPoints != 2 || record.GoalsScoredPoints != 4 || record.AssistsPoints != 3 || record.BonusPoints != 2 {
				t.Fatalf("unexpected breakdown for player 10: %+v", record)
			}
			if record.TotalPoints != 11 {
				t.Fatalf("expected total 11 for player 10, got=%d", record.TotalPoints)
			}
		case 12:
			if record.MinutesPoints != 1 || record.YellowCardsPoints != -1 || record.TotalPoints != 0 {
				t.Fatalf("unexpected breakdown for player 12: %+v", record)
			}
		}
	}
}

func TestExplainSyncService_SyncGameweek_ProviderErrorLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	provider := &stubStatsProvider{err: fmt.Errorf("%w: connection refused", ErrProvider)}
	explainRepo := newStubExplainRepository()
	store := cache.NewStore(time.Minute)
	service := NewExplainSyncService(provider, explainRepo, store, time.Minute)

	_, err := service.SyncGameweek(context.Background(), 5)
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected ErrProvider, got=%v", err)
	}
	if rows, _ := explainRepo.ListByGameweek(context.Background(), 5); len(rows) != 0 {
		t.Fatalf("expected no rows after provider failure, got=%d", len(rows))
	}
	if _, found := store.Get(context.Background(), explainCacheKey(5)); found {
		t.Fatalf("expected cache untouched after provider failure")
	}
}

func TestExplainSyncService_SyncGameweek_EmptyPayloadClearsCache(t *testing.T) {
	t.Parallel()

	provider := &stubStatsProvider{bundles: map[int]ExternalLiveBundle{5: {GameweekID: 5}}}
	explainRepo := newStubExplainRepository()
	store := cache.NewStore(time.Minute)
	store.Set(context.Background(), explainCacheKey(5), []string{"stale"})
	service := NewExplainSyncService(provider, explainRepo, store, time.Minute)

	outcome, err := service.SyncGameweek(context.Background(), 5)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if outcome.PlayerCount != 0 {
		t.Fatalf("expected zero players, got=%d", outcome.PlayerCount)
	}
	if _, found := store.Get(context.Background(), explainCacheKey(5)); found {
		t.Fatalf("expected stale explain cache cleared on empty payload")
	}
}

func TestExplainSyncService_ListGameweekExplain_MissFallsBackToStore(t *testing.T) {
	t.Parallel()

	provider := &stubStatsProvider{bundles: map[int]ExternalLiveBundle{5: testLiveBundle(5)}}
	explainRepo := newStubExplainRepository()
	seedService := NewExplainSyncService(provider, explainRepo, cache.NewStore(time.Minute), time.Minute)
	if _, err := seedService.SyncGameweek(context.Background(), 5); err != nil {
		t.Fatalf("seed sync: %v", err)
	}

	coldStore := cache.NewStore(time.Minute)
	service := NewExplainSyncService(provider, explainRepo, coldStore, time.Minute)

	records, err := service.ListGameweekExplain(context.Background(), 5)
	if err != nil {
		t.Fatalf("list after cache miss: %v", err)
	}
	stored, _ := explainRepo.ListByGameweek(context.Background(), 5)
	if len(records) != len(stored) {
		t.Fatalf("cache miss read disagrees with store: %d vs %d", len(records), len(stored))
	}

	coldStore.WaitPending()
	if _, found := coldStore.Get(context.Background(), explainCacheKey(5)); !found {
		t.Fatalf("expected cache repopulated after miss")
	}
}

func TestExplainSyncService_RejectsNonPositiveGameweek(t *testing.T) {
	t.Parallel()

	service := NewExplainSyncService(&stubStatsProvider{}, newStubExplainRepository(), cache.NewStore(time.Minute), time.Minute)

	if _, err := service.SyncGameweek(context.Background(), 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput from sync, got=%v", err)
	}
	if _, err := service.ListGameweekExplain(context.Background(), -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput from list, got=%v", err)
	}
}
