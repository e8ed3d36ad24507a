package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_UsesSingleFlight(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "same-key", time.Minute, loader)
			if err != nil {
				errCh <- err
				return
			}
			if got, _ := v.(string); got != "value" {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_PopulatesCacheAfterMiss(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return "cached", nil
	}

	value, err := store.GetOrLoad(context.Background(), "k", time.Minute, loader)
	if err != nil {
		t.Fatalf("first GetOrLoad error: %v", err)
	}
	if got, _ := value.(string); got != "cached" {
		t.Fatalf("loaded value = %v, want cached", value)
	}

	// Population happens off the request path; drain it before asserting.
	store.WaitPending()

	cached, ok := store.Get(context.Background(), "k")
	if !ok {
		t.Fatal("expected key to be populated after miss")
	}
	if got, _ := cached.(string); got != "cached" {
		t.Fatalf("cached value = %v, want cached", cached)
	}

	if _, err := store.GetOrLoad(context.Background(), "k", time.Minute, loader); err != nil {
		t.Fatalf("second GetOrLoad error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_LoaderErrorIsNotCached(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, errLoaderFailed
	}

	if _, err := store.GetOrLoad(context.Background(), "k", time.Minute, loader); !errors.Is(err, errLoaderFailed) {
		t.Fatalf("expected loader error, got %v", err)
	}
	store.WaitPending()
	if _, ok := store.Get(context.Background(), "k"); ok {
		t.Fatal("failed load must not be cached")
	}
	if _, err := store.GetOrLoad(context.Background(), "k", time.Minute, loader); !errors.Is(err, errLoaderFailed) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("loader called %d times, want 2", got)
	}
}

func TestStore_GetOrLoad_EmptyResultIsNotCached(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return []string{}, nil
	}

	value, err := store.GetOrLoad(context.Background(), "k", time.Minute, loader)
	if err != nil {
		t.Fatalf("first GetOrLoad error: %v", err)
	}
	if rows, _ := value.([]string); len(rows) != 0 {
		t.Fatalf("loaded value = %v, want empty", value)
	}

	store.WaitPending()
	if _, ok := store.Get(context.Background(), "k"); ok {
		t.Fatal("empty result must not be cached")
	}

	// Rows that appear later are seen on the very next read.
	if _, err := store.GetOrLoad(context.Background(), "k", time.Minute, loader); err != nil {
		t.Fatalf("second GetOrLoad error: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("loader called %d times, want 2", got)
	}
}

func TestStore_SetWithTTL_ExpiresEntries(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	store.SetWithTTL(context.Background(), "short", "v", 10*time.Millisecond)

	if _, ok := store.Get(context.Background(), "short"); !ok {
		t.Fatal("expected entry before expiry")
	}
	time.Sleep(25 * time.Millisecond)
	if _, ok := store.Get(context.Background(), "short"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestStore_DeletePrefix(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	store.Set(context.Background(), "live:gw:5", "a")
	store.Set(context.Background(), "live:gw:6", "b")
	store.Set(context.Background(), "explain:gw:5", "c")

	store.DeletePrefix(context.Background(), "live:gw:")

	if _, ok := store.Get(context.Background(), "live:gw:5"); ok {
		t.Fatal("expected live:gw:5 to be deleted")
	}
	if _, ok := store.Get(context.Background(), "live:gw:6"); ok {
		t.Fatal("expected live:gw:6 to be deleted")
	}
	if _, ok := store.Get(context.Background(), "explain:gw:5"); !ok {
		t.Fatal("expected explain:gw:5 to survive")
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")
var errLoaderFailed = errors.New("loader failed")
