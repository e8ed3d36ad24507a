package cache

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/matchpulse/livesync/internal/platform/resilience"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is an in-process cache with per-key TTL. It is an optimization
// layer only: callers must treat the durable store as authoritative and
// never depend on a key being present.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	flight     resilience.SingleFlight
	populating sync.WaitGroup
}

func NewStore(defaultTTL time.Duration) *Store {
	return &Store{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
	}
}

func (s *Store) Get(_ context.Context, key string) (any, bool) {
	if key == "" {
		return nil, false
	}

	now := time.Now()
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

func (s *Store) Set(ctx context.Context, key string, value any) {
	s.SetWithTTL(ctx, key, value, s.defaultTTL)
}

// SetWithTTL replaces the full key contents in one step, so a
// concurrent reader sees either the old value or the new one, never a
// mix. A ttl <= 0 falls back to the store default.
func (s *Store) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	if key == "" {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	expiresAt := time.Time{}
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry{
		value:     value,
		expiresAt: expiresAt,
	}
	s.mu.Unlock()
}

func (s *Store) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *Store) DeletePrefix(_ context.Context, prefix string) {
	if prefix == "" {
		return
	}

	s.mu.Lock()
	for key := range s.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
}

// GetOrLoad returns the cached value for key, or runs loader on a miss.
// Concurrent misses for the same key share one loader call. The loaded
// value is returned to the caller directly; cache population happens off
// the request path and is purely best effort.
func (s *Store) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		if cached, ok := s.Get(ctx, key); ok {
			return cached, nil
		}

		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}

		// Empty result sets stay out of the cache, so key absence always
		// means "not cached" and rows that appear later are picked up on
		// the next read.
		if !isEmptyResult(loaded) {
			s.populating.Add(1)
			go func() {
				defer s.populating.Done()
				s.SetWithTTL(context.Background(), key, loaded, ttl)
			}()
		}

		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

func isEmptyResult(value any) bool {
	if value == nil {
		return true
	}
	switch rv := reflect.ValueOf(value); rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// WaitPending blocks until in-flight asynchronous populations finish.
// Called on shutdown so a terminating worker does not drop writes.
func (s *Store) WaitPending() {
	s.populating.Wait()
}
