package counter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type storeFactory func(t *testing.T) (Store, func(time.Duration))

func newMemory(t *testing.T) (Store, func(time.Duration)) {
	t.Helper()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	store := NewMemoryStore(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})
	return store, func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
}

func newRedis(t *testing.T) (Store, func(time.Duration)) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr.FastForward
}

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": newMemory,
		"redis":  newRedis,
	}
}

func TestIncrWindowKeepsFirstExpiry(t *testing.T) {
	for name, build := range factories() {
		t.Run(name, func(t *testing.T) {
			store, advance := build(t)
			ctx := context.Background()

			for want := int64(1); want <= 3; want++ {
				got, err := store.IncrWindow(ctx, "k", time.Minute)
				if err != nil {
					t.Fatalf("incr: %v", err)
				}
				if got != want {
					t.Fatalf("incr = %d, want %d", got, want)
				}
				advance(10 * time.Second)
			}
			ttl, err := store.TTL(ctx, "k")
			if err != nil {
				t.Fatalf("ttl: %v", err)
			}
			if ttl <= 0 || ttl > 30*time.Second {
				t.Fatalf("expected the first window to keep running, got ttl %s", ttl)
			}

			advance(31 * time.Second)
			got, err := store.Get(ctx, "k")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got != 0 {
				t.Fatalf("expected expired key to read 0, got %d", got)
			}
		})
	}
}

func TestIncrWindowGivesOrphanKeyATTL(t *testing.T) {
	for name, build := range factories() {
		t.Run(name, func(t *testing.T) {
			store, advance := build(t)
			ctx := context.Background()

			// DecrBy leaves the key without a TTL.
			if _, err := store.DecrBy(ctx, "k", -5); err != nil {
				t.Fatalf("decrby: %v", err)
			}
			if ttl, _ := store.TTL(ctx, "k"); ttl != 0 {
				t.Fatalf("expected no ttl, got %s", ttl)
			}
			if got, err := store.IncrWindow(ctx, "k", time.Minute); err != nil || got != 6 {
				t.Fatalf("incr = %d, %v", got, err)
			}
			if ttl, _ := store.TTL(ctx, "k"); ttl <= 0 || ttl > time.Minute {
				t.Fatalf("expected ttl of one window, got %s", ttl)
			}
			advance(61 * time.Second)
			if got, _ := store.Get(ctx, "k"); got != 0 {
				t.Fatalf("expected key to expire, got %d", got)
			}
		})
	}
}

func TestIncrByWithTTLAndDecr(t *testing.T) {
	for name, build := range factories() {
		t.Run(name, func(t *testing.T) {
			store, _ := build(t)
			ctx := context.Background()

			total, err := store.IncrByWithTTL(ctx, "q", 700, time.Hour)
			if err != nil {
				t.Fatalf("incrby: %v", err)
			}
			if total != 700 {
				t.Fatalf("total = %d", total)
			}
			total, err = store.IncrByWithTTL(ctx, "q", 500, time.Hour)
			if err != nil {
				t.Fatalf("incrby: %v", err)
			}
			if total != 1200 {
				t.Fatalf("total = %d", total)
			}
			after, err := store.DecrBy(ctx, "q", 500)
			if err != nil {
				t.Fatalf("decrby: %v", err)
			}
			if after != 700 {
				t.Fatalf("after rollback = %d", after)
			}
			ttl, err := store.TTL(ctx, "q")
			if err != nil {
				t.Fatalf("ttl: %v", err)
			}
			if ttl <= 0 {
				t.Fatalf("expected ttl to be set")
			}
		})
	}
}

func TestGetMissingKey(t *testing.T) {
	for name, build := range factories() {
		t.Run(name, func(t *testing.T) {
			store, _ := build(t)
			got, err := store.Get(context.Background(), "missing")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got != 0 {
				t.Fatalf("expected 0, got %d", got)
			}
		})
	}
}

func TestMemoryStoreConcurrentIncr(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.IncrByWithTTL(ctx, "c", 2, time.Minute)
		}()
	}
	wg.Wait()
	got, _ := store.Get(ctx, "c")
	if got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
}
