package sweep

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type fakeLockStore struct {
	data map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{data: make(map[string]string)}
}

func (f *fakeLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := f.data[key]; exists {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

// Eval mirrors the server-side compare-and-delete the release script performs.
func (f *fakeLockStore) Eval(ctx context.Context, script string, keys []string, args ...any) (any, error) {
	if len(keys) != 1 || len(args) != 1 {
		return int64(0), fmt.Errorf("unexpected script call: keys=%d args=%d", len(keys), len(args))
	}
	if f.data[keys[0]] != fmt.Sprint(args[0]) {
		return int64(0), nil
	}
	delete(f.data, keys[0])
	return int64(1), nil
}

func TestRedisLockAcquireReleaseCycle(t *testing.T) {
	store := newFakeLockStore()
	ctx := context.Background()

	lock, err := NewRedisLock(store, "gtlobby:sweeper:lock:test", time.Minute)
	if err != nil {
		t.Fatalf("construct lock: %v", err)
	}
	ok, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquisition to succeed")
	}

	rival, err := NewRedisLock(store, "gtlobby:sweeper:lock:test", time.Minute)
	if err != nil {
		t.Fatalf("construct rival lock: %v", err)
	}
	ok, err = rival.Acquire(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected acquisition to fail while held")
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("unexpected error releasing: %v", err)
	}
	ok, err = rival.Acquire(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected acquisition to succeed after release")
	}
}

func TestRedisLockReleaseKeepsForeignOwner(t *testing.T) {
	store := newFakeLockStore()
	ctx := context.Background()

	lock, err := NewRedisLock(store, "gtlobby:sweeper:lock:test", time.Minute)
	if err != nil {
		t.Fatalf("construct lock: %v", err)
	}
	if _, err := lock.Acquire(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// simulate the TTL expiring and another replica taking over
	store.data["gtlobby:sweeper:lock:test"] = "other-owner"

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("unexpected error releasing: %v", err)
	}
	if got := store.data["gtlobby:sweeper:lock:test"]; got != "other-owner" {
		t.Fatalf("expected the new owner to keep the lock, got %q", got)
	}
}

func TestRedisLockReleaseWithoutOwnershipIsNoop(t *testing.T) {
	store := newFakeLockStore()

	lock, err := NewRedisLock(store, "gtlobby:sweeper:lock:test", time.Minute)
	if err != nil {
		t.Fatalf("construct lock: %v", err)
	}
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
