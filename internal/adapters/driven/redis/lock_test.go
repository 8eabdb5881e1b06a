package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr, func() {
		client.Close()
		mr.Close()
	}
}

func TestLock_OwnerUnique(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	if NewLock(client).Owner() == NewLock(client).Owner() {
		t.Error("expected unique owners")
	}
}

func TestLock_AcquireExclusive(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	acquired, err := lock1.Acquire(ctx, "state-sweeper", 10*time.Second)
	if err != nil || !acquired {
		t.Fatalf("expected first acquire to succeed, got %v (%v)", acquired, err)
	}

	acquired, err = lock2.Acquire(ctx, "state-sweeper", 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("expected second acquire to fail")
	}

	// Not reentrant
	acquired, _ = lock1.Acquire(ctx, "state-sweeper", 10*time.Second)
	if acquired {
		t.Error("expected reentrant acquire to fail")
	}

	// Different names are independent
	acquired, _ = lock2.Acquire(ctx, "other", 10*time.Second)
	if !acquired {
		t.Error("expected to acquire a different lock name")
	}
}

func TestLock_ExpiresWithTTL(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	if ok, _ := lock1.Acquire(ctx, "state-sweeper", 5*time.Second); !ok {
		t.Fatal("expected acquire")
	}
	mr.FastForward(6 * time.Second)

	if ok, _ := lock2.Acquire(ctx, "state-sweeper", 5*time.Second); !ok {
		t.Error("expected acquire after TTL elapsed")
	}
}

func TestLock_Release(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock1 := NewLock(client)
	lock2 := NewLock(client)
	ctx := context.Background()

	// Release without acquire is fine
	if err := lock1.Release(ctx, "state-sweeper"); err != nil {
		t.Errorf("unexpected error releasing unheld lock: %v", err)
	}

	if ok, _ := lock1.Acquire(ctx, "state-sweeper", 10*time.Second); !ok {
		t.Fatal("expected acquire")
	}

	// Another owner cannot release it
	if err := lock2.Release(ctx, "state-sweeper"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok, _ := lock2.Acquire(ctx, "state-sweeper", 10*time.Second); ok {
		t.Error("expected lock to still be held by lock1")
	}

	if err := lock1.Release(ctx, "state-sweeper"); err != nil {
		t.Fatalf("unexpected error on release: %v", err)
	}
	if ok, _ := lock2.Acquire(ctx, "state-sweeper", 10*time.Second); !ok {
		t.Error("expected acquire after release")
	}
}

func TestLock_Ping(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)
	if err := lock.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}

	mr.Close()
	if err := lock.Ping(context.Background()); err == nil {
		t.Error("expected ping error with server down")
	}
}
