package repique

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestRedisWarnGuardAcquiresOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	guard := NewRedisWarnGuard(client)

	ctx := context.Background()
	leadID := uuid.New()
	assignedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	ok, err := guard.TryAcquire(ctx, leadID, assignedAt, time.Minute)
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	if !ok {
		t.Fatal("first TryAcquire() = false, want true")
	}

	ok, err = guard.TryAcquire(ctx, leadID, assignedAt, time.Minute)
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	if ok {
		t.Fatal("second TryAcquire() = true, want false")
	}
}

func TestRedisWarnGuardNewAssignmentAcquiresAgain(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	guard := NewRedisWarnGuard(client)

	ctx := context.Background()
	leadID := uuid.New()
	first := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if ok, _ := guard.TryAcquire(ctx, leadID, first, time.Minute); !ok {
		t.Fatal("first assignment TryAcquire() = false, want true")
	}
	// Re-routing rewrites assigned_at, so the new assignment gets its own key.
	if ok, _ := guard.TryAcquire(ctx, leadID, first.Add(10*time.Minute), time.Minute); !ok {
		t.Fatal("second assignment TryAcquire() = false, want true")
	}
}

func TestRedisWarnGuardExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	guard := NewRedisWarnGuard(client)

	ctx := context.Background()
	leadID := uuid.New()
	assignedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if ok, _ := guard.TryAcquire(ctx, leadID, assignedAt, time.Second); !ok {
		t.Fatal("TryAcquire() = false, want true")
	}
	mr.FastForward(2 * time.Second)
	if ok, _ := guard.TryAcquire(ctx, leadID, assignedAt, time.Second); !ok {
		t.Fatal("TryAcquire() after expiry = false, want true")
	}
}
