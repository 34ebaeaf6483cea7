package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/ports"
	"go.uber.org/zap"
)

var (
	_ ports.SessionStore = (*SessionStore)(nil)
	_ ports.RateLimiter  = (*RateLimiter)(nil)
)

func TestSessionStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(NewClient(mr.Addr(), "", 0))
	ctx := context.Background()

	token, err := store.Create(ctx, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(token) < 40 {
		t.Errorf("Expected a long opaque token, got %q", token)
	}
	if mr.Exists(sessionKeyPrefix + token) {
		t.Errorf("Raw token must not be used as the Redis key")
	}

	userID, err := store.Resolve(ctx, token)
	if err != nil || userID != "user-1" {
		t.Errorf("Expected user-1, got %q (%v)", userID, err)
	}

	if userID, _ := store.Resolve(ctx, "unknown-token"); userID != "" {
		t.Errorf("Expected unknown token to resolve to nothing, got %q", userID)
	}

	// Expiry
	mr.FastForward(2 * time.Hour)
	if userID, _ := store.Resolve(ctx, token); userID != "" {
		t.Errorf("Expected expired session, got %q", userID)
	}

	// Revoke
	token, _ = store.Create(ctx, "user-2", time.Hour)
	if err := store.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if userID, _ := store.Resolve(ctx, token); userID != "" {
		t.Errorf("Expected revoked session, got %q", userID)
	}

	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestSessionStore_Validation(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	store := NewSessionStore(NewClient(mr.Addr(), "", 0))

	if _, err := store.Create(context.Background(), "", time.Hour); !domain.IsValidation(err) {
		t.Errorf("Expected validation error for empty user, got %v", err)
	}
	if _, err := store.Create(context.Background(), "u", 0); !domain.IsValidation(err) {
		t.Errorf("Expected validation error for zero ttl, got %v", err)
	}
}

func TestSessionStore_Unavailable(t *testing.T) {
	mr, _ := miniredis.Run()
	store := NewSessionStore(NewClient(mr.Addr(), "", 0))
	mr.Close()

	if _, err := store.Resolve(context.Background(), "token"); err == nil {
		t.Error("Expected error when Redis is down")
	}
}

func TestRateLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to run miniredis: %v", err)
	}
	defer mr.Close()

	limiter := NewRateLimiter(NewClient(mr.Addr(), "", 0))
	now := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		exceeded, err := limiter.Exceeded(ctx, "key-1", 3, time.Minute)
		if err != nil {
			t.Fatalf("Exceeded failed: %v", err)
		}
		if exceeded {
			t.Fatalf("hit %d should be within limit", i)
		}
	}
	if exceeded, _ := limiter.Exceeded(ctx, "key-1", 3, time.Minute); !exceeded {
		t.Error("4th hit should exceed the limit")
	}
	if exceeded, _ := limiter.Exceeded(ctx, "key-2", 3, time.Minute); exceeded {
		t.Error("other keys count separately")
	}

	// Next window starts from zero.
	now = now.Add(time.Minute)
	if exceeded, _ := limiter.Exceeded(ctx, "key-1", 3, time.Minute); exceeded {
		t.Error("new window should reset the counter")
	}

	// Counters expire with their window.
	for _, k := range mr.Keys() {
		if ttl := mr.TTL(k); ttl <= 0 || ttl > time.Minute {
			t.Errorf("key %s has ttl %v", k, ttl)
		}
	}

	if exceeded, err := limiter.Exceeded(ctx, "key-1", 0, time.Minute); exceeded || err != nil {
		t.Errorf("a zero limit disables limiting, got %v, %v", exceeded, err)
	}
}

func TestRateLimiter_Unavailable(t *testing.T) {
	mr, _ := miniredis.Run()
	limiter := NewRateLimiter(NewClient(mr.Addr(), "", 0))
	mr.Close()

	if _, err := limiter.Exceeded(context.Background(), "k", 1, time.Minute); err == nil {
		t.Error("Expected error when Redis is down")
	}
}

func TestWaitReady(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to run miniredis: %v", err)
	}
	defer mr.Close()

	if err := WaitReady(context.Background(), NewClient(mr.Addr(), "", 0), time.Second, zap.NewNop()); err != nil {
		t.Errorf("WaitReady failed: %v", err)
	}

	addr := mr.Addr()
	mr.Close()
	if err := WaitReady(context.Background(), NewClient(addr, "", 0), 500*time.Millisecond, zap.NewNop()); err == nil {
		t.Errorf("Expected an error for an unreachable server")
	}
}
