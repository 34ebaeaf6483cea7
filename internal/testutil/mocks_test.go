package testutil

import (
	"context"
	"testing"
	"time"
)

func TestMockSessionStore(t *testing.T) {
	ctx := context.Background()
	s := NewMockSessionStore()

	token, err := s.Create(ctx, "user-1", time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got, _ := s.Resolve(ctx, token); got != "user-1" {
		t.Errorf("expected user-1, got %q", got)
	}
	_ = s.Revoke(ctx, token)
	if got, _ := s.Resolve(ctx, token); got != "" {
		t.Errorf("expected revoked session, got %q", got)
	}

	s.Fail = true
	if _, err := s.Resolve(ctx, token); err == nil {
		t.Error("expected error from failing store")
	}
	if err := s.Ping(ctx); err == nil {
		t.Error("expected ping error from failing store")
	}
}

func TestMockRateLimiter(t *testing.T) {
	ctx := context.Background()
	l := NewMockRateLimiter()

	for i := 0; i < 2; i++ {
		if exceeded, _ := l.Exceeded(ctx, "k", 2, time.Minute); exceeded {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}
	if exceeded, _ := l.Exceeded(ctx, "k", 2, time.Minute); !exceeded {
		t.Error("third call should exceed the limit")
	}
	if exceeded, _ := l.Exceeded(ctx, "other", 2, time.Minute); exceeded {
		t.Error("keys must be counted separately")
	}

	l.Fail = true
	if _, err := l.Exceeded(ctx, "k", 2, time.Minute); err == nil {
		t.Error("expected error from failing limiter")
	}
}
