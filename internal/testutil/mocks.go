package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnavailable is returned by the in-memory fakes when Fail is set.
var ErrUnavailable = errors.New("backend unavailable")

// MockSessionStore implements ports.SessionStore in memory.
type MockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]string
	next     int
	Fail     bool
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{sessions: make(map[string]string)}
}

func (m *MockSessionStore) Create(_ context.Context, userID string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return "", ErrUnavailable
	}
	m.next++
	token := fmt.Sprintf("session-token-%d", m.next)
	m.sessions[token] = userID
	return token, nil
}

// Put registers token for userID directly.
func (m *MockSessionStore) Put(token, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = userID
}

func (m *MockSessionStore) Resolve(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return "", ErrUnavailable
	}
	return m.sessions[token], nil
}

func (m *MockSessionStore) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrUnavailable
	}
	delete(m.sessions, token)
	return nil
}

func (m *MockSessionStore) Ping(_ context.Context) error {
	if m.Fail {
		return ErrUnavailable
	}
	return nil
}

// MockRateLimiter implements ports.RateLimiter by counting calls per key,
// ignoring the window.
type MockRateLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	Fail   bool
}

func NewMockRateLimiter() *MockRateLimiter {
	return &MockRateLimiter{counts: make(map[string]int)}
}

func (m *MockRateLimiter) Exceeded(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return false, ErrUnavailable
	}
	m.counts[key]++
	return m.counts[key] > limit, nil
}
