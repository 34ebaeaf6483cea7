package cache

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "clinicrm:session:"

// SessionStore implements ports.SessionStore on Redis. Tokens are stored
// under their SHA-256 digest with the user id as value and expire on their own.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return sessionKeyPrefix + hex.EncodeToString(sum[:])
}

// Create mints a new opaque token bound to userID for ttl.
func (s *SessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", domain.NewValidationError("user_id", "is required")
	}
	if ttl <= 0 {
		return "", domain.NewValidationError("ttl", "must be positive")
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(b)

	if err := s.client.Set(ctx, sessionKey(token), userID, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session in Redis: %w", err)
	}
	return token, nil
}

// Resolve returns the user id bound to token, or "" when the session is
// unknown or expired.
func (s *SessionStore) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", nil
	}
	userID, err := s.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session from Redis: %w", err)
	}
	return userID, nil
}

func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}
	return nil
}

func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
