package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "clinicrm:ratelimit:"

// RateLimiter is a fixed-window counter. Each window gets its own key, so a
// counter never outlives the window it counts.
type RateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Exceeded counts one hit for key and reports whether the hit is over limit
// for the current window.
func (l *RateLimiter) Exceeded(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return false, nil
	}
	slot := l.now().UnixNano() / int64(window)
	redisKey := fmt.Sprintf("%s%s:%d", rateLimitKeyPrefix, key, slot)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit transaction: %w", err)
	}
	return incr.Val() > int64(limit), nil
}
