// Package cache holds the Redis-backed adapters: dashboard sessions and the
// lookup rate limiter.
package cache

import (
	"github.com/redis/go-redis/v9"
)

// NewClient builds the shared Redis client used by every adapter here.
func NewClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
