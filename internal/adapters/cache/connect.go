package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/poyrazK/clinicrm/internal/infrastructure/retry"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// WaitReady pings client with backoff until Redis answers or timeout elapses.
func WaitReady(ctx context.Context, client *redis.Client, timeout time.Duration, logger *zap.Logger) error {
	err := retry.Startup(ctx, timeout, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not ready, retrying", zap.String("addr", client.Options().Addr), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}
