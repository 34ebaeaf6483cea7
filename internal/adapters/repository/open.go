package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/poyrazK/clinicrm/internal/infrastructure/retry"
	"go.uber.org/zap"
)

// PoolOptions sizes the database/sql pool.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	StartupTimeout  time.Duration
}

// Open connects to Postgres through the pgx stdlib driver and waits, with
// backoff, until the server answers a ping or StartupTimeout elapses.
func Open(ctx context.Context, url string, opts PoolOptions, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	err = retry.Startup(ctx, opts.StartupTimeout, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			logger.Warn("database not ready, retrying", zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}
