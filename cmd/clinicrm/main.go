package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poyrazK/clinicrm/internal/adapters/api"
	"github.com/poyrazK/clinicrm/internal/adapters/cache"
	"github.com/poyrazK/clinicrm/internal/adapters/repository"
	"github.com/poyrazK/clinicrm/internal/core/apikey"
	"github.com/poyrazK/clinicrm/internal/core/phone"
	"github.com/poyrazK/clinicrm/internal/core/ports"
	"github.com/poyrazK/clinicrm/internal/core/services"
	"github.com/poyrazK/clinicrm/internal/infrastructure/config"
	"github.com/poyrazK/clinicrm/internal/infrastructure/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const poolStatsInterval = 15 * time.Second

func main() {
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New("clinicrm", cfg.Environment, cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.SafeSync(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", zap.Error(err))
		logger.SafeSync(log)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := repository.Open(ctx, cfg.Database.URL, repository.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		StartupTimeout:  cfg.Database.StartupTimeout,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}()

	repo := repository.NewPostgresRepository(db, log.Named("postgres"))
	if cfg.Database.Migrate {
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		log.Info("database schema applied")
	}

	rdb := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
	}()
	if err := cache.WaitReady(ctx, rdb, cfg.Database.StartupTimeout, log); err != nil {
		return err
	}
	sessions := cache.NewSessionStore(rdb)
	limiter := cache.NewRateLimiter(rdb)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      newHandler(cfg, repo, sessions, limiter, log),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("management API listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(poolStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				repo.RecordPoolStats()
			}
		}
	})
	return g.Wait()
}

// newHandler wires the services and routes over already-connected stores.
func newHandler(cfg *config.Config, repo ports.Repository, sessions ports.SessionStore, limiter ports.RateLimiter, log *zap.Logger) http.Handler {
	mgr := apikey.NewManager(apikey.WithPrefix(cfg.Auth.KeyPrefix))
	keys := services.NewAPIKeyService(repo, mgr, log.Named("apikeys"))

	svc := api.Services{
		Cases:  services.NewCaseService(repo, log.Named("cases")),
		Notes:  services.NewNoteService(repo, log.Named("notes")),
		Lookup: services.NewLookupService(repo, phone.NewMatcher(cfg.Lookup.CountryCodes), cfg.Lookup.BaseURL, cfg.Lookup.Locale, log.Named("lookup")),
		Export: services.NewExportService(repo, log.Named("export")),
		Dialer: services.NewDialerService(repo, log.Named("dialer")),
		Keys:   keys,
		Health: services.NewHealthService(map[string]services.Pinger{
			"postgres": repo,
			"redis":    sessions,
		}),
	}

	if cfg.Auth.StaticAPIKey == "" {
		log.Warn("no static API key configured; only issued keys and sessions can authenticate")
	}
	auth := api.NewAuthenticator(keys, sessions, cfg.Auth.StaticAPIKey, cfg.Auth.SessionCookie, log.Named("auth"))
	handler := api.NewAPIHandler(svc, auth, log.Named("api"),
		api.WithLookupRateLimit(limiter, cfg.Lookup.RateLimit),
		api.WithSessions(sessions, cfg.Auth.SecureCookie),
	)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux
}
