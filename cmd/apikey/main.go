package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/poyrazK/clinicrm/internal/adapters/cache"
	"github.com/poyrazK/clinicrm/internal/adapters/repository"
	"github.com/poyrazK/clinicrm/internal/core/apikey"
	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/ports"
	"github.com/poyrazK/clinicrm/internal/core/services"
	"github.com/poyrazK/clinicrm/internal/infrastructure/config"
	"github.com/poyrazK/clinicrm/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const usage = "expected 'create', 'list', 'revoke' or 'session' subcommands"

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New("clinicrm-apikey", cfg.Environment, "warn")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.SafeSync(log)

	ctx := context.Background()
	db, err := repository.Open(ctx, cfg.Database.URL, repository.PoolOptions{
		MaxOpenConns:   2,
		MaxIdleConns:   1,
		StartupTimeout: cfg.Database.StartupTimeout,
	}, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}()

	rdb := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
	}()

	repo := repository.NewPostgresRepository(db, log)
	keys := services.NewAPIKeyService(repo, apikey.NewManager(apikey.WithPrefix(cfg.Auth.KeyPrefix)), log)
	tool := &cli{keys: keys, sessions: cache.NewSessionStore(rdb), sessionTTL: cfg.Auth.SessionTTL}

	if err := tool.run(ctx, os.Args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logger.SafeSync(log)
		os.Exit(1)
	}
}

type cli struct {
	keys       ports.APIKeyService
	sessions   ports.SessionStore
	sessionTTL time.Duration
}

func (c *cli) run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 2 {
		return errors.New(usage)
	}

	switch args[1] {
	case "create":
		fs := flag.NewFlagSet("create", flag.ContinueOnError)
		fs.SetOutput(out)
		owner := fs.String("owner", "", "User ID that owns the key")
		name := fs.String("name", "", "Display name of the key")
		desc := fs.String("desc", "", "Optional description")
		days := fs.Int("days", 0, "Validity in days (0 never expires)")
		perms := fs.String("perms", "read,write", "Comma separated permissions (read, write, admin)")
		kind := fs.String("kind", string(apikey.KindSecure), "Key type (secure, readable, prefixed)")
		if err := fs.Parse(args[2:]); err != nil {
			return fmt.Errorf("failed to parse create flags: %w", err)
		}
		return c.create(ctx, out, *owner, *name, *desc, *days, *perms, *kind)
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		fs.SetOutput(out)
		owner := fs.String("owner", "", "User ID whose keys are listed")
		if err := fs.Parse(args[2:]); err != nil {
			return fmt.Errorf("failed to parse list flags: %w", err)
		}
		return c.list(ctx, out, *owner)
	case "revoke":
		fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
		fs.SetOutput(out)
		owner := fs.String("owner", "", "User ID that owns the key")
		id := fs.String("id", "", "API key ID to revoke")
		if err := fs.Parse(args[2:]); err != nil {
			return fmt.Errorf("failed to parse revoke flags: %w", err)
		}
		return c.revoke(ctx, out, *owner, *id)
	case "session":
		fs := flag.NewFlagSet("session", flag.ContinueOnError)
		fs.SetOutput(out)
		user := fs.String("user", "", "User ID the session belongs to")
		ttl := fs.Duration("ttl", c.sessionTTL, "Session lifetime")
		if err := fs.Parse(args[2:]); err != nil {
			return fmt.Errorf("failed to parse session flags: %w", err)
		}
		return c.session(ctx, out, *user, *ttl)
	default:
		return fmt.Errorf("unknown subcommand: %s", args[1])
	}
}

func splitPermissions(raw string) ([]domain.Permission, error) {
	var tokens []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return domain.ParsePermissions(tokens)
}

func (c *cli) create(ctx context.Context, out io.Writer, owner, name, desc string, days int, rawPerms, kind string) error {
	perms, err := splitPermissions(rawPerms)
	if err != nil {
		return err
	}
	secret, key, err := c.keys.Create(ctx, owner, ports.CreateKeyRequest{
		Name:          name,
		Description:   desc,
		ExpiresInDays: days,
		Permissions:   perms,
		Kind:          kind,
	})
	if err != nil {
		return err
	}

	expires := "never"
	if key.ExpiresAt != nil {
		expires = key.ExpiresAt.Format(time.RFC3339)
	}
	fmt.Fprintf(out, "API Key Created Successfully!\n")
	fmt.Fprintf(out, "---------------------------\n")
	fmt.Fprintf(out, "ID:          %s\n", key.ID)
	fmt.Fprintf(out, "Owner:       %s\n", key.CreatedBy)
	fmt.Fprintf(out, "Permissions: %s\n", joinPermissions(key.Permissions))
	fmt.Fprintf(out, "Expires:     %s\n", expires)
	fmt.Fprintf(out, "VALUE:       %s\n", secret)
	fmt.Fprintf(out, "---------------------------\n")
	fmt.Fprintf(out, "CAUTION: This is the only time the key will be shown.\n")
	return nil
}

func (c *cli) list(ctx context.Context, out io.Writer, owner string) error {
	keys, err := c.keys.List(ctx, owner)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "API Keys for: %s\n", owner)
	fmt.Fprintf(out, "%-36s %-15s %-20s %-19s %-8s %s\n", "ID", "Name", "Permissions", "Preview", "Status", "Uses")
	for _, k := range keys {
		status := "active"
		if !k.Active {
			status = "disabled"
		}
		fmt.Fprintf(out, "%-36s %-15s %-20s %-19s %-8s %d\n",
			k.ID, k.Name, joinPermissions(k.Permissions), apikey.DisplayPreview(k.KeyHash, 8), status, k.UsageCount)
	}
	return nil
}

func (c *cli) revoke(ctx context.Context, out io.Writer, owner, id string) error {
	if id == "" {
		return errors.New("ID is required for revocation")
	}
	if err := c.keys.Delete(ctx, owner, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "API Key %s revoked (deleted)\n", id)
	return nil
}

func (c *cli) session(ctx context.Context, out io.Writer, user string, ttl time.Duration) error {
	token, err := c.sessions.Create(ctx, user, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Session for %s valid for %s\n", user, ttl)
	fmt.Fprintf(out, "TOKEN: %s\n", token)
	return nil
}

func joinPermissions(perms []domain.Permission) string {
	s := make([]string, len(perms))
	for i, p := range perms {
		s[i] = string(p)
	}
	return strings.Join(s, ",")
}
