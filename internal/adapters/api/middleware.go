package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/ports"
	"github.com/poyrazK/clinicrm/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

type contextKey string

const CtxPrincipal contextKey = "principal"

// StaticUserID owns everything created through the static key.
const StaticUserID = "system"

// PrincipalFrom returns the caller attached by Authenticator.
func PrincipalFrom(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(CtxPrincipal).(*domain.Principal)
	return p, ok && p != nil
}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, CtxPrincipal, p)
}

// Authenticator resolves the caller of a request. An API key (Authorization
// Bearer or X-API-Key) takes precedence over a session cookie.
type Authenticator struct {
	keys       ports.APIKeyService
	sessions   ports.SessionStore
	staticKey  string
	cookieName string
	logger     *zap.Logger
}

func NewAuthenticator(keys ports.APIKeyService, sessions ports.SessionStore, staticKey, cookieName string, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		keys:       keys,
		sessions:   sessions,
		staticKey:  staticKey,
		cookieName: cookieName,
		logger:     logger,
	}
}

// CookieName is the name of the session cookie this authenticator reads.
func (a *Authenticator) CookieName() string { return a.cookieName }

// presentedKey extracts an API key from the request headers. ok is false when
// no key header is present at all.
func presentedKey(r *http.Request) (key string, ok bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		if !strings.HasPrefix(h, "Bearer ") {
			return "", true
		}
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")), true
	}
	if h := r.Header.Get("X-API-Key"); h != "" {
		return strings.TrimSpace(h), true
	}
	return "", false
}

// Authenticate returns the principal for r or an AuthorizationError.
func (a *Authenticator) Authenticate(r *http.Request) (*domain.Principal, error) {
	if secret, ok := presentedKey(r); ok {
		return a.authenticateKey(r.Context(), secret)
	}

	if c, err := r.Cookie(a.cookieName); err == nil && c.Value != "" && a.sessions != nil {
		userID, err := a.sessions.Resolve(r.Context(), c.Value)
		if err != nil {
			metrics.AuthAttempts.WithLabelValues(string(domain.AuthModeSession), "error").Inc()
			return nil, err
		}
		if userID == "" {
			metrics.AuthAttempts.WithLabelValues(string(domain.AuthModeSession), "rejected").Inc()
			return nil, domain.Unauthorized("session expired or unknown")
		}
		metrics.AuthAttempts.WithLabelValues(string(domain.AuthModeSession), "ok").Inc()
		return &domain.Principal{UserID: userID, Mode: domain.AuthModeSession}, nil
	}

	metrics.AuthAttempts.WithLabelValues("none", "rejected").Inc()
	return nil, domain.Unauthorized("API key or session required")
}

func (a *Authenticator) authenticateKey(ctx context.Context, secret string) (*domain.Principal, error) {
	if secret == "" {
		metrics.AuthAttempts.WithLabelValues(string(domain.AuthModeAPIKey), "rejected").Inc()
		return nil, domain.Unauthorized("missing or invalid authorization header")
	}

	if a.staticKey != "" && subtle.ConstantTimeCompare([]byte(secret), []byte(a.staticKey)) == 1 {
		metrics.AuthAttempts.WithLabelValues(string(domain.AuthModeStatic), "ok").Inc()
		return &domain.Principal{UserID: StaticUserID, Mode: domain.AuthModeStatic}, nil
	}

	key, err := a.keys.Authenticate(ctx, secret)
	if err != nil {
		outcome := "error"
		if domain.IsAuthorization(err) {
			outcome = "rejected"
		}
		metrics.AuthAttempts.WithLabelValues(string(domain.AuthModeAPIKey), outcome).Inc()
		return nil, err
	}
	metrics.AuthAttempts.WithLabelValues(string(domain.AuthModeAPIKey), "ok").Inc()
	return &domain.Principal{UserID: key.CreatedBy, Mode: domain.AuthModeAPIKey, Key: key}, nil
}

// Middleware rejects unauthenticated requests and attaches the principal.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.Authenticate(r)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Allows reports whether p holds perm. Session and static principals hold
// every permission.
func (a *Authenticator) Allows(p *domain.Principal, perm domain.Permission) bool {
	if p == nil {
		return false
	}
	switch p.Mode {
	case domain.AuthModeSession, domain.AuthModeStatic:
		return true
	case domain.AuthModeAPIKey:
		return a.keys.Allows(p.Key, perm)
	default:
		return false
	}
}

// Require rejects principals lacking perm with 403.
func (a *Authenticator) Require(perm domain.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				writeError(w, a.logger, domain.Unauthorized("principal not found in context"))
				return
			}
			if !a.Allows(p, perm) {
				writeError(w, a.logger, domain.Forbidden("API key lacks "+string(perm)+" permission"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit caps requests per principal per minute. Limiter failures let the
// request through.
func RateLimit(limiter ports.RateLimiter, scope string, perMinute int, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || perMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":anonymous"
			if p, ok := PrincipalFrom(r.Context()); ok {
				key = scope + ":" + string(p.Mode) + ":" + p.UserID
				if p.Key != nil {
					key = scope + ":key:" + p.Key.ID
				}
			}

			exceeded, err := limiter.Exceeded(r.Context(), key, perMinute, time.Minute)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", zap.String("scope", scope), zap.Error(err))
			} else if exceeded {
				w.Header().Set("Retry-After", "60")
				writeJSON(w, logger, http.StatusTooManyRequests, errorBody{
					Error:   "Too many requests",
					Message: "Rate limit of " + strconv.Itoa(perMinute) + " requests per minute exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Instrument records request count and latency under route.
func Instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
