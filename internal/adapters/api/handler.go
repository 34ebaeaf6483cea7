package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services groups the application services the HTTP layer calls into.
type Services struct {
	Cases  ports.CaseService
	Notes  ports.NoteService
	Lookup ports.LookupService
	Export ports.ExportService
	Dialer ports.DialerService
	Keys   ports.APIKeyService
	Health ports.HealthChecker
}

// APIHandler serves the case management, lookup and key management API.
type APIHandler struct {
	svc          Services
	auth         *Authenticator
	sessions     ports.SessionStore
	limiter      ports.RateLimiter
	lookupLimit  int
	secureCookie bool
	now          func() time.Time
	logger       *zap.Logger
}

type Option func(*APIHandler)

// WithLookupRateLimit caps lookups per principal per minute.
func WithLookupRateLimit(limiter ports.RateLimiter, perMinute int) Option {
	return func(h *APIHandler) {
		h.limiter = limiter
		h.lookupLimit = perMinute
	}
}

// WithSessions enables logout against store.
func WithSessions(store ports.SessionStore, secureCookie bool) Option {
	return func(h *APIHandler) {
		h.sessions = store
		h.secureCookie = secureCookie
	}
}

// WithClock replaces time.Now for export file names.
func WithClock(now func() time.Time) Option {
	return func(h *APIHandler) { h.now = now }
}

// NewAPIHandler creates and returns a new APIHandler instance.
func NewAPIHandler(svc Services, auth *Authenticator, logger *zap.Logger, opts ...Option) *APIHandler {
	h := &APIHandler{svc: svc, auth: auth, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the API routes with the provided ServeMux.
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	// Public Routes
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /metrics", h.Metrics)

	authn := h.auth.Middleware
	read := h.auth.Require(domain.PermissionRead)
	write := h.auth.Require(domain.PermissionWrite)
	admin := h.auth.Require(domain.PermissionAdmin)
	limited := RateLimit(h.limiter, "lookup", h.lookupLimit, h.logger)

	route := func(pattern string, perm func(http.Handler) http.Handler, fn http.HandlerFunc) {
		mux.Handle(pattern, Instrument(pattern, authn(perm(fn))))
	}

	route("GET /api/lookup", read, limitedFunc(limited, h.LookupGet))
	route("POST /api/lookup", read, limitedFunc(limited, h.LookupPost))

	route("GET /api/cases", read, h.ListCases)
	route("GET /api/cases/{id}", read, h.GetCase)
	route("POST /api/cases", write, h.CreateCase)
	route("PUT /api/cases/{id}", write, h.UpdateCase)
	route("PATCH /api/cases/{id}", write, h.UpdateCase)
	route("PUT /api/cases", write, h.UpdateCase)
	route("PATCH /api/cases", write, h.UpdateCase)
	route("DELETE /api/cases/{id}", write, h.DeleteCase)
	route("DELETE /api/cases", write, h.DeleteCase)

	route("GET /api/notes", read, h.ListNotes)
	route("POST /api/notes", write, h.CreateNote)
	route("PUT /api/notes/{id}", write, h.UpdateNote)
	route("PUT /api/notes", write, h.UpdateNote)
	route("DELETE /api/notes/{id}", write, h.DeleteNote)
	route("DELETE /api/notes", write, h.DeleteNote)

	route("GET /api/export", read, h.ExportGet)
	route("POST /api/export", read, h.ExportPost)
	route("POST /api/dialer", read, h.DialerLeads)

	route("GET /api/api-keys", admin, h.ListAPIKeys)
	route("POST /api/api-keys", admin, h.CreateAPIKey)
	route("PUT /api/api-keys/{id}", admin, h.UpdateAPIKey)
	route("PUT /api/api-keys", admin, h.UpdateAPIKey)
	route("DELETE /api/api-keys/{id}", admin, h.DeleteAPIKey)
	route("DELETE /api/api-keys", admin, h.DeleteAPIKey)

	mux.Handle("DELETE /api/session", Instrument("DELETE /api/session", authn(http.HandlerFunc(h.Logout))))
}

func limitedFunc(mw func(http.Handler) http.Handler, fn http.HandlerFunc) http.HandlerFunc {
	return mw(fn).ServeHTTP
}

// Metrics handles Prometheus metrics scraping requests.
func (h *APIHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// HealthCheck handles health check requests.
func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "UP"
	details := make(map[string]string)
	if h.svc.Health != nil {
		for name, checkErr := range h.svc.Health.HealthCheck(r.Context()) {
			if checkErr != nil {
				status = "DEGRADED"
				details[name] = checkErr.Error()
			} else {
				details[name] = "OK"
			}
		}
	}

	code := http.StatusOK
	if status == "DEGRADED" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, code, map[string]interface{}{
		"status":  status,
		"details": details,
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", zap.Error(err))
	}
}

// writeError maps err onto a status code. Errors outside the domain taxonomy
// are logged and reported as an opaque 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		ve *domain.ValidationError
		ae *domain.AuthorizationError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, logger, http.StatusBadRequest, errorBody{Error: "Invalid request", Message: ve.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, logger, http.StatusNotFound, errorBody{Error: "Not found", Message: err.Error()})
	case errors.As(err, &ae):
		code, title := http.StatusUnauthorized, "Unauthorized"
		if ae.Forbidden {
			code, title = http.StatusForbidden, "Forbidden"
		}
		writeJSON(w, logger, code, errorBody{Error: title, Message: ae.Reason})
	default:
		logger.Error("request failed", zap.Error(err))
		writeJSON(w, logger, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return nil
}

// int64Param reads a numeric id from the path, falling back to the query.
func int64Param(r *http.Request, name, field string) (int64, error) {
	raw := r.PathValue(name)
	if raw == "" {
		raw = r.URL.Query().Get(name)
	}
	if raw == "" {
		return 0, domain.NewValidationError(field, "is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(field, "must be a positive integer")
	}
	return id, nil
}

func callerID(r *http.Request) string {
	if p, ok := PrincipalFrom(r.Context()); ok {
		return p.UserID
	}
	return ""
}
