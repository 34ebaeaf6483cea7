package ports

import (
	"context"
	"io"
	"time"

	"github.com/poyrazK/clinicrm/internal/core/domain"
)

type CaseRepository interface {
	ListCases(ctx context.Context, filters domain.CaseFilters) ([]domain.Case, error)
	GetCase(ctx context.Context, id int64) (*domain.Case, error)
	CreateCase(ctx context.Context, c *domain.Case) error
	UpdateCase(ctx context.Context, id int64, update domain.CaseUpdate) (*domain.Case, error)
	DeleteCase(ctx context.Context, id int64) error
	// FindCasesByPhone returns the broad first-phase candidates: cases with a
	// phone field ending in suffix or normalizing to one of variations,
	// newest first.
	FindCasesByPhone(ctx context.Context, suffix string, variations []string) ([]domain.Case, error)
	ListExportRows(ctx context.Context, filters domain.CaseFilters) ([]domain.ExportRow, error)
	ListDialerCandidates(ctx context.Context, campaignTag string) ([]domain.Case, error)
}

type NoteRepository interface {
	ListNotes(ctx context.Context, caseID int64) ([]domain.Note, error)
	CreateNote(ctx context.Context, note *domain.Note) error
	UpdateNote(ctx context.Context, id int64, userID string, content string) (*domain.Note, error)
	DeleteNote(ctx context.Context, id int64, userID string) error
}

type APIKeyRepository interface {
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context, owner string) ([]domain.APIKey, error)
	UpdateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKey(ctx context.Context, id string, owner string) (*domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string, owner string) error
	TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error
}

// Repository is the full storage surface backed by one database.
type Repository interface {
	CaseRepository
	NoteRepository
	APIKeyRepository
	Ping(ctx context.Context) error
}

// SessionStore resolves dashboard session tokens to user ids.
type SessionStore interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
	Ping(ctx context.Context) error
}

// RateLimiter reports whether key has exceeded limit within window.
type RateLimiter interface {
	Exceeded(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type CaseService interface {
	ListCases(ctx context.Context, filters domain.CaseFilters) ([]domain.Case, error)
	GetCase(ctx context.Context, id int64) (*domain.Case, error)
	CreateCase(ctx context.Context, c *domain.Case) error
	UpdateCase(ctx context.Context, id int64, update domain.CaseUpdate) (*domain.Case, error)
	DeleteCase(ctx context.Context, id int64) error
}

type NoteService interface {
	ListNotes(ctx context.Context, caseID int64) ([]domain.Note, error)
	CreateNote(ctx context.Context, caseID int64, userID, content string) (*domain.Note, error)
	UpdateNote(ctx context.Context, id int64, userID, content string) (*domain.Note, error)
	DeleteNote(ctx context.Context, id int64, userID string) error
}

type LookupService interface {
	Lookup(ctx context.Context, phone string) (*domain.LookupResult, error)
}

type ExportService interface {
	ExportCSV(ctx context.Context, filters domain.CaseFilters, w io.Writer) (int, error)
}

type DialerService interface {
	Leads(ctx context.Context, campaignTag string) ([]domain.DialerLead, error)
}

type APIKeyService interface {
	Create(ctx context.Context, owner string, req CreateKeyRequest) (string, *domain.APIKey, error)
	List(ctx context.Context, owner string) ([]domain.APIKey, error)
	Update(ctx context.Context, owner, id string, patch domain.APIKeyPatch) (*domain.APIKey, error)
	Delete(ctx context.Context, owner, id string) error
	Authenticate(ctx context.Context, secret string) (*domain.APIKey, error)
	Allows(key *domain.APIKey, required domain.Permission) bool
}

// CreateKeyRequest is the input of APIKeyService.Create.
type CreateKeyRequest struct {
	Name          string
	Description   string
	ExpiresInDays int
	Permissions   []domain.Permission
	Kind          string
}

// HealthChecker probes one dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) map[string]error
}
