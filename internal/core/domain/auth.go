package domain

import (
	"strings"
	"time"
)

// Permission is one capability an API key can carry.
type Permission string

const (
	PermissionRead  Permission = "read"  // GET access to cases, notes, lookup and export
	PermissionWrite Permission = "write" // create, update and delete cases and notes
	PermissionAdmin Permission = "admin" // wildcard, implies every other permission
)

// DefaultPermissions is granted when a key is issued without an explicit set.
var DefaultPermissions = []Permission{PermissionRead, PermissionWrite}

// ParsePermission maps a wire token onto the closed set of permissions.
func ParsePermission(s string) (Permission, error) {
	switch p := Permission(strings.ToLower(strings.TrimSpace(s))); p {
	case PermissionRead, PermissionWrite, PermissionAdmin:
		return p, nil
	default:
		return "", NewValidationError("permissions", "unknown permission "+s)
	}
}

// ParsePermissions parses every token and drops duplicates while keeping order.
func ParsePermissions(tokens []string) ([]Permission, error) {
	out := make([]Permission, 0, len(tokens))
	seen := make(map[Permission]bool, len(tokens))
	for _, t := range tokens {
		p, err := ParsePermission(t)
		if err != nil {
			return nil, err
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

type APIKey struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	KeyHash     string       `json:"-"` // SHA-256 hex of the secret (never store raw)
	Permissions []Permission `json:"permissions"`
	Active      bool         `json:"is_active"`
	CreatedBy   string       `json:"created_by"`
	CreatedAt   time.Time    `json:"created_at"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	LastUsed    *time.Time   `json:"last_used,omitempty"`
	UsageCount  int64        `json:"usage_count"`
}

// Expired reports whether the key is past its expiration at t.
func (k *APIKey) Expired(t time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(t)
}

// APIKeyPatch carries the mutable fields of an update. Nil fields are left alone.
// ClearExpiry removes the expiration and wins over ExpiresInDays.
type APIKeyPatch struct {
	Name          *string
	Description   *string
	Active        *bool
	Permissions   []Permission
	ExpiresInDays *int
	ClearExpiry   bool
}

// AuthMode tells how the caller of a request proved its identity.
type AuthMode string

const (
	AuthModeAPIKey  AuthMode = "api_key"
	AuthModeSession AuthMode = "session"
	AuthModeStatic  AuthMode = "static"
)

// Principal is the authenticated caller of a single request.
type Principal struct {
	UserID string
	Mode   AuthMode
	Key    *APIKey
}
