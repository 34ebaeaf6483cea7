// Package apikey issues, hashes and verifies the bearer credentials used by
// non-browser callers. Only the SHA-256 digest of a secret is ever stored;
// the plaintext is handed to the creator once, at issuance.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poyrazK/clinicrm/internal/core/domain"
)

// Kind selects the shape of a generated secret.
type Kind string

const (
	KindSecure   Kind = "secure"   // 32 random bytes, base64url
	KindReadable Kind = "readable" // 16 random bytes, lowercase hex
	KindPrefixed Kind = "prefixed" // "<prefix>_" + readable
)

// DefaultPrefix tags prefixed secrets so their provenance is visible at a glance.
const DefaultPrefix = "clinicacrm"

const (
	secureBytes   = 32
	readableBytes = 16

	// DefaultPreviewChars is how many characters DisplayPreview keeps on each side.
	DefaultPreviewChars = 8

	minSecretLength = 16
)

// ParseKind maps a wire value onto a Kind. Empty selects KindSecure.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindSecure, nil
	case KindSecure, KindReadable, KindPrefixed:
		return k, nil
	default:
		return "", domain.NewValidationError("key_type", "must be one of secure, readable, prefixed")
	}
}

// GenerateSecret returns fresh key material of the given kind using the
// default prefix for KindPrefixed.
func GenerateSecret(kind Kind) (string, error) {
	return generate(kind, DefaultPrefix)
}

func generate(kind Kind, prefix string) (string, error) {
	switch kind {
	case KindSecure, "":
		b, err := randomBytes(secureBytes)
		if err != nil {
			return "", err
		}
		return base64.RawURLEncoding.EncodeToString(b), nil
	case KindReadable:
		b, err := randomBytes(readableBytes)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(b), nil
	case KindPrefixed:
		b, err := randomBytes(readableBytes)
		if err != nil {
			return "", err
		}
		return prefix + "_" + hex.EncodeToString(b), nil
	default:
		return "", domain.NewValidationError("key_type", fmt.Sprintf("unsupported key type %q", kind))
	}
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// Hash returns the hex SHA-256 digest stored in place of the secret.
func Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the digest of secret and compares it with storedHash in
// constant time. A malformed storedHash never verifies.
func Verify(secret, storedHash string) bool {
	want, err := hex.DecodeString(storedHash)
	if err != nil || len(want) != sha256.Size {
		return false
	}
	got := sha256.Sum256([]byte(secret))
	return subtle.ConstantTimeCompare(got[:], want) == 1
}

// CheckPermission reports whether key grants required at time now. Inactive
// and expired keys grant nothing; admin grants everything.
func CheckPermission(key *domain.APIKey, required domain.Permission, now time.Time) bool {
	if key == nil || !key.Active {
		return false
	}
	if key.Expired(now) {
		return false
	}
	for _, p := range key.Permissions {
		switch p {
		case domain.PermissionAdmin:
			return true
		case domain.PermissionRead, domain.PermissionWrite:
			if p == required {
				return true
			}
		}
	}
	return false
}

// DisplayPreview shortens a stored hash to first...last visibleChars so a UI
// can tell keys apart. Values of at most 2*visibleChars come back unchanged.
func DisplayPreview(hash string, visibleChars int) string {
	if visibleChars <= 0 {
		visibleChars = DefaultPreviewChars
	}
	if len(hash) <= visibleChars*2 {
		return hash
	}
	return hash[:visibleChars] + "..." + hash[len(hash)-visibleChars:]
}

var (
	base64Format    = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
	base64URLFormat = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	hexFormat       = regexp.MustCompile(`^[A-Fa-f0-9]+$`)
	prefixedFormat  = regexp.MustCompile(`^[a-z]+_[A-Fa-f0-9]+$`)
)

// ValidateFormat is a cheap shape check run before any storage round-trip.
func ValidateFormat(secret string) bool {
	if len(secret) < minSecretLength {
		return false
	}
	return base64Format.MatchString(secret) ||
		base64URLFormat.MatchString(secret) ||
		hexFormat.MatchString(secret) ||
		prefixedFormat.MatchString(secret)
}

// IssueOptions are the optional parameters of Manager.Issue.
type IssueOptions struct {
	Description   string
	ExpiresInDays int
	Permissions   []domain.Permission
	Kind          Kind
}

// Manager issues keys against an injectable clock.
type Manager struct {
	now    func() time.Time
	prefix string
}

type Option func(*Manager)

// WithClock replaces time.Now as the source of creation and evaluation time.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithPrefix sets the tag used by KindPrefixed secrets.
func WithPrefix(prefix string) Option {
	return func(m *Manager) {
		if prefix != "" {
			m.prefix = prefix
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{now: time.Now, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now returns the manager's current time in UTC.
func (m *Manager) Now() time.Time { return m.now().UTC() }

// Issue builds a new active key record for owner and returns the plaintext
// secret alongside it. The secret is not recoverable afterwards.
func (m *Manager) Issue(name, owner string, opts IssueOptions) (string, *domain.APIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, domain.NewValidationError("name", "is required")
	}
	if strings.TrimSpace(owner) == "" {
		return "", nil, domain.NewValidationError("created_by", "is required")
	}
	if opts.ExpiresInDays < 0 {
		return "", nil, domain.NewValidationError("expires_in_days", "must not be negative")
	}

	secret, err := generate(opts.Kind, m.prefix)
	if err != nil {
		return "", nil, err
	}

	perms := opts.Permissions
	if len(perms) == 0 {
		perms = append([]domain.Permission(nil), domain.DefaultPermissions...)
	}

	now := m.Now()
	key := &domain.APIKey{
		ID:          uuid.New().String(),
		Name:        name,
		KeyHash:     Hash(secret),
		Permissions: perms,
		Active:      true,
		CreatedBy:   owner,
		CreatedAt:   now,
		ExpiresAt:   m.ExpiryFromDays(opts.ExpiresInDays),
	}
	if d := strings.TrimSpace(opts.Description); d != "" {
		key.Description = &d
	}
	return secret, key, nil
}

// ExpiryFromDays returns now+days, or nil when days is not positive.
func (m *Manager) ExpiryFromDays(days int) *time.Time {
	if days <= 0 {
		return nil
	}
	t := m.Now().AddDate(0, 0, days)
	return &t
}

// Allows is CheckPermission evaluated at the manager's current time.
func (m *Manager) Allows(key *domain.APIKey, required domain.Permission) bool {
	return CheckPermission(key, required, m.Now())
}
