package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/poyrazK/clinicrm/internal/core/apikey"
	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/ports"
	"github.com/poyrazK/clinicrm/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

type apiKeyService struct {
	repo   ports.APIKeyRepository
	mgr    *apikey.Manager
	logger *zap.Logger
}

func NewAPIKeyService(repo ports.APIKeyRepository, mgr *apikey.Manager, logger *zap.Logger) ports.APIKeyService {
	return &apiKeyService{repo: repo, mgr: mgr, logger: logger}
}

func (s *apiKeyService) Create(ctx context.Context, owner string, req ports.CreateKeyRequest) (string, *domain.APIKey, error) {
	kind, err := apikey.ParseKind(req.Kind)
	if err != nil {
		return "", nil, err
	}

	secret, key, err := s.mgr.Issue(req.Name, owner, apikey.IssueOptions{
		Description:   req.Description,
		ExpiresInDays: req.ExpiresInDays,
		Permissions:   req.Permissions,
		Kind:          kind,
	})
	if err != nil {
		return "", nil, err
	}

	if err := s.repo.CreateAPIKey(ctx, key); err != nil {
		return "", nil, fmt.Errorf("failed to store api key: %w", err)
	}

	metrics.APIKeysIssued.WithLabelValues(string(kind)).Inc()
	s.logger.Info("api key issued",
		zap.String("key_id", key.ID),
		zap.String("owner", owner),
		zap.String("kind", string(kind)),
	)
	return secret, key, nil
}

func (s *apiKeyService) List(ctx context.Context, owner string) ([]domain.APIKey, error) {
	if owner == "" {
		return nil, domain.NewValidationError("created_by", "is required")
	}
	return s.repo.ListAPIKeys(ctx, owner)
}

func (s *apiKeyService) Update(ctx context.Context, owner, id string, patch domain.APIKeyPatch) (*domain.APIKey, error) {
	if id == "" {
		return nil, domain.NewValidationError("id", "API key ID is required")
	}

	key, err := s.repo.GetAPIKey(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, domain.NewNotFoundError("api key", id)
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "is required")
		}
		key.Name = name
	}
	if patch.Description != nil {
		d := strings.TrimSpace(*patch.Description)
		if d == "" {
			key.Description = nil
		} else {
			key.Description = &d
		}
	}
	if patch.Active != nil {
		key.Active = *patch.Active
	}
	if patch.Permissions != nil {
		if len(patch.Permissions) == 0 {
			return nil, domain.NewValidationError("permissions", "must not be empty")
		}
		key.Permissions = patch.Permissions
	}
	switch {
	case patch.ClearExpiry:
		key.ExpiresAt = nil
	case patch.ExpiresInDays != nil:
		if *patch.ExpiresInDays < 0 {
			return nil, domain.NewValidationError("expires_in_days", "must not be negative")
		}
		key.ExpiresAt = s.mgr.ExpiryFromDays(*patch.ExpiresInDays)
	}

	if err := s.repo.UpdateAPIKey(ctx, key); err != nil {
		return nil, err
	}
	s.logger.Info("api key updated", zap.String("key_id", key.ID), zap.Bool("active", key.Active))
	return key, nil
}

func (s *apiKeyService) Delete(ctx context.Context, owner, id string) error {
	if id == "" {
		return domain.NewValidationError("id", "API key ID is required")
	}
	if err := s.repo.DeleteAPIKey(ctx, id, owner); err != nil {
		return err
	}
	s.logger.Info("api key deleted", zap.String("key_id", id), zap.String("owner", owner))
	return nil
}

// Authenticate resolves a presented secret to its active, unexpired key and
// records the use. A failure to record usage does not fail the request.
func (s *apiKeyService) Authenticate(ctx context.Context, secret string) (*domain.APIKey, error) {
	if !apikey.ValidateFormat(secret) {
		return nil, domain.Unauthorized("malformed api key")
	}

	key, err := s.repo.GetAPIKeyByHash(ctx, apikey.Hash(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	if key == nil || !apikey.Verify(secret, key.KeyHash) {
		return nil, domain.Unauthorized("invalid api key")
	}
	if !key.Active {
		return nil, domain.Unauthorized("inactive api key")
	}
	now := s.mgr.Now()
	if key.Expired(now) {
		return nil, domain.Unauthorized("api key expired")
	}

	if err := s.repo.TouchAPIKey(ctx, key.ID, now); err != nil {
		s.logger.Warn("failed to record api key usage", zap.String("key_id", key.ID), zap.Error(err))
	} else {
		key.UsageCount++
		key.LastUsed = &now
	}
	return key, nil
}

func (s *apiKeyService) Allows(key *domain.APIKey, required domain.Permission) bool {
	return s.mgr.Allows(key, required)
}
