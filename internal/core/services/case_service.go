package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/ports"
	"go.uber.org/zap"
)

type caseService struct {
	repo   ports.CaseRepository
	logger *zap.Logger
}

func NewCaseService(repo ports.CaseRepository, logger *zap.Logger) ports.CaseService {
	return &caseService{repo: repo, logger: logger}
}

func (s *caseService) ListCases(ctx context.Context, filters domain.CaseFilters) ([]domain.Case, error) {
	filters.Search = strings.TrimSpace(filters.Search)
	if err := domain.Validate(filters); err != nil {
		return nil, err
	}
	if filters.DateFrom != nil && filters.DateTo != nil && filters.DateTo.Before(*filters.DateFrom) {
		return nil, domain.NewValidationError("date_to", "must not be before date_from")
	}
	return s.repo.ListCases(ctx, filters)
}

func (s *caseService) GetCase(ctx context.Context, id int64) (*domain.Case, error) {
	c, err := s.repo.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.NewNotFoundError("case", strconv.FormatInt(id, 10))
	}
	return c, nil
}

func (s *caseService) CreateCase(ctx context.Context, c *domain.Case) error {
	if c.Status == "" {
		c.Status = domain.StatusInProgress
	}
	if err := domain.Validate(c); err != nil {
		return err
	}
	if err := s.repo.CreateCase(ctx, c); err != nil {
		return err
	}
	s.logger.Info("case created", zap.Int64("case_id", c.ID), zap.String("channel", string(c.Channel)))
	return nil
}

func (s *caseService) UpdateCase(ctx context.Context, id int64, update domain.CaseUpdate) (*domain.Case, error) {
	if update.Empty() {
		return nil, domain.NewValidationError("", "no fields to update")
	}
	if err := domain.Validate(update); err != nil {
		return nil, err
	}
	c, err := s.repo.UpdateCase(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.logger.Info("case updated", zap.Int64("case_id", id))
	return c, nil
}

func (s *caseService) DeleteCase(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCase(ctx, id); err != nil {
		return err
	}
	s.logger.Info("case deleted", zap.Int64("case_id", id))
	return nil
}
