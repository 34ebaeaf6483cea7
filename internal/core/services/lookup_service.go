package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/phone"
	"github.com/poyrazK/clinicrm/internal/core/ports"
	"github.com/poyrazK/clinicrm/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

type lookupService struct {
	repo    ports.CaseRepository
	matcher *phone.Matcher
	baseURL string
	locale  string
	logger  *zap.Logger
}

func NewLookupService(repo ports.CaseRepository, matcher *phone.Matcher, baseURL, locale string, logger *zap.Logger) ports.LookupService {
	if matcher == nil {
		matcher = phone.Default()
	}
	return &lookupService{
		repo:    repo,
		matcher: matcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		locale:  locale,
		logger:  logger,
	}
}

// Lookup finds the most recent case owning raw. The repository returns a
// broad candidate set; each candidate is then held to an exact normalized
// match.
func (s *lookupService) Lookup(ctx context.Context, raw string) (*domain.LookupResult, error) {
	normalized := phone.Normalize(raw)
	if phone.Digits(normalized) == "" {
		metrics.LookupsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.NewValidationError("phone", "Phone number is required")
	}

	suffix := phone.Suffix(normalized, phone.SuffixDigits)
	candidates, err := s.repo.FindCasesByPhone(ctx, suffix, s.matcher.Variations(normalized))
	if err != nil {
		metrics.LookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to query lookup candidates: %w", err)
	}
	metrics.LookupCandidates.Observe(float64(len(candidates)))

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	for i := range candidates {
		c := &candidates[i]
		for _, p := range c.Phones() {
			if !phone.Match(p, normalized) {
				continue
			}
			metrics.LookupsTotal.WithLabelValues("found").Inc()
			s.logger.Info("lookup matched",
				zap.String("phone", phone.Mask(raw)),
				zap.Int64("case_id", c.ID),
				zap.Int("candidates", len(candidates)),
			)
			return &domain.LookupResult{
				Case:         c,
				MatchedPhone: p,
				ScreenPopURL: s.screenPopURL(c.ID),
			}, nil
		}
	}

	metrics.LookupsTotal.WithLabelValues("not_found").Inc()
	s.logger.Info("lookup found no case",
		zap.String("phone", phone.Mask(raw)),
		zap.Int("candidates", len(candidates)),
	)
	return nil, domain.NewNotFoundError("case for phone number", raw)
}

func (s *lookupService) screenPopURL(id int64) string {
	if s.locale == "" {
		return fmt.Sprintf("%s/cases/%d", s.baseURL, id)
	}
	return fmt.Sprintf("%s/%s/cases/%d", s.baseURL, s.locale, id)
}
