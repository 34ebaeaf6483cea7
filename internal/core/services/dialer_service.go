package services

import (
	"context"
	"strings"

	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/phone"
	"github.com/poyrazK/clinicrm/internal/core/ports"
	"go.uber.org/zap"
)

type dialerService struct {
	repo   ports.CaseRepository
	logger *zap.Logger
}

func NewDialerService(repo ports.CaseRepository, logger *zap.Logger) ports.DialerService {
	return &dialerService{repo: repo, logger: logger}
}

// Leads returns one dial target per case tagged with campaignTag. Cell phone
// is preferred, then phone, then home phone; cases with none are dropped.
func (s *dialerService) Leads(ctx context.Context, campaignTag string) ([]domain.DialerLead, error) {
	campaignTag = strings.TrimSpace(campaignTag)
	if campaignTag == "" {
		return nil, domain.NewValidationError("campaign_tag_filter", "is required")
	}

	cases, err := s.repo.ListDialerCandidates(ctx, campaignTag)
	if err != nil {
		return nil, err
	}

	leads := make([]domain.DialerLead, 0, len(cases))
	for i := range cases {
		c := &cases[i]
		var target string
		for _, p := range []*string{c.CellPhone, c.Phone, c.HomePhone} {
			if p == nil {
				continue
			}
			if e := phone.E164(*p); e != "" {
				target = e
				break
			}
		}
		if target == "" {
			continue
		}
		leads = append(leads, domain.DialerLead{RecordID: c.ID, PhoneE164: target})
	}

	s.logger.Debug("dialer leads built",
		zap.String("campaign_tag", campaignTag),
		zap.Int("cases", len(cases)),
		zap.Int("leads", len(leads)),
	)
	return leads, nil
}
