package services

import (
	"context"
	"strings"
	"time"

	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/phone"
)

// caseRepo is an in-memory ports.CaseRepository. FindCasesByPhone mimics the
// broad storage filter: anything ending in the suffix is a candidate.
type caseRepo struct {
	cases      []domain.Case
	assignees  map[string]string
	lastSuffix string
	lastVars   []string
	err        error
}

func (r *caseRepo) ListCases(_ context.Context, _ domain.CaseFilters) ([]domain.Case, error) {
	return r.cases, r.err
}

func (r *caseRepo) GetCase(_ context.Context, id int64) (*domain.Case, error) {
	for i := range r.cases {
		if r.cases[i].ID == id {
			c := r.cases[i]
			return &c, nil
		}
	}
	return nil, r.err
}

func (r *caseRepo) CreateCase(_ context.Context, c *domain.Case) error {
	if r.err != nil {
		return r.err
	}
	c.ID = int64(len(r.cases) + 1)
	c.CreatedAt = time.Now()
	r.cases = append(r.cases, *c)
	return nil
}

func (r *caseRepo) UpdateCase(_ context.Context, id int64, u domain.CaseUpdate) (*domain.Case, error) {
	for i := range r.cases {
		if r.cases[i].ID != id {
			continue
		}
		if u.Status != nil {
			r.cases[i].Status = *u.Status
		}
		if u.FirstName != nil {
			r.cases[i].FirstName = *u.FirstName
		}
		c := r.cases[i]
		return &c, nil
	}
	return nil, domain.NewNotFoundError("case", "")
}

func (r *caseRepo) DeleteCase(_ context.Context, id int64) error {
	for i := range r.cases {
		if r.cases[i].ID == id {
			r.cases = append(r.cases[:i], r.cases[i+1:]...)
			return nil
		}
	}
	return domain.NewNotFoundError("case", "")
}

func (r *caseRepo) FindCasesByPhone(_ context.Context, suffix string, variations []string) ([]domain.Case, error) {
	r.lastSuffix, r.lastVars = suffix, variations
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.Case
	for _, c := range r.cases {
		for _, p := range c.Phones() {
			if strings.HasSuffix(phone.Digits(p), suffix) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (r *caseRepo) ListExportRows(_ context.Context, _ domain.CaseFilters) ([]domain.ExportRow, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]domain.ExportRow, 0, len(r.cases))
	for _, c := range r.cases {
		row := domain.ExportRow{Case: c}
		if c.AssignedTo != nil {
			row.AssignedName = r.assignees[*c.AssignedTo]
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *caseRepo) ListDialerCandidates(_ context.Context, tag string) ([]domain.Case, error) {
	var out []domain.Case
	for _, c := range r.cases {
		if c.DialerCampaignTag != nil && *c.DialerCampaignTag == tag {
			out = append(out, c)
		}
	}
	return out, r.err
}

func ptr[T any](v T) *T { return &v }
