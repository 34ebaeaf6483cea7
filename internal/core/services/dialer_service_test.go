package services

import (
	"context"
	"testing"

	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDialerLeads(t *testing.T) {
	tag := ptr("Q1-Follow-Up")
	repo := &caseRepo{cases: []domain.Case{
		{ID: 1, Phone: ptr("+39 123 456 7890"), CellPhone: ptr("333 111 2222"), DialerCampaignTag: tag},
		{ID: 2, Phone: ptr("06 2222 4444"), DialerCampaignTag: tag},
		{ID: 3, Phone: ptr("n/a"), DialerCampaignTag: tag},
		{ID: 4, Phone: ptr("+39 999"), DialerCampaignTag: ptr("other")},
	}}
	svc := NewDialerService(repo, zap.NewNop())

	leads, err := svc.Leads(context.Background(), " Q1-Follow-Up ")
	require.NoError(t, err)
	assert.Equal(t, []domain.DialerLead{
		{RecordID: 1, PhoneE164: "+3331112222"},
		{RecordID: 2, PhoneE164: "+0622224444"},
	}, leads)
}

func TestDialerLeads_RequiresTag(t *testing.T) {
	_, err := NewDialerService(&caseRepo{}, zap.NewNop()).Leads(context.Background(), "  ")
	assert.True(t, domain.IsValidation(err))
}
