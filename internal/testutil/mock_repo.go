package testutil

import (
	"context"
	"time"

	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockRepo is a testify mock of ports.Repository. Expectations are keyed on
// the arguments after ctx.
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) ListCases(ctx context.Context, filters domain.CaseFilters) ([]domain.Case, error) {
	args := m.Called(filters)
	cases, _ := args.Get(0).([]domain.Case)
	return cases, args.Error(1)
}

func (m *MockRepo) GetCase(ctx context.Context, id int64) (*domain.Case, error) {
	args := m.Called(id)
	c, _ := args.Get(0).(*domain.Case)
	return c, args.Error(1)
}

func (m *MockRepo) CreateCase(ctx context.Context, c *domain.Case) error {
	args := m.Called(c)
	return args.Error(0)
}

func (m *MockRepo) UpdateCase(ctx context.Context, id int64, update domain.CaseUpdate) (*domain.Case, error) {
	args := m.Called(id, update)
	c, _ := args.Get(0).(*domain.Case)
	return c, args.Error(1)
}

func (m *MockRepo) DeleteCase(ctx context.Context, id int64) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockRepo) FindCasesByPhone(ctx context.Context, suffix string, variations []string) ([]domain.Case, error) {
	args := m.Called(suffix, variations)
	cases, _ := args.Get(0).([]domain.Case)
	return cases, args.Error(1)
}

func (m *MockRepo) ListExportRows(ctx context.Context, filters domain.CaseFilters) ([]domain.ExportRow, error) {
	args := m.Called(filters)
	rows, _ := args.Get(0).([]domain.ExportRow)
	return rows, args.Error(1)
}

func (m *MockRepo) ListDialerCandidates(ctx context.Context, campaignTag string) ([]domain.Case, error) {
	args := m.Called(campaignTag)
	cases, _ := args.Get(0).([]domain.Case)
	return cases, args.Error(1)
}

func (m *MockRepo) ListNotes(ctx context.Context, caseID int64) ([]domain.Note, error) {
	args := m.Called(caseID)
	notes, _ := args.Get(0).([]domain.Note)
	return notes, args.Error(1)
}

func (m *MockRepo) CreateNote(ctx context.Context, note *domain.Note) error {
	args := m.Called(note)
	return args.Error(0)
}

func (m *MockRepo) UpdateNote(ctx context.Context, id int64, userID string, content string) (*domain.Note, error) {
	args := m.Called(id, userID, content)
	n, _ := args.Get(0).(*domain.Note)
	return n, args.Error(1)
}

func (m *MockRepo) DeleteNote(ctx context.Context, id int64, userID string) error {
	args := m.Called(id, userID)
	return args.Error(0)
}

func (m *MockRepo) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockRepo) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	args := m.Called(keyHash)
	k, _ := args.Get(0).(*domain.APIKey)
	return k, args.Error(1)
}

func (m *MockRepo) ListAPIKeys(ctx context.Context, owner string) ([]domain.APIKey, error) {
	args := m.Called(owner)
	keys, _ := args.Get(0).([]domain.APIKey)
	return keys, args.Error(1)
}

func (m *MockRepo) UpdateAPIKey(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockRepo) GetAPIKey(ctx context.Context, id string, owner string) (*domain.APIKey, error) {
	args := m.Called(id, owner)
	k, _ := args.Get(0).(*domain.APIKey)
	return k, args.Error(1)
}

func (m *MockRepo) DeleteAPIKey(ctx context.Context, id string, owner string) error {
	args := m.Called(id, owner)
	return args.Error(0)
}

func (m *MockRepo) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	args := m.Called(id, usedAt)
	return args.Error(0)
}

func (m *MockRepo) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
