package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/poyrazK/clinicrm/internal/core/apikey"
	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/services"
	"github.com/poyrazK/clinicrm/internal/testutil"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newCLI(repo *testutil.MockRepo) *cli {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	mgr := apikey.NewManager(apikey.WithClock(func() time.Time { return now }))
	return &cli{
		keys:       services.NewAPIKeyService(repo, mgr, zap.NewNop()),
		sessions:   testutil.NewMockSessionStore(),
		sessionTTL: time.Hour,
	}
}

func TestCreate(t *testing.T) {
	mockRepo := new(testutil.MockRepo)
	mockRepo.On("CreateAPIKey", mock.MatchedBy(func(k *domain.APIKey) bool {
		return k.CreatedBy == "owner1" && len(k.Permissions) == 1 && k.Permissions[0] == domain.PermissionAdmin
	})).Return(nil)

	out := &bytes.Buffer{}
	err := newCLI(mockRepo).run(context.Background(),
		[]string{"apikey", "create", "-owner", "owner1", "-name", "ops", "-perms", "admin", "-days", "30", "-kind", "prefixed"}, out)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if !bytes.Contains(out.Bytes(), []byte("API Key Created Successfully!")) {
		t.Errorf("expected success message in output")
	}
	if !bytes.Contains(out.Bytes(), []byte("VALUE:       clinicacrm_")) {
		t.Errorf("expected prefixed secret in output, got %s", out.String())
	}
	if !bytes.Contains(out.Bytes(), []byte("2024-07-01")) {
		t.Errorf("expected expiry in output")
	}
	mockRepo.AssertExpectations(t)
}

func TestCreate_InvalidPermission(t *testing.T) {
	mockRepo := new(testutil.MockRepo)
	err := newCLI(mockRepo).run(context.Background(),
		[]string{"apikey", "create", "-owner", "o", "-name", "n", "-perms", "read,superuser"}, &bytes.Buffer{})
	if !domain.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	mockRepo.AssertNotCalled(t, "CreateAPIKey", mock.Anything)
}

func TestList(t *testing.T) {
	mockRepo := new(testutil.MockRepo)
	keys := []domain.APIKey{
		{ID: "id1", Name: "name1", KeyHash: apikey.Hash("0123456789abcdef0123456789abcdef"), Permissions: []domain.Permission{domain.PermissionRead}, Active: false},
	}
	mockRepo.On("ListAPIKeys", "owner1").Return(keys, nil)

	out := &bytes.Buffer{}
	if err := newCLI(mockRepo).run(context.Background(), []string{"apikey", "list", "-owner", "owner1"}, out); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("id1")) || !bytes.Contains(out.Bytes(), []byte("disabled")) {
		t.Errorf("expected key row in output, got %s", out.String())
	}
	mockRepo.AssertExpectations(t)
}

func TestRevoke(t *testing.T) {
	mockRepo := new(testutil.MockRepo)
	mockRepo.On("DeleteAPIKey", "id1", "owner1").Return(nil)

	out := &bytes.Buffer{}
	if err := newCLI(mockRepo).run(context.Background(), []string{"apikey", "revoke", "-owner", "owner1", "-id", "id1"}, out); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("revoked")) {
		t.Errorf("expected revocation message in output")
	}

	if err := newCLI(mockRepo).run(context.Background(), []string{"apikey", "revoke", "-owner", "owner1"}, out); err == nil {
		t.Errorf("expected missing id error")
	}
	mockRepo.AssertExpectations(t)
}

func TestSession(t *testing.T) {
	c := newCLI(new(testutil.MockRepo))
	out := &bytes.Buffer{}
	if err := c.run(context.Background(), []string{"apikey", "session", "-user", "agent-7", "-ttl", "30m"}, out); err != nil {
		t.Fatalf("session failed: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("TOKEN: session-token-1")) {
		t.Errorf("expected token in output, got %s", out.String())
	}
	userID, _ := c.sessions.Resolve(context.Background(), "session-token-1")
	if userID != "agent-7" {
		t.Errorf("expected session bound to agent-7, got %q", userID)
	}
}

func TestRunCommand(t *testing.T) {
	c := newCLI(new(testutil.MockRepo))
	out := &bytes.Buffer{}

	err := c.run(context.Background(), []string{"apikey"}, out)
	if err == nil || err.Error() != usage {
		t.Errorf("Expected usage error, got: %v", err)
	}

	err = c.run(context.Background(), []string{"apikey", "unknown"}, out)
	if err == nil || err.Error() != "unknown subcommand: unknown" {
		t.Errorf("Expected unknown subcommand error, got: %v", err)
	}

	err = c.run(context.Background(), []string{"apikey", "list", "-bogus"}, out)
	if err == nil {
		t.Errorf("Expected flag parse error")
	}
}
