package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/phone"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("clinicrm_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432").
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		t.Fatalf("failed to open db: %s", err)
	}

	return db, func() {
		db.Close()
		_ = pgContainer.Terminate(ctx)
	}
}

func strPtr(s string) *string { return &s }

func TestPostgresRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPostgresRepository(db, nil)
	ctx := context.Background()

	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	// Second run must be a no-op.
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("Migrate is not idempotent: %v", err)
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO profiles (id, full_name) VALUES ('u1', 'John Doe')`); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}

	// 1. Cases and the phone candidate filter
	older := &domain.Case{FirstName: "Old", LastName: "Lead", Phone: strPtr("+39 06 2222 4444"),
		Channel: domain.ChannelWeb, Origin: "Website", Status: domain.StatusInProgress, Clinic: "Roma"}
	newer := &domain.Case{FirstName: "Antonio", LastName: "Dorato", HomePhone: strPtr("+39 06 2222 4444"),
		CellPhone: strPtr("+39 333 222 4444"), Channel: domain.ChannelFacebook, Origin: "Ads",
		Status: domain.StatusAppointment, Clinic: "Roma", AssignedTo: strPtr("u1"), DialerCampaignTag: strPtr("Q3")}
	unrelated := &domain.Case{FirstName: "Ada", LastName: "Bianchi", Phone: strPtr("+39 02 1111 0000"),
		Channel: domain.ChannelWeb, Origin: "Website", Status: domain.StatusInProgress, Clinic: "Milano"}

	for _, c := range []*domain.Case{older, newer, unrelated} {
		if err := repo.CreateCase(ctx, c); err != nil {
			t.Fatalf("CreateCase failed: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	search := "+39 06 2222 4444"
	candidates, err := repo.FindCasesByPhone(ctx, phone.Suffix(search, phone.SuffixDigits), phone.Variations(search))
	if err != nil {
		t.Fatalf("FindCasesByPhone failed: %v", err)
	}
	if len(candidates) != 2 || candidates[0].ID != newer.ID || candidates[1].ID != older.ID {
		t.Errorf("Expected newest-first candidates [%d %d], got %+v", newer.ID, older.ID, candidates)
	}

	// 2. Partial update clears optional columns with ""
	status := domain.StatusClosed
	updated, err := repo.UpdateCase(ctx, older.ID, domain.CaseUpdate{Status: &status, Phone: strPtr("")})
	if err != nil {
		t.Fatalf("UpdateCase failed: %v", err)
	}
	if updated.Status != domain.StatusClosed || updated.Phone != nil || updated.FirstName != "Old" {
		t.Errorf("Unexpected update result: %+v", updated)
	}

	// 3. Export joins assignee names
	rows, err := repo.ListExportRows(ctx, domain.CaseFilters{Channel: "FACEBOOK"})
	if err != nil {
		t.Fatalf("ListExportRows failed: %v", err)
	}
	if len(rows) != 1 || rows[0].AssignedName != "John Doe" {
		t.Errorf("Unexpected export rows: %+v", rows)
	}

	list, err := repo.ListCases(ctx, domain.CaseFilters{Search: "bianchi"})
	if err != nil || len(list) != 1 || list[0].ID != unrelated.ID {
		t.Errorf("Search filter failed: %v, %+v", err, list)
	}

	dial, err := repo.ListDialerCandidates(ctx, "Q3")
	if err != nil || len(dial) != 1 || dial[0].ID != newer.ID {
		t.Errorf("ListDialerCandidates failed: %v, %+v", err, dial)
	}

	// 4. Notes are scoped to their author
	note := &domain.Note{CaseID: newer.ID, UserID: "u1", Content: "called"}
	if err := repo.CreateNote(ctx, note); err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}
	if n, err := repo.UpdateNote(ctx, note.ID, "u2", "hijack"); err != nil || n != nil {
		t.Errorf("Expected other author to be refused, got %v, %v", n, err)
	}
	if err := repo.DeleteNote(ctx, note.ID, "u2"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected not found for other author, got %v", err)
	}

	// 5. API keys
	key := &domain.APIKey{
		ID:          "6f1c1f8a-6a39-4d0c-9d4b-1f2e3d4c5b6a",
		Name:        "ci",
		KeyHash:     "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		Permissions: []domain.Permission{domain.PermissionRead, domain.PermissionWrite},
		Active:      true,
		CreatedBy:   "u1",
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := repo.CreateAPIKey(ctx, key); err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}
	if err := repo.CreateAPIKey(ctx, key); err == nil {
		t.Error("Expected duplicate key hash to be rejected")
	}

	usedAt := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 2; i++ {
		if err := repo.TouchAPIKey(ctx, key.ID, usedAt); err != nil {
			t.Fatalf("TouchAPIKey failed: %v", err)
		}
	}

	got, err := repo.GetAPIKeyByHash(ctx, key.KeyHash)
	if err != nil || got == nil {
		t.Fatalf("GetAPIKeyByHash failed: %v", err)
	}
	if got.UsageCount != 2 || got.LastUsed == nil || !got.LastUsed.Equal(usedAt) {
		t.Errorf("Unexpected usage tracking: %+v", got)
	}
	if len(got.Permissions) != 2 || got.Permissions[1] != domain.PermissionWrite {
		t.Errorf("Permissions did not round-trip: %v", got.Permissions)
	}

	other := *got
	other.CreatedBy = "u2"
	other.Active = false
	if err := repo.UpdateAPIKey(ctx, &other); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected update by non-owner to be not found, got %v", err)
	}

	got.Active = false
	if err := repo.UpdateAPIKey(ctx, got); err != nil {
		t.Fatalf("UpdateAPIKey failed: %v", err)
	}
	keys, err := repo.ListAPIKeys(ctx, "u1")
	if err != nil || len(keys) != 1 || keys[0].Active {
		t.Errorf("Expected one inactive key, got %v, %+v", err, keys)
	}

	if err := repo.DeleteAPIKey(ctx, key.ID, "u1"); err != nil {
		t.Fatalf("DeleteAPIKey failed: %v", err)
	}
	if err := repo.DeleteAPIKey(ctx, key.ID, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected second delete to be not found, got %v", err)
	}

	// 6. Deleting a case cascades to its notes
	if err := repo.DeleteCase(ctx, newer.ID); err != nil {
		t.Fatalf("DeleteCase failed: %v", err)
	}
	notes, err := repo.ListNotes(ctx, newer.ID)
	if err != nil || len(notes) != 0 {
		t.Errorf("Expected notes to be cascaded, got %v, %+v", err, notes)
	}
}
