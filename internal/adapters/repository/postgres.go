package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// maxLookupCandidates caps the broad phone filter so a short suffix shared by
// many rows cannot turn a screen-pop into a table scan. Rows matching a
// variation sort ahead of suffix-only rows, so the cap drops the latter first.
const maxLookupCandidates = 200

const caseColumns = `c.id, c.created_at, c.assigned_to, c.first_name, c.last_name, c.phone, c.home_phone,
	c.cell_phone, c.email, c.channel, c.origin, c.status, c.disposition, c.outcome, c.clinic,
	c.treatment, c.promotion, c.follow_up_date, c.dialer_campaign_tag`

const apiKeyColumns = `id, name, description, key_hash, permissions, is_active, created_by, created_at,
	expires_at, last_used, usage_count`

// PostgresRepository implements ports.Repository using PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresRepository creates and returns a new PostgresRepository instance.
func NewPostgresRepository(db *sql.DB, logger *zap.Logger) *PostgresRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresRepository{db: db, logger: logger}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// RecordPoolStats publishes the connection pool usage.
func (r *PostgresRepository) RecordPoolStats() {
	metrics.DBConnectionsActive.Set(float64(r.db.Stats().InUse))
}

func (r *PostgresRepository) closeRows(rows *sql.Rows) {
	if errClose := rows.Close(); errClose != nil {
		r.logger.Warn("failed to close rows", zap.Error(errClose))
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCase(s scanner, extra ...any) (domain.Case, error) {
	var c domain.Case
	dest := []any{
		&c.ID, &c.CreatedAt, &c.AssignedTo, &c.FirstName, &c.LastName, &c.Phone, &c.HomePhone,
		&c.CellPhone, &c.Email, &c.Channel, &c.Origin, &c.Status, &c.Disposition, &c.Outcome, &c.Clinic,
		&c.Treatment, &c.Promotion, &c.FollowUpDate, &c.DialerCampaignTag,
	}
	err := s.Scan(append(dest, extra...)...)
	return c, err
}

func (r *PostgresRepository) queryCases(ctx context.Context, query string, args ...any) ([]domain.Case, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer r.closeRows(rows)

	var cases []domain.Case
	for rows.Next() {
		c, errScan := scanCase(rows)
		if errScan != nil {
			return nil, errScan
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// caseFilterClause renders filters as a WHERE clause whose placeholders start at $1.
func caseFilterClause(f domain.CaseFilters) (string, []any) {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Search != "" {
		p := next("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf("(c.first_name ILIKE %s OR c.last_name ILIKE %s OR c.email ILIKE %s)", p, p, p))
	}
	if f.Status != "" {
		conds = append(conds, "c.status = "+next(f.Status))
	}
	if f.Channel != "" {
		conds = append(conds, "c.channel = "+next(f.Channel))
	}
	if f.AssignedTo != "" {
		conds = append(conds, "c.assigned_to = "+next(f.AssignedTo))
	}
	if f.DateFrom != nil {
		conds = append(conds, "c.created_at >= "+next(*f.DateFrom))
	}
	if f.DateTo != nil {
		conds = append(conds, "c.created_at <= "+next(*f.DateTo))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) ListCases(ctx context.Context, filters domain.CaseFilters) ([]domain.Case, error) {
	where, args := caseFilterClause(filters)
	query := `SELECT ` + caseColumns + ` FROM cases c` + where + ` ORDER BY c.created_at DESC`
	return r.queryCases(ctx, query, args...)
}

func (r *PostgresRepository) GetCase(ctx context.Context, id int64) (*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases c WHERE c.id = $1`
	c, err := scanCase(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) CreateCase(ctx context.Context, c *domain.Case) error {
	query := `INSERT INTO cases (assigned_to, first_name, last_name, phone, home_phone, cell_phone, email,
	          channel, origin, status, disposition, outcome, clinic, treatment, promotion, follow_up_date,
	          dialer_campaign_tag)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	          RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		c.AssignedTo, c.FirstName, c.LastName, c.Phone, c.HomePhone, c.CellPhone, c.Email,
		string(c.Channel), c.Origin, string(c.Status), c.Disposition, c.Outcome, c.Clinic, c.Treatment,
		c.Promotion, c.FollowUpDate, c.DialerCampaignTag,
	).Scan(&c.ID, &c.CreatedAt)
}

// caseAssignments lists the columns touched by u in a fixed order.
func caseAssignments(u domain.CaseUpdate) ([]string, []any) {
	var cols []string
	var args []any
	set := func(col string, v any) {
		args = append(args, v)
		cols = append(cols, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.AssignedTo != nil {
		set("assigned_to", nullIfEmpty(*u.AssignedTo))
	}
	if u.FirstName != nil {
		set("first_name", *u.FirstName)
	}
	if u.LastName != nil {
		set("last_name", *u.LastName)
	}
	if u.Phone != nil {
		set("phone", nullIfEmpty(*u.Phone))
	}
	if u.HomePhone != nil {
		set("home_phone", nullIfEmpty(*u.HomePhone))
	}
	if u.CellPhone != nil {
		set("cell_phone", nullIfEmpty(*u.CellPhone))
	}
	if u.Email != nil {
		set("email", nullIfEmpty(*u.Email))
	}
	if u.Channel != nil {
		set("channel", string(*u.Channel))
	}
	if u.Origin != nil {
		set("origin", *u.Origin)
	}
	if u.Status != nil {
		set("status", string(*u.Status))
	}
	if u.Disposition != nil {
		set("disposition", nullIfEmpty(*u.Disposition))
	}
	if u.Outcome != nil {
		set("outcome", nullIfEmpty(*u.Outcome))
	}
	if u.Clinic != nil {
		set("clinic", *u.Clinic)
	}
	if u.Treatment != nil {
		set("treatment", nullIfEmpty(*u.Treatment))
	}
	if u.Promotion != nil {
		set("promotion", nullIfEmpty(*u.Promotion))
	}
	if u.FollowUpDate != nil {
		set("follow_up_date", *u.FollowUpDate)
	}
	if u.DialerCampaignTag != nil {
		set("dialer_campaign_tag", nullIfEmpty(*u.DialerCampaignTag))
	}
	return cols, args
}

// nullIfEmpty maps "" to NULL so optional text columns can be cleared.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *PostgresRepository) UpdateCase(ctx context.Context, id int64, update domain.CaseUpdate) (*domain.Case, error) {
	cols, args := caseAssignments(update)
	if len(cols) == 0 {
		return nil, domain.NewValidationError("", "no fields to update")
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE cases c SET %s WHERE c.id = $%d RETURNING %s`,
		strings.Join(cols, ", "), len(args), caseColumns)

	c, err := scanCase(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("case", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresRepository) DeleteCase(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res, "case", strconv.FormatInt(id, 10))
}

// FindCasesByPhone is the broad phase of a phone lookup. A row qualifies when
// any phone column, reduced to digits, ends in suffix, or when it reduces to
// one of variations. Variation matches come first, newest first within each
// group.
func (r *PostgresRepository) FindCasesByPhone(ctx context.Context, suffix string, variations []string) ([]domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases c
	          WHERE regexp_replace(COALESCE(c.phone, ''), '\D', '', 'g') LIKE '%' || $1
	             OR regexp_replace(COALESCE(c.home_phone, ''), '\D', '', 'g') LIKE '%' || $1
	             OR regexp_replace(COALESCE(c.cell_phone, ''), '\D', '', 'g') LIKE '%' || $1
	             OR regexp_replace(COALESCE(c.phone, ''), '[^0-9+]', '', 'g') = ANY(string_to_array($2, ','))
	             OR regexp_replace(COALESCE(c.home_phone, ''), '[^0-9+]', '', 'g') = ANY(string_to_array($2, ','))
	             OR regexp_replace(COALESCE(c.cell_phone, ''), '[^0-9+]', '', 'g') = ANY(string_to_array($2, ','))
	          ORDER BY (regexp_replace(COALESCE(c.phone, ''), '[^0-9+]', '', 'g') = ANY(string_to_array($2, ','))
	                 OR regexp_replace(COALESCE(c.home_phone, ''), '[^0-9+]', '', 'g') = ANY(string_to_array($2, ','))
	                 OR regexp_replace(COALESCE(c.cell_phone, ''), '[^0-9+]', '', 'g') = ANY(string_to_array($2, ','))) DESC,
	                 c.created_at DESC
	          LIMIT $3`
	return r.queryCases(ctx, query, suffix, strings.Join(variations, ","), maxLookupCandidates)
}

func (r *PostgresRepository) ListExportRows(ctx context.Context, filters domain.CaseFilters) ([]domain.ExportRow, error) {
	where, args := caseFilterClause(filters)
	query := `SELECT ` + caseColumns + `, COALESCE(p.full_name, '') FROM cases c
	          LEFT JOIN profiles p ON p.id = c.assigned_to` + where + ` ORDER BY c.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer r.closeRows(rows)

	var out []domain.ExportRow
	for rows.Next() {
		var name string
		c, errScan := scanCase(rows, &name)
		if errScan != nil {
			return nil, errScan
		}
		out = append(out, domain.ExportRow{Case: c, AssignedName: name})
	}
	return out, rows.Err()
}

// ListDialerCandidates returns open cases carrying campaignTag, oldest first.
func (r *PostgresRepository) ListDialerCandidates(ctx context.Context, campaignTag string) ([]domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases c
	          WHERE c.dialer_campaign_tag = $1 AND c.status <> $2
	          ORDER BY c.created_at ASC`
	return r.queryCases(ctx, query, campaignTag, string(domain.StatusClosed))
}

const noteColumns = `id, created_at, case_id, user_id, content`

func scanNote(s scanner) (domain.Note, error) {
	var n domain.Note
	err := s.Scan(&n.ID, &n.CreatedAt, &n.CaseID, &n.UserID, &n.Content)
	return n, err
}

func (r *PostgresRepository) ListNotes(ctx context.Context, caseID int64) ([]domain.Note, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE case_id = $1 ORDER BY created_at DESC`, caseID)
	if err != nil {
		return nil, err
	}
	defer r.closeRows(rows)

	var notes []domain.Note
	for rows.Next() {
		n, errScan := scanNote(rows)
		if errScan != nil {
			return nil, errScan
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *PostgresRepository) CreateNote(ctx context.Context, note *domain.Note) error {
	query := `INSERT INTO notes (case_id, user_id, content) VALUES ($1, $2, $3) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query, note.CaseID, note.UserID, note.Content).Scan(&note.ID, &note.CreatedAt)
}

// UpdateNote returns nil when no note with id belongs to userID.
func (r *PostgresRepository) UpdateNote(ctx context.Context, id int64, userID string, content string) (*domain.Note, error) {
	query := `UPDATE notes SET content = $1 WHERE id = $2 AND user_id = $3 RETURNING ` + noteColumns
	n, err := scanNote(r.db.QueryRowContext(ctx, query, content, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *PostgresRepository) DeleteNote(ctx context.Context, id int64, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res, "note", strconv.FormatInt(id, 10))
}

func scanAPIKey(s scanner) (domain.APIKey, error) {
	var k domain.APIKey
	var perms []byte
	if err := s.Scan(&k.ID, &k.Name, &k.Description, &k.KeyHash, &perms, &k.Active, &k.CreatedBy,
		&k.CreatedAt, &k.ExpiresAt, &k.LastUsed, &k.UsageCount); err != nil {
		return k, err
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &k.Permissions); err != nil {
			return k, fmt.Errorf("failed to decode permissions of key %s: %w", k.ID, err)
		}
	}
	return k, nil
}

func encodePermissions(perms []domain.Permission) (string, error) {
	if perms == nil {
		perms = []domain.Permission{}
	}
	b, err := json.Marshal(perms)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *PostgresRepository) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	perms, err := encodePermissions(key.Permissions)
	if err != nil {
		return err
	}
	query := `INSERT INTO api_keys (id, name, description, key_hash, permissions, is_active, created_by,
	          created_at, expires_at, last_used, usage_count)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.db.ExecContext(ctx, query, key.ID, key.Name, key.Description, key.KeyHash, perms,
		key.Active, key.CreatedBy, key.CreatedAt, key.ExpiresAt, key.LastUsed, key.UsageCount)
	return err
}

func (r *PostgresRepository) getAPIKey(ctx context.Context, query string, args ...any) (*domain.APIKey, error) {
	k, err := scanAPIKey(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *PostgresRepository) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	return r.getAPIKey(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, keyHash)
}

func (r *PostgresRepository) GetAPIKey(ctx context.Context, id string, owner string) (*domain.APIKey, error) {
	return r.getAPIKey(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1 AND created_by = $2`, id, owner)
}

func (r *PostgresRepository) ListAPIKeys(ctx context.Context, owner string) ([]domain.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE created_by = $1 ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer r.closeRows(rows)

	var keys []domain.APIKey
	for rows.Next() {
		k, errScan := scanAPIKey(rows)
		if errScan != nil {
			return nil, errScan
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *PostgresRepository) UpdateAPIKey(ctx context.Context, key *domain.APIKey) error {
	perms, err := encodePermissions(key.Permissions)
	if err != nil {
		return err
	}
	query := `UPDATE api_keys SET name = $1, description = $2, permissions = $3, is_active = $4, expires_at = $5
	          WHERE id = $6 AND created_by = $7`
	res, err := r.db.ExecContext(ctx, query, key.Name, key.Description, perms, key.Active, key.ExpiresAt,
		key.ID, key.CreatedBy)
	if err != nil {
		return err
	}
	return expectOne(res, "api key", key.ID)
}

func (r *PostgresRepository) DeleteAPIKey(ctx context.Context, id string, owner string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1 AND created_by = $2`, id, owner)
	if err != nil {
		return err
	}
	return expectOne(res, "api key", id)
}

// TouchAPIKey records one use of the key at usedAt.
func (r *PostgresRepository) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET usage_count = usage_count + 1, last_used = $1 WHERE id = $2`, usedAt, id)
	return err
}

func expectOne(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewNotFoundError(resource, id)
	}
	return nil
}
