package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/poyrazK/clinicrm/internal/core/domain"
	"github.com/poyrazK/clinicrm/internal/core/ports"
	"github.com/poyrazK/clinicrm/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

var exportHeaders = []string{
	"ID",
	"First Name",
	"Last Name",
	"Phone",
	"Email",
	"Channel",
	"Origin",
	"Status",
	"Outcome",
	"Clinic",
	"Treatment",
	"Promotion",
	"Created At",
	"Follow Up Date",
	"Assigned To",
	"Dialer Campaign Tag",
}

type exportService struct {
	repo   ports.CaseRepository
	logger *zap.Logger
}

func NewExportService(repo ports.CaseRepository, logger *zap.Logger) ports.ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ExportCSV writes the header and one row per matching case to w and returns
// the number of data rows written.
func (s *exportService) ExportCSV(ctx context.Context, filters domain.CaseFilters, w io.Writer) (int, error) {
	if err := domain.Validate(filters); err != nil {
		return 0, err
	}
	rows, err := s.repo.ListExportRows(ctx, filters)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch cases for export: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return 0, err
	}
	for i := range rows {
		if err := cw.Write(exportRecord(&rows[i])); err != nil {
			return i, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(rows), err
	}

	metrics.CasesExported.Add(float64(len(rows)))
	s.logger.Info("cases exported", zap.Int("rows", len(rows)))
	return len(rows), nil
}

func exportRecord(r *domain.ExportRow) []string {
	var followUp string
	if r.FollowUpDate != nil {
		followUp = r.FollowUpDate.UTC().Format(time.RFC3339)
	}
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.FirstName,
		r.LastName,
		deref(r.Phone),
		deref(r.Email),
		string(r.Channel),
		r.Origin,
		string(r.Status),
		deref(r.Outcome),
		r.Clinic,
		deref(r.Treatment),
		deref(r.Promotion),
		r.CreatedAt.UTC().Format(time.RFC3339),
		followUp,
		r.AssignedName,
		deref(r.DialerCampaignTag),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
