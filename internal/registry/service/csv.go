package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mercury-net/mercury/internal/antibody"
	"github.com/mercury-net/mercury/internal/logging"
	"github.com/mercury-net/mercury/internal/metrics"
	"github.com/mercury-net/mercury/internal/registry/models"
	"github.com/mercury-net/mercury/internal/registry/repository"
)

// csvHeader is the exchange format shared between nodes. Column order is
// part of the format and must not change.
var csvHeader = []string{"Agent ID", "Threat Label", "Antibody", "Timestamp", "Example"}

// exportPageSize bounds memory during a full-registry export.
const exportPageSize = 500

// ExportCSV streams the full registry as CSV, newest first.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for page := 1; ; page++ {
		antibodies, total, err := s.repo.ListAntibodies(ctx, &models.ListRequest{
			Page:  page,
			Limit: exportPageSize,
		})
		if err != nil {
			return fmt.Errorf("list antibodies: %w", err)
		}

		for _, a := range antibodies {
			row := []string{
				a.AgentID,
				a.ThreatLabel,
				a.Fingerprint,
				a.CreatedAt.UTC().Format(time.RFC3339),
				a.Example,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}

		if page*exportPageSize >= total || len(antibodies) == 0 {
			break
		}
	}

	cw.Flush()
	return cw.Error()
}

// ImportCSV merges antibodies from a CSV export produced by another node.
// Malformed rows and already-known fingerprints are skipped, not fatal.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (*models.ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if !isCSVHeader(header) {
		return nil, fmt.Errorf("unrecognized csv header: %q", strings.Join(header, ","))
	}

	result := &models.ImportResult{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Skipped++
			continue
		}

		a, ok := parseCSVRow(row)
		if !ok {
			result.Skipped++
			continue
		}

		created, err := s.mergeImported(ctx, a)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to import antibody",
				logging.Fingerprint(antibody.Short(a.Fingerprint)),
				logging.Error(err))
			result.Skipped++
			continue
		}
		if !created {
			result.Skipped++
			continue
		}
		result.Imported++
	}

	s.logger.InfoContext(ctx, "csv import finished",
		"imported", result.Imported,
		"skipped", result.Skipped)
	return result, nil
}

func (s *Service) mergeImported(ctx context.Context, a *models.Antibody) (bool, error) {
	a.Example = truncate(a.Example, s.opts.ExampleMaxLen)
	if s.signer != nil {
		a.Signature = s.signer.Sign(a.AgentID, a.Fingerprint, a.CreatedAt)
	}
	err := s.repo.CreateAntibody(ctx, a)
	if err != nil {
		if errors.Is(err, repository.ErrAntibodyExists) {
			return false, nil
		}
		metrics.StorageErrors.Inc()
		return false, err
	}
	s.markDedup(ctx, a.AgentID, a.Fingerprint)
	return true, nil
}

func parseCSVRow(row []string) (*models.Antibody, bool) {
	if len(row) < 4 {
		return nil, false
	}

	agentID := strings.TrimSpace(row[0])
	fingerprint := strings.TrimSpace(row[2])
	if agentID == "" || !antibody.IsValid(fingerprint) {
		return nil, false
	}

	createdAt, err := parseCSVTimestamp(strings.TrimSpace(row[3]))
	if err != nil {
		return nil, false
	}

	label := strings.TrimSpace(row[1])
	if label == "" {
		label = models.DefaultThreatLabel
	}

	example := ""
	if len(row) > 4 {
		example = row[4]
	}

	return &models.Antibody{
		AgentID:     agentID,
		ThreatLabel: label,
		Fingerprint: fingerprint,
		Example:     example,
		Origin:      models.OriginImport,
		CreatedAt:   createdAt.UTC(),
	}, true
}

// csvTimeLayout matches timestamps written without a zone offset, as older
// registry files carry them. They are taken as UTC.
const csvTimeLayout = "2006-01-02T15:04:05"

func parseCSVTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(csvTimeLayout, s)
}

func isCSVHeader(header []string) bool {
	if len(header) != len(csvHeader) {
		return false
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(col), csvHeader[i]) {
			return false
		}
	}
	return true
}
