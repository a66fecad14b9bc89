package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/swenlog/carrier-directory/internal/logging"
	"github.com/swenlog/carrier-directory/internal/metrics"
	"github.com/swenlog/carrier-directory/internal/validation"
)

// Service runs the two-step service import: validate a file, then commit the
// parsed services.
type Service interface {
	ValidateFile(ctx context.Context, filename, contentType string, data []byte) (*ValidationReport, error)
	Commit(ctx context.Context, services []ParsedService) (*CommitResponse, error)
	Template(format string) (*TemplateFile, error)
}

// TemplateFile is a rendered upload template.
type TemplateFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type service struct {
	store     Store
	committer *Committer
	metrics   *metrics.Metrics
}

func NewService(store Store, m *metrics.Metrics) Service {
	return &service{store: store, committer: NewCommitter(store, m), metrics: m}
}

func (s *service) ValidateFile(ctx context.Context, filename, contentType string, data []byte) (*ValidationReport, error) {
	rows, err := ParseFile(filename, contentType, data)
	if err != nil {
		return nil, err
	}

	carrierRefs, err := s.store.ListCarrierRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load carriers: %w", err)
	}
	portRefs, err := s.store.ListPortRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ports: %w", err)
	}
	carrierNames := make([]string, len(carrierRefs))
	for i, r := range carrierRefs {
		carrierNames[i] = r.Name
	}
	portNames := make([]string, len(portRefs))
	for i, r := range portRefs {
		portNames[i] = r.Name
	}

	report := Validate(rows, carrierNames, portNames)
	s.metrics.ObserveValidation(report.IsValid, len(rows))
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"file":     filename,
		"rows":     len(rows),
		"services": len(report.Services),
		"errors":   len(report.Errors),
		"warnings": len(report.Warnings),
	}).Info("service upload validated")
	return report, nil
}

func (s *service) Commit(ctx context.Context, services []ParsedService) (*CommitResponse, error) {
	return s.committer.Commit(ctx, services)
}

func (s *service) Template(format string) (*TemplateFile, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		data, err := TemplateCSV()
		if err != nil {
			return nil, fmt.Errorf("render csv template: %w", err)
		}
		return &TemplateFile{Filename: TemplateCSVName, ContentType: "text/csv", Data: data}, nil
	case "", "excel", "xlsx":
		data, err := TemplateXLSX()
		if err != nil {
			return nil, fmt.Errorf("render excel template: %w", err)
		}
		return &TemplateFile{Filename: TemplateXLSXName, ContentType: mimeXLSX, Data: data}, nil
	default:
		return nil, validation.Errorf("format must be csv or excel")
	}
}
