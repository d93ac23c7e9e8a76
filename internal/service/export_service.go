package service

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/export"
)

// Export formats accepted by ExportService.
const (
	ExportCSV = "csv"
	ExportPDF = "pdf"
)

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

var grievanceExportHeaders = []string{"ID", "Student", "USN", "Type", "Priority", "Status", "Handler", "Submitted", "Last Updated", "Description"}

// ExportService renders grievance lists as downloadable files.
type ExportService struct {
	renderers map[string]datasetRenderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService registers the CSV and PDF renderers.
func NewExportService(logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		renderers: map[string]datasetRenderer{
			ExportCSV: export.NewCSVExporter(),
			ExportPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Render builds a file for the grievances in the given format.
func (s *ExportService) Render(title string, grievances []models.Grievance, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	body, err := renderer.Render(grievanceDataset(title, grievances))
	if err != nil {
		s.logger.Error("render export failed", zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("grievances-%s.%s", s.now().UTC().Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func grievanceDataset(title string, grievances []models.Grievance) export.Dataset {
	rows := make([]map[string]string, 0, len(grievances))
	for _, g := range grievances {
		rows = append(rows, map[string]string{
			"ID":           g.ID,
			"Student":      g.StudentName,
			"USN":          g.StudentUSN,
			"Type":         string(g.Type),
			"Priority":     string(g.Priority),
			"Status":       string(g.Status),
			"Handler":      fmt.Sprintf("%s (%s)", g.CurrentHandler, g.HandlerRole.DisplayName()),
			"Submitted":    formatDate(g.SubmissionDate),
			"Last Updated": formatDate(g.LastUpdated),
			"Description":  g.Description,
		})
	}
	return export.Dataset{
		Title:   title,
		Headers: grievanceExportHeaders,
		Rows:    rows,
		Widths:  []float64{1.2, 1.4, 1.2, 1, 0.8, 1, 1.6, 1, 1, 3},
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
