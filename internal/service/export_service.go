package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

const exportPageSize = 100

type exportSource interface {
	FindByID(ctx context.Context, id string) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	MaxRows int
}

// ExportFile is a rendered document ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the application register and per-application timelines.
type ExportService struct {
	source    exportSource
	renderers map[string]renderer
	audit     auditRecorder
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(source exportSource, audit auditRecorder, cfg ExportConfig, logger *zap.Logger, csv, pdf renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("DakPad grievance register")
	}
	return &ExportService{
		source:    source,
		renderers: map[string]renderer{ExportFormatCSV: csv, ExportFormatPDF: pdf},
		audit:     audit,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Register renders every application matching the filter in the requested format.
func (s *ExportService) Register(ctx context.Context, actor models.Actor, req ListApplicationsRequest, format string) (*ExportFile, error) {
	r, err := s.renderer(format)
	if err != nil {
		return nil, err
	}
	filter, err := buildApplicationFilter(req)
	if err != nil {
		return nil, err
	}

	var apps []models.Application
	filter.PageSize = exportPageSize
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.source.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Storage(err, "failed to load applications for export")
		}
		apps = append(apps, batch...)
		if len(batch) < exportPageSize || len(apps) >= total || len(apps) >= s.cfg.MaxRows {
			break
		}
	}
	if len(apps) > s.cfg.MaxRows {
		apps = apps[:s.cfg.MaxRows]
	}

	data, err := r.Render(registerDataset(apps))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}

	stamp := s.now().UTC().Format("20060102-150405")
	s.record(ctx, actor, "applications", "", map[string]interface{}{"format": format, "rows": len(apps)})
	return &ExportFile{
		Filename:    fmt.Sprintf("applications-%s.%s", stamp, r.Extension()),
		ContentType: r.ContentType(),
		Data:        data,
	}, nil
}

// Timeline renders one application's history as a PDF.
func (s *ExportService) Timeline(ctx context.Context, actor models.Actor, id string) (*ExportFile, error) {
	app, err := s.source.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Storage(err, "failed to load application")
	}

	r := s.renderers[ExportFormatPDF]
	data, err := r.Render(timelineDataset(app))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render timeline")
	}

	s.record(ctx, actor, "applications", app.ApplicantID, map[string]interface{}{"format": ExportFormatPDF, "entries": len(app.Timeline)})
	return &ExportFile{
		Filename:    fmt.Sprintf("timeline-%s.%s", app.ApplicantID, r.Extension()),
		ContentType: r.ContentType(),
		Data:        data,
	}, nil
}

func (s *ExportService) renderer(format string) (renderer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Validation("invalid export request", appErrors.FieldError{Field: "format", Message: "must be one of csv pdf"})
	}
	return r, nil
}

func (s *ExportService) record(ctx context.Context, actor models.Actor, resource, resourceID string, payload map[string]interface{}) {
	if s.audit == nil {
		return
	}
	body, _ := json.Marshal(payload)
	s.audit.Record(ctx, models.AuditLog{
		OfficialID: optional(actor.OfficialID),
		Action:     models.AuditActionExport,
		Resource:   resource,
		ResourceID: optional(resourceID),
		NewValues:  body,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
		RequestID:  actor.RequestID,
	})
}

func registerDataset(apps []models.Application) export.Dataset {
	data := export.Dataset{
		Title:   "Application Register",
		Headers: []string{"Applicant ID", "Applicant Name", "Application Date", "Subject", "Block", "Status", "Officer", "Department", "Last Update"},
		Widths:  []float64{1.2, 2, 1.2, 2.6, 1.2, 1.3, 1.6, 1.6, 1.2},
		Rows:    make([][]string, 0, len(apps)),
	}
	for _, app := range apps {
		lastUpdate := ""
		if entry, ok := app.Timeline.Last(); ok {
			lastUpdate = entry.Date.String()
		}
		data.Rows = append(data.Rows, []string{
			app.ApplicantID,
			app.ApplicantName,
			app.ApplicationDate.String(),
			app.Subject,
			app.Block,
			string(app.Status),
			app.AssignedOfficer,
			app.AssignedDepartment,
			lastUpdate,
		})
	}
	return data
}

func timelineDataset(app *models.Application) export.Dataset {
	data := export.Dataset{
		Title:   fmt.Sprintf("Timeline - %s (%s)", app.ApplicantID, app.ApplicantName),
		Headers: []string{"Date", "Section", "Status", "Officer", "Department", "Attachment", "Comment", "Recorded By"},
		Widths:  []float64{1.1, 1.4, 1.2, 1.5, 1.5, 1.4, 2.9, 1.4},
		Rows:    make([][]string, 0, len(app.Timeline)),
	}
	for _, entry := range app.Timeline {
		data.Rows = append(data.Rows, []string{
			entry.Date.String(),
			entry.Section,
			string(entry.Status),
			entry.Officer,
			entry.Department,
			entry.Attachment,
			entry.Comment,
			entry.RecordedBy,
		})
	}
	return data
}
