package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/repository"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
)

type applicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	Update(ctx context.Context, id string, mutate func(app *models.Application) error) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
}

type officerDirectory interface {
	FindOfficerByName(ctx context.Context, name string) (*models.Officer, error)
}

type auditRecorder interface {
	Record(ctx context.Context, entry models.AuditLog)
}

// Lifecycle operation names used in metrics and audit records.
const (
	OperationCreate     = "create"
	OperationAssign     = "assign"
	OperationCompliance = "compliance"
	OperationDispose    = "dispose"
)

// CreateApplicationRequest is the payload for registering a grievance.
type CreateApplicationRequest struct {
	ApplicantID     string      `json:"applicantId" validate:"omitempty,max=64"`
	ApplicantName   string      `json:"applicantName" validate:"required,max=200"`
	ApplicationDate models.Date `json:"applicationDate"`
	ContactPhone    string      `json:"contactPhone" validate:"omitempty,phone10"`
	ContactEmail    string      `json:"contactEmail" validate:"omitempty,email,max=200"`
	Subject         string      `json:"subject" validate:"required,max=500"`
	Block           string      `json:"block" validate:"required,max=120"`
	Attachment      string      `json:"attachment" validate:"omitempty,max=255"`
}

// AssignApplicationRequest hands an application to an officer.
type AssignApplicationRequest struct {
	Officer    string `json:"officer" validate:"required,max=200,assignable"`
	Department string `json:"department" validate:"omitempty,max=200"`
	Note       string `json:"note" validate:"omitempty,max=2000"`
	Attachment string `json:"attachment" validate:"omitempty,max=255"`
}

// CloseApplicationRequest is the payload for compliance and disposal.
type CloseApplicationRequest struct {
	Note       string `json:"note" validate:"omitempty,max=2000"`
	Attachment string `json:"attachment" validate:"omitempty,max=255"`
}

// ListApplicationsRequest carries listing filters from the HTTP layer.
type ListApplicationsRequest struct {
	Status   []models.ApplicationStatus
	Block    string
	Officer  string
	Search   string
	From     string
	To       string
	Page     int
	PageSize int
}

// ApplicationServiceParams groups constructor dependencies.
type ApplicationServiceParams struct {
	Repo        applicationRepository
	Officers    officerDirectory
	Validator   *validator.Validate
	Audit       auditRecorder
	Cache       *CacheService
	Metrics     *MetricsService
	Logger      *zap.Logger
	Location    *time.Location
	TrackingTTL time.Duration
}

// ApplicationService owns the grievance state machine and its append-only timeline.
// Every transition is applied through the repository's locked read-modify-write so
// the status and the new timeline entry are committed together.
type ApplicationService struct {
	repo        applicationRepository
	officers    officerDirectory
	validator   *validator.Validate
	audit       auditRecorder
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	location    *time.Location
	trackingTTL time.Duration
	now         func() time.Time
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(params ApplicationServiceParams) *ApplicationService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = NewValidator()
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	ttl := params.TrackingTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &ApplicationService{
		repo:        params.Repo,
		officers:    params.Officers,
		validator:   validate,
		audit:       params.Audit,
		cache:       params.Cache,
		metrics:     params.Metrics,
		logger:      logger,
		location:    loc,
		trackingTTL: ttl,
		now:         time.Now,
	}
}

// Create registers a new application in NotAssignedYet with its received entry.
func (s *ApplicationService) Create(ctx context.Context, actor models.Actor, req CreateApplicationRequest) (*models.Application, error) {
	req.ApplicantID = strings.TrimSpace(req.ApplicantID)
	req.ApplicantName = strings.TrimSpace(req.ApplicantName)
	req.ContactPhone = strings.TrimSpace(req.ContactPhone)
	req.ContactEmail = strings.TrimSpace(req.ContactEmail)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Block = strings.TrimSpace(req.Block)
	req.Attachment = strings.TrimSpace(req.Attachment)

	var extra []appErrors.FieldError
	if req.ApplicationDate.IsZero() {
		extra = append(extra, appErrors.FieldError{Field: "applicationDate", Message: "is required"})
	}
	if err := validate(s.validator, req, "invalid application payload", extra...); err != nil {
		return nil, s.fail(OperationCreate, err)
	}

	id := req.ApplicantID
	if id == "" {
		id = newApplicantID()
	}

	app := &models.Application{
		ApplicantID:        id,
		ApplicantName:      req.ApplicantName,
		ApplicationDate:    req.ApplicationDate,
		ContactPhone:       optional(req.ContactPhone),
		ContactEmail:       optional(req.ContactEmail),
		Subject:            req.Subject,
		Block:              req.Block,
		Attachment:         optional(req.Attachment),
		Status:             models.StatusNotAssignedYet,
		AssignedOfficer:    models.NotAvailable,
		AssignedDepartment: models.NotAvailable,
	}
	app.Timeline = models.Timeline{{
		Section:    models.SectionReceived,
		Comment:    fmt.Sprintf("Application received from %s on %s", app.Block, app.ApplicationDate),
		Date:       app.ApplicationDate,
		Attachment: app.AttachmentOrNA(),
		Department: models.NotAvailable,
		Officer:    models.NotAvailable,
		RecordedBy: actor.DisplayName(),
		Status:     models.StatusNotAssignedYet,
	}}

	if err := s.repo.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicateApplication) {
			return nil, s.fail(OperationCreate, appErrors.Clone(appErrors.ErrDuplicateIdentifier, fmt.Sprintf("application %s already exists", id)))
		}
		return nil, s.fail(OperationCreate, appErrors.Storage(err, "failed to create application"))
	}

	s.committed(ctx, actor, OperationCreate, models.AuditActionApplicationCreate, nil, app)
	return app, nil
}

// Assign hands the application to an officer, moving it to InProcess.
func (s *ApplicationService) Assign(ctx context.Context, actor models.Actor, id string, req AssignApplicationRequest) (*models.Application, error) {
	req.Officer = strings.TrimSpace(req.Officer)
	req.Department = strings.TrimSpace(req.Department)
	req.Note = strings.TrimSpace(req.Note)
	req.Attachment = strings.TrimSpace(req.Attachment)
	if err := validate(s.validator, req, "invalid assignment payload"); err != nil {
		return nil, s.fail(OperationAssign, err)
	}

	department, err := s.resolveDepartment(ctx, req.Officer, req.Department)
	if err != nil {
		return nil, s.fail(OperationAssign, err)
	}

	var before *models.Application
	app, err := s.repo.Update(ctx, id, func(app *models.Application) error {
		before = app.Clone()
		if app.Status.Terminal() {
			return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("application is already %s", app.Status))
		}
		if app.AssignedOfficer == req.Officer {
			return appErrors.Clone(appErrors.ErrNoChange, fmt.Sprintf("application is already assigned to %s", app.AssignedOfficer))
		}

		app.Status = models.StatusInProcess
		app.AssignedOfficer = req.Officer
		app.AssignedDepartment = department
		if req.Attachment != "" {
			app.Attachment = optional(req.Attachment)
		}
		app.Timeline = append(app.Timeline, models.TimelineEntry{
			Section:    models.AssignedSection(req.Officer),
			Comment:    orDefault(req.Note, fmt.Sprintf("Application assigned to %s", req.Officer)),
			Date:       s.today(),
			Attachment: orDefault(req.Attachment, models.NotAvailable),
			Department: department,
			Officer:    req.Officer,
			RecordedBy: actor.DisplayName(),
			Status:     models.StatusInProcess,
		})
		return nil
	})
	if err != nil {
		return nil, s.fail(OperationAssign, s.mapUpdateError(err, id))
	}

	s.committed(ctx, actor, OperationAssign, models.AuditActionApplicationAssign, before, app)
	return app, nil
}

// MarkCompliance records that the grievance was resolved. Any prior status is accepted.
func (s *ApplicationService) MarkCompliance(ctx context.Context, actor models.Actor, id string, req CloseApplicationRequest) (*models.Application, error) {
	return s.close(ctx, actor, id, req, closeRule{
		operation: OperationCompliance,
		action:    models.AuditActionApplicationComply,
		status:    models.StatusCompliance,
		section:   models.SectionCompliance,
		comment:   "Application marked as compliance",
	})
}

// Dispose closes the grievance without compliance. Any prior status is accepted.
func (s *ApplicationService) Dispose(ctx context.Context, actor models.Actor, id string, req CloseApplicationRequest) (*models.Application, error) {
	return s.close(ctx, actor, id, req, closeRule{
		operation: OperationDispose,
		action:    models.AuditActionApplicationDispose,
		status:    models.StatusDisposed,
		section:   models.SectionDisposed,
		comment:   "Application disposed",
	})
}

type closeRule struct {
	operation string
	action    string
	status    models.ApplicationStatus
	section   string
	comment   string
}

func (s *ApplicationService) close(ctx context.Context, actor models.Actor, id string, req CloseApplicationRequest, rule closeRule) (*models.Application, error) {
	req.Note = strings.TrimSpace(req.Note)
	req.Attachment = strings.TrimSpace(req.Attachment)
	if err := validate(s.validator, req, "invalid "+rule.operation+" payload"); err != nil {
		return nil, s.fail(rule.operation, err)
	}

	var before *models.Application
	app, err := s.repo.Update(ctx, id, func(app *models.Application) error {
		before = app.Clone()
		app.Status = rule.status
		if req.Attachment != "" {
			app.Attachment = optional(req.Attachment)
		}
		app.Timeline = append(app.Timeline, models.TimelineEntry{
			Section:    rule.section,
			Comment:    orDefault(req.Note, rule.comment),
			Date:       s.today(),
			Attachment: orDefault(req.Attachment, models.NotAvailable),
			Department: orDefault(app.AssignedDepartment, models.NotAvailable),
			Officer:    orDefault(app.AssignedOfficer, models.NotAvailable),
			RecordedBy: actor.DisplayName(),
			Status:     rule.status,
		})
		return nil
	})
	if err != nil {
		return nil, s.fail(rule.operation, s.mapUpdateError(err, id))
	}

	s.committed(ctx, actor, rule.operation, rule.action, before, app)
	return app, nil
}

// Get returns the full application record.
func (s *ApplicationService) Get(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("application %s not found", id))
		}
		return nil, appErrors.Storage(err, "failed to load application")
	}
	return app, nil
}

// Track returns the public projection, served from cache when possible.
func (s *ApplicationService) Track(ctx context.Context, id string) (*models.TrackingView, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false, appErrors.Validation("invalid tracking request", appErrors.FieldError{Field: "applicantId", Message: "is required"})
	}

	key := trackingCacheKey(id)
	var cached models.TrackingView
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	view := app.Track()
	_, _ = s.cache.SetTracking(ctx, id, view, app.Version, s.trackingTTL)
	return view, false, nil
}

// List returns a filtered page of applications.
func (s *ApplicationService) List(ctx context.Context, req ListApplicationsRequest) ([]models.Application, *models.Pagination, error) {
	filter, err := buildApplicationFilter(req)
	if err != nil {
		return nil, nil, err
	}
	apps, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to list applications")
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return apps, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func buildApplicationFilter(req ListApplicationsRequest) (models.ApplicationFilter, error) {
	filter := models.ApplicationFilter{
		Block:    strings.TrimSpace(req.Block),
		Officer:  strings.TrimSpace(req.Officer),
		Search:   strings.TrimSpace(req.Search),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	var fields []appErrors.FieldError
	for _, st := range req.Status {
		if !st.Valid() {
			fields = append(fields, appErrors.FieldError{Field: "status", Message: fmt.Sprintf("unknown status %q", st)})
			continue
		}
		filter.Status = append(filter.Status, st)
	}
	if req.From != "" {
		d, err := models.ParseDate(req.From)
		if err != nil {
			fields = append(fields, appErrors.FieldError{Field: "from", Message: "must be a date"})
		} else {
			filter.From = &d
		}
	}
	if req.To != "" {
		d, err := models.ParseDate(req.To)
		if err != nil {
			fields = append(fields, appErrors.FieldError{Field: "to", Message: "must be a date"})
		} else {
			filter.To = &d
		}
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		fields = append(fields, appErrors.FieldError{Field: "from", Message: "must not be after to"})
	}
	if len(fields) > 0 {
		return filter, appErrors.Validation("invalid application filter", fields...)
	}
	return filter, nil
}

func (s *ApplicationService) resolveDepartment(ctx context.Context, officer, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if s.officers == nil {
		return models.NotAvailable, nil
	}
	found, err := s.officers.FindOfficerByName(ctx, officer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NotAvailable, nil
		}
		return "", appErrors.Storage(err, "failed to look up officer")
	}
	return orDefault(found.Department, models.NotAvailable), nil
}

func (s *ApplicationService) mapUpdateError(err error, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("application %s not found", id))
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Storage(err, "failed to update application")
}

// committed runs the side effects that follow a successful write. None of them can fail the operation.
func (s *ApplicationService) committed(ctx context.Context, actor models.Actor, operation, action string, before, after *models.Application) {
	s.metrics.RecordTransition(operation, after.Status)

	s.cache.ForgetApplication(ctx, after.ApplicantID, after.Version)

	if s.audit != nil {
		entry := models.AuditLog{
			Action:     action,
			Resource:   "application",
			ResourceID: &after.ApplicantID,
			IPAddress:  actor.IP,
			UserAgent:  actor.UserAgent,
			RequestID:  actor.RequestID,
		}
		if actor.OfficialID != "" {
			officialID := actor.OfficialID
			entry.OfficialID = &officialID
		}
		if before != nil {
			entry.OldValues = auditSnapshot(before)
		}
		entry.NewValues = auditSnapshot(after)
		s.audit.Record(ctx, entry)
	}

	s.logger.Info("application transition",
		zap.String("operation", operation),
		zap.String("applicant_id", after.ApplicantID),
		zap.String("status", string(after.Status)),
		zap.Int("timeline_entries", len(after.Timeline)),
	)
}

func (s *ApplicationService) fail(operation string, err error) error {
	code := appErrors.ErrInternal.Code
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	s.metrics.RecordLifecycleError(operation, code)
	if code == appErrors.ErrStorage.Code {
		s.logger.Error("application operation failed", zap.String("operation", operation), zap.Error(err))
	}
	return err
}

func (s *ApplicationService) today() models.Date {
	return models.NewDate(s.now().In(s.location))
}

func auditSnapshot(app *models.Application) []byte {
	payload, err := json.Marshal(map[string]interface{}{
		"status":     app.Status,
		"officer":    app.AssignedOfficer,
		"department": app.AssignedDepartment,
		"attachment": app.AttachmentOrNA(),
		"entries":    len(app.Timeline),
	})
	if err != nil {
		return nil
	}
	return payload
}

func newApplicantID() string {
	return "APP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
