package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/repository"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
)

type officialRepository interface {
	List(ctx context.Context, filter models.OfficialFilter, page, pageSize int) ([]models.Official, int, error)
	ListOfficers(ctx context.Context, department string) ([]models.Officer, error)
	FindByID(ctx context.Context, id string) (*models.Official, error)
	Create(ctx context.Context, official *models.Official) error
}

// CreateOfficialRequest represents payload for registering officials.
type CreateOfficialRequest struct {
	Email       string              `json:"email" validate:"required,email"`
	FullName    string              `json:"fullName" validate:"required,max=120"`
	Role        models.OfficialRole `json:"role" validate:"required,oneof=ADMIN SUPERVISOR"`
	Department  string              `json:"department" validate:"max=120"`
	Designation string              `json:"designation" validate:"max=120"`
	Block       string              `json:"block" validate:"max=120"`
	Password    string              `json:"password" validate:"required,min=8"`
}

// ListOfficialsRequest carries list filters from the query string.
type ListOfficialsRequest struct {
	Role     string
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// OfficialService manages the officials directory.
type OfficialService struct {
	repo      officialRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOfficialService creates an instance of OfficialService.
func NewOfficialService(repo officialRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *OfficialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &OfficialService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// Officers returns the active admin officials applications can be assigned to.
func (s *OfficialService) Officers(ctx context.Context, department string) ([]models.Officer, error) {
	officers, err := s.repo.ListOfficers(ctx, strings.TrimSpace(department))
	if err != nil {
		return nil, appErrors.Storage(err, "failed to list officers")
	}
	if officers == nil {
		officers = []models.Officer{}
	}
	return officers, nil
}

// List returns paginated officials and pagination metadata.
func (s *OfficialService) List(ctx context.Context, req ListOfficialsRequest) ([]models.Official, *models.Pagination, error) {
	filter := models.OfficialFilter{Active: req.Active, Search: strings.TrimSpace(req.Search)}
	if req.Role != "" {
		role := models.OfficialRole(strings.ToUpper(req.Role))
		if !role.Valid() {
			return nil, nil, appErrors.Validation("invalid officials filter", appErrors.FieldError{Field: "role", Message: "must be one of ADMIN SUPERVISOR"})
		}
		filter.Role = &role
	}

	officials, total, err := s.repo.List(ctx, filter, req.Page, req.PageSize)
	if err != nil {
		return nil, nil, appErrors.Storage(err, "failed to list officials")
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return officials, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns an official by ID.
func (s *OfficialService) Get(ctx context.Context, id string) (*models.Official, error) {
	official, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "official not found")
		}
		return nil, appErrors.Storage(err, "failed to load official")
	}
	return official, nil
}

// Create registers a new official. Admins need a department so assignments can snapshot it.
func (s *OfficialService) Create(ctx context.Context, actor models.Actor, req CreateOfficialRequest) (*models.Official, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	req.Department = strings.TrimSpace(req.Department)
	req.Block = strings.TrimSpace(req.Block)

	var extra []appErrors.FieldError
	if req.Role == models.RoleAdmin && req.Department == "" {
		extra = append(extra, appErrors.FieldError{Field: "department", Message: "is required for ADMIN officials"})
	}
	if req.Role == models.RoleSupervisor && req.Block == "" {
		extra = append(extra, appErrors.FieldError{Field: "block", Message: "is required for SUPERVISOR officials"})
	}
	if err := validate(s.validator, req, "invalid create official payload", extra...); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	official := &models.Official{
		ID:           uuid.NewString(),
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         req.Role,
		Department:   req.Department,
		Designation:  strings.TrimSpace(req.Designation),
		Block:        req.Block,
		Active:       true,
		PasswordHash: string(passwordHash),
	}

	if err := s.repo.Create(ctx, official); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, appErrors.Storage(err, "failed to create official")
	}

	if s.audit != nil {
		payload, _ := json.Marshal(map[string]interface{}{"id": official.ID, "email": official.Email, "role": official.Role})
		actorID := actor.OfficialID
		s.audit.Record(ctx, models.AuditLog{
			OfficialID: optional(actorID),
			Action:     models.AuditActionOfficialCreate,
			Resource:   "officials",
			ResourceID: &official.ID,
			NewValues:  payload,
			IPAddress:  actor.IP,
			UserAgent:  actor.UserAgent,
			RequestID:  actor.RequestID,
		})
	}
	s.logger.Info("official registered", zap.String("official_id", official.ID), zap.String("role", string(official.Role)))

	return official, nil
}
