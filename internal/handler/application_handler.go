package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/middleware"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/service"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/response"
)

type applicationService interface {
	Create(ctx context.Context, actor models.Actor, req service.CreateApplicationRequest) (*models.Application, error)
	Assign(ctx context.Context, actor models.Actor, id string, req service.AssignApplicationRequest) (*models.Application, error)
	MarkCompliance(ctx context.Context, actor models.Actor, id string, req service.CloseApplicationRequest) (*models.Application, error)
	Dispose(ctx context.Context, actor models.Actor, id string, req service.CloseApplicationRequest) (*models.Application, error)
	Get(ctx context.Context, id string) (*models.Application, error)
	Track(ctx context.Context, id string) (*models.TrackingView, bool, error)
	List(ctx context.Context, req service.ListApplicationsRequest) ([]models.Application, *models.Pagination, error)
}

// ApplicationHandler exposes the grievance lifecycle over HTTP.
type ApplicationHandler struct {
	service applicationService
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(svc applicationService) *ApplicationHandler {
	return &ApplicationHandler{service: svc}
}

// Create godoc
// @Summary Register a grievance application
// @Tags Applications
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Idempotency key"
// @Param payload body service.CreateApplicationRequest true "Application"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Create(c *gin.Context) {
	var req service.CreateApplicationRequest
	if err := bindJSON(c, &req, "invalid application payload"); err != nil {
		response.Error(c, err)
		return
	}
	app, err := h.service.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app)
}

// Assign godoc
// @Summary Assign an application to an officer
// @Tags Applications
// @Accept json
// @Produce json
// @Param applicantId path string true "Applicant ID"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param payload body service.AssignApplicationRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{applicantId}/assign [post]
func (h *ApplicationHandler) Assign(c *gin.Context) {
	var req service.AssignApplicationRequest
	if err := bindJSON(c, &req, "invalid assignment payload"); err != nil {
		response.Error(c, err)
		return
	}
	app, err := h.service.Assign(c.Request.Context(), actorFromContext(c), c.Param("applicantId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// MarkCompliance godoc
// @Summary Mark an application as compliance
// @Tags Applications
// @Accept json
// @Produce json
// @Param applicantId path string true "Applicant ID"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param payload body service.CloseApplicationRequest false "Note and attachment"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{applicantId}/compliance [post]
func (h *ApplicationHandler) MarkCompliance(c *gin.Context) {
	var req service.CloseApplicationRequest
	if err := bindJSON(c, &req, "invalid compliance payload"); err != nil {
		response.Error(c, err)
		return
	}
	app, err := h.service.MarkCompliance(c.Request.Context(), actorFromContext(c), c.Param("applicantId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Dispose godoc
// @Summary Dispose an application
// @Tags Applications
// @Accept json
// @Produce json
// @Param applicantId path string true "Applicant ID"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param payload body service.CloseApplicationRequest false "Note and attachment"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{applicantId}/dispose [post]
func (h *ApplicationHandler) Dispose(c *gin.Context) {
	var req service.CloseApplicationRequest
	if err := bindJSON(c, &req, "invalid disposal payload"); err != nil {
		response.Error(c, err)
		return
	}
	app, err := h.service.Dispose(c.Request.Context(), actorFromContext(c), c.Param("applicantId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Get godoc
// @Summary Get the full application record
// @Tags Applications
// @Produce json
// @Param applicantId path string true "Applicant ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{applicantId} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	app, err := h.service.Get(c.Request.Context(), c.Param("applicantId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// Track godoc
// @Summary Public tracking view of an application
// @Tags Tracking
// @Produce json
// @Param applicantId path string true "Applicant ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /track/{applicantId} [get]
func (h *ApplicationHandler) Track(c *gin.Context) {
	view, cached, err := h.service.Track(c.Request.Context(), c.Param("applicantId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

// List godoc
// @Summary List applications
// @Tags Applications
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param block query string false "Originating block"
// @Param officer query string false "Assigned officer"
// @Param search query string false "Identifier, name or subject"
// @Param from query string false "Application date from (DD/MM/YYYY)"
// @Param to query string false "Application date to (DD/MM/YYYY)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	apps, pagination, err := h.service.List(c.Request.Context(), listRequestFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, pagination)
}

func listRequestFromQuery(c *gin.Context) service.ListApplicationsRequest {
	req := service.ListApplicationsRequest{
		Block:    strings.TrimSpace(c.Query("block")),
		Officer:  strings.TrimSpace(c.Query("officer")),
		Search:   strings.TrimSpace(c.Query("search")),
		From:     strings.TrimSpace(c.Query("from")),
		To:       strings.TrimSpace(c.Query("to")),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
	for _, s := range queryList(c, "status") {
		req.Status = append(req.Status, models.ApplicationStatus(s))
	}
	return req
}
