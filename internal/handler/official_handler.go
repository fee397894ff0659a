package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/service"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/response"
)

type officialService interface {
	Officers(ctx context.Context, department string) ([]models.Officer, error)
	List(ctx context.Context, req service.ListOfficialsRequest) ([]models.Official, *models.Pagination, error)
	Create(ctx context.Context, actor models.Actor, req service.CreateOfficialRequest) (*models.Official, error)
}

// OfficialHandler serves the officials directory.
type OfficialHandler struct {
	service officialService
}

// NewOfficialHandler constructs the handler.
func NewOfficialHandler(svc officialService) *OfficialHandler {
	return &OfficialHandler{service: svc}
}

// Officers godoc
// @Summary List assignable officers
// @Tags Officials
// @Produce json
// @Param department query string false "Department"
// @Success 200 {object} response.Envelope
// @Router /officers [get]
func (h *OfficialHandler) Officers(c *gin.Context) {
	officers, err := h.service.Officers(c.Request.Context(), c.Query("department"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, officers, nil)
}

// List godoc
// @Summary List officials
// @Tags Officials
// @Produce json
// @Param role query string false "ADMIN or SUPERVISOR"
// @Param active query bool false "Active flag"
// @Param search query string false "Name or email"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /officials [get]
func (h *OfficialHandler) List(c *gin.Context) {
	req := service.ListOfficialsRequest{
		Role:     strings.TrimSpace(c.Query("role")),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			req.Active = &active
		}
	}
	officials, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, officials, pagination)
}

// Create godoc
// @Summary Register an official
// @Tags Officials
// @Accept json
// @Produce json
// @Param payload body service.CreateOfficialRequest true "Official"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /officials [post]
func (h *OfficialHandler) Create(c *gin.Context) {
	var req service.CreateOfficialRequest
	if err := bindJSON(c, &req, "invalid official payload"); err != nil {
		response.Error(c, err)
		return
	}
	official, err := h.service.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, official)
}
