package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/middleware"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/service"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, req service.DashboardRequest) (*models.StatusSummary, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Application counts per status and block
// @Tags Dashboard
// @Produce json
// @Param block query string false "Originating block"
// @Param from query string false "Application date from (DD/MM/YYYY)"
// @Param to query string false "Application date to (DD/MM/YYYY)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	start := time.Now()
	summary, cacheHit, err := h.service.Summary(c.Request.Context(), service.DashboardRequest{
		Block: c.Query("block"),
		From:  c.Query("from"),
		To:    c.Query("to"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, "generated_in_ms", time.Since(start).Milliseconds())
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}
