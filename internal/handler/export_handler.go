package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/service"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/response"
)

type exportService interface {
	Register(ctx context.Context, actor models.Actor, req service.ListApplicationsRequest, format string) (*service.ExportFile, error)
	Timeline(ctx context.Context, actor models.Actor, id string) (*service.ExportFile, error)
}

// ExportHandler streams rendered registers and timelines.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Register godoc
// @Summary Export the application register
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param status query string false "Comma separated statuses"
// @Param block query string false "Originating block"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /applications/export [get]
func (h *ExportHandler) Register(c *gin.Context) {
	file, err := h.service.Register(c.Request.Context(), actorFromContext(c), listRequestFromQuery(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// Timeline godoc
// @Summary Export one application's timeline as PDF
// @Tags Exports
// @Produce application/pdf
// @Param applicantId path string true "Applicant ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /applications/{applicantId}/timeline.pdf [get]
func (h *ExportHandler) Timeline(c *gin.Context) {
	file, err := h.service.Timeline(c.Request.Context(), actorFromContext(c), c.Param("applicantId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

func sendFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
