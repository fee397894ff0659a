package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/service"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/response"
)

type attachmentService interface {
	Upload(ctx context.Context, actor models.Actor, upload service.AttachmentUpload) (string, error)
	Link(ctx context.Context, reference string) (*service.AttachmentLink, error)
	Download(ctx context.Context, token string) (*service.AttachmentDownload, error)
}

// AttachmentHandler accepts and serves supporting documents.
type AttachmentHandler struct {
	service attachmentService
}

// NewAttachmentHandler constructs the handler.
func NewAttachmentHandler(svc attachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: svc}
}

// Upload godoc
// @Summary Upload a supporting document
// @Tags Attachments
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Validation("invalid attachment", appErrors.FieldError{Field: "file", Message: "is required"}))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to read upload"))
		return
	}
	defer file.Close()

	reference, err := h.service.Upload(c.Request.Context(), actorFromContext(c), service.AttachmentUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"reference": reference})
}

// Link godoc
// @Summary Get a signed download link
// @Tags Attachments
// @Produce json
// @Param reference query string true "Attachment reference"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attachments/link [get]
func (h *AttachmentHandler) Link(c *gin.Context) {
	link, err := h.service.Link(c.Request.Context(), c.Query("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Download a document with a signed token
// @Tags Attachments
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /attachments/download [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	download, err := h.service.Download(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Cache-Control", "private, no-store")
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", download.Filename))
	c.DataFromReader(http.StatusOK, download.SizeBytes, download.MimeType, download.File, nil)
}
