package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/service"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
)

type fakeAttachmentSrv struct {
	uploaded []byte
	filename string
	path     string
}

func (f *fakeAttachmentSrv) Upload(_ context.Context, _ models.Actor, upload service.AttachmentUpload) (string, error) {
	f.filename = upload.Filename
	data, err := io.ReadAll(upload.Content)
	if err != nil {
		return "", err
	}
	f.uploaded = data
	return "2024/01/abc.pdf", nil
}

func (f *fakeAttachmentSrv) Link(_ context.Context, reference string) (*service.AttachmentLink, error) {
	if reference == "" {
		return nil, appErrors.Validation("invalid attachment reference", appErrors.FieldError{Field: "reference", Message: "is required"})
	}
	return &service.AttachmentLink{Reference: reference, URL: "/api/v1/attachments/download?token=t", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAttachmentSrv) Download(_ context.Context, token string) (*service.AttachmentDownload, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	info, _ := file.Stat()
	return &service.AttachmentDownload{File: file, Filename: "abc.pdf", MimeType: "application/pdf", SizeBytes: info.Size()}, nil
}

func newAttachmentRouter(srv *fakeAttachmentSrv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAttachmentHandler(srv)
	r := gin.New()
	r.POST("/attachments", h.Upload)
	r.GET("/attachments/link", h.Link)
	r.GET("/attachments/download", h.Download)
	return r
}

func TestAttachmentUploadMultipart(t *testing.T) {
	srv := &fakeAttachmentSrv{}
	r := newAttachmentRouter(srv)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "letter.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4 body"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/attachments", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "letter.pdf", srv.filename)
	assert.Equal(t, []byte("%PDF-1.4 body"), srv.uploaded)
	assert.Contains(t, w.Body.String(), `"reference":"2024/01/abc.pdf"`)
}

func TestAttachmentUploadMissingFile(t *testing.T) {
	r := newAttachmentRouter(&fakeAttachmentSrv{})
	req := httptest.NewRequest(http.MethodPost, "/attachments", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"file"`)
}

func TestAttachmentLinkAndDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 body"), 0o600))
	r := newAttachmentRouter(&fakeAttachmentSrv{path: path})

	w := doRequest(r, http.MethodGet, "/attachments/link?reference=2024/01/abc.pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "download?token=t")

	w = doRequest(r, http.MethodGet, "/attachments/link", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/attachments/download?token=good", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4 body", w.Body.String())

	w = doRequest(r, http.MethodGet, "/attachments/download?token=bad", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
