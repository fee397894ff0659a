package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/service"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
)

type fakeExportSrv struct {
	format string
	req    service.ListApplicationsRequest
	id     string
}

func (f *fakeExportSrv) Register(_ context.Context, _ models.Actor, req service.ListApplicationsRequest, format string) (*service.ExportFile, error) {
	f.req, f.format = req, format
	if format == "xlsx" {
		return nil, appErrors.Validation("invalid export request", appErrors.FieldError{Field: "format", Message: "must be one of csv pdf"})
	}
	return &service.ExportFile{Filename: "applications.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("Applicant ID\nAPP001\n")}, nil
}

func (f *fakeExportSrv) Timeline(_ context.Context, _ models.Actor, id string) (*service.ExportFile, error) {
	f.id = id
	return &service.ExportFile{Filename: "timeline-" + id + ".pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil
}

func TestExportHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeExportSrv{}
	h := NewExportHandler(srv)
	r := gin.New()
	r.GET("/applications/export", h.Register)
	r.GET("/applications/:applicantId/timeline.pdf", h.Timeline)

	w := doRequest(r, http.MethodGet, "/applications/export?format=csv&status=Disposed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="applications.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, []models.ApplicationStatus{models.StatusDisposed}, srv.req.Status)

	w = doRequest(r, http.MethodGet, "/applications/export?format=xlsx", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/applications/APP001/timeline.pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "APP001", srv.id)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}
