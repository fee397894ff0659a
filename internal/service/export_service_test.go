package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
)

func seededExportRepo(t *testing.T, n int) *memoryApplicationRepo {
	t.Helper()
	repo := newMemoryApplicationRepo()
	svc := newTestApplicationService(t, repo)
	for i := 0; i < n; i++ {
		_, err := svc.Create(context.Background(), clerk, validCreate(fmt.Sprintf("APP%03d", i)))
		require.NoError(t, err)
	}
	return repo
}

func newTestExportService(repo exportSource, audit auditRecorder) *ExportService {
	svc := NewExportService(repo, audit, ExportConfig{}, zap.NewNop(), nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 1, 12, 9, 30, 0, 0, time.UTC) }
	return svc
}

func TestExportRegisterCSV(t *testing.T) {
	repo := seededExportRepo(t, 2)
	audit := &recordingAudit{}
	svc := newTestExportService(repo, audit)

	file, err := svc.Register(context.Background(), clerk, ListApplicationsRequest{}, "")
	require.NoError(t, err)
	assert.Equal(t, "applications-20240112-093000.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Applicant ID,Applicant Name,Application Date"))
	assert.Contains(t, string(file.Data), "NotAssignedYet")

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionExport, audit.entries[0].Action)
}

func TestExportRegisterPagesThroughResults(t *testing.T) {
	repo := seededExportRepo(t, exportPageSize+5)
	svc := newTestExportService(repo, nil)

	file, err := svc.Register(context.Background(), clerk, ListApplicationsRequest{}, "CSV")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	assert.Len(t, lines, exportPageSize+6)
}

func TestExportRegisterPDFAndErrors(t *testing.T) {
	repo := seededExportRepo(t, 1)
	svc := newTestExportService(repo, nil)
	ctx := context.Background()

	file, err := svc.Register(ctx, clerk, ListApplicationsRequest{}, "pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF-")))
	assert.Equal(t, "application/pdf", file.ContentType)

	_, err = svc.Register(ctx, clerk, ListApplicationsRequest{}, "xlsx")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	repo.listErr = errors.New("db down")
	_, err = svc.Register(ctx, clerk, ListApplicationsRequest{}, "csv")
	assert.Equal(t, appErrors.ErrStorage.Code, appErrors.FromError(err).Code)
}

func TestExportTimeline(t *testing.T) {
	repo := seededExportRepo(t, 1)
	svc := newTestExportService(repo, nil)

	file, err := svc.Timeline(context.Background(), clerk, "APP000")
	require.NoError(t, err)
	assert.Equal(t, "timeline-APP000.pdf", file.Filename)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF-")))

	_, err = svc.Timeline(context.Background(), clerk, "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimelineDatasetRows(t *testing.T) {
	app := &models.Application{ApplicantID: "APP001", ApplicantName: "Ravi Kumar", Timeline: models.Timeline{
		{Section: models.SectionReceived, Date: models.Date{Year: 2024, Month: time.January, Day: 10}, Status: models.StatusNotAssignedYet, Officer: "N/A", Department: "N/A", Attachment: "N/A", RecordedBy: "Clerk"},
	}}
	data := timelineDataset(app)
	assert.Equal(t, "Timeline - APP001 (Ravi Kumar)", data.Title)
	require.Len(t, data.Rows, 1)
	assert.Equal(t, "10/01/2024", data.Rows[0][0])
	assert.Equal(t, "Clerk", data.Rows[0][7])
}
