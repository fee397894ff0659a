package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Application Register",
		Headers: []string{"Applicant ID", "Name", "Status"},
		Rows: [][]string{
			{"APP001", "Ravi Kumar", "NotAssignedYet"},
			{"APP002", "Sita, Devi", "Compliance"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Applicant ID,Name,Status", lines[0])
	assert.Equal(t, `APP002,"Sita, Devi",Compliance`, lines[2])
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, []string{"only-one"})
	_, err := NewCSVExporter().Render(data)
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter("DakPad").Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Equal(t, "application/pdf", NewPDFExporter("").ContentType())
}

func TestCSVExporterDefusesFormulas(t *testing.T) {
	data := sampleDataset()
	data.Rows = [][]string{{"APP003", "=HYPERLINK(\"x\")", "-1"}}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Equal(t, `APP003,"'=HYPERLINK(""x"")",'-1`, lines[1])
}

func TestColumnWidthsFollowWeights(t *testing.T) {
	data := sampleDataset()
	data.Widths = []float64{1, 2, 1}
	widths := columnWidths(data)
	assert.InDelta(t, printableWidth/2, widths[1], 0.001)
	assert.InDelta(t, printableWidth/4, widths[0], 0.001)

	data.Widths = []float64{1}
	_, err := NewPDFExporter("").Render(data)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, 27, len(truncate(strings.Repeat("x", 100), 50)))
}
