package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	printableWidth = 277.0 // A4 landscape less 10mm margins
	rowHeight      = 7.0
	charsPerMM     = 0.55 // Arial 8pt
)

// PDFExporter renders a dataset as an A4 landscape table, repeating the header row on each page.
type PDFExporter struct {
	footer string
}

// NewPDFExporter returns an exporter; a non-empty footer is printed with the page number.
func NewPDFExporter(footer string) *PDFExporter {
	return &PDFExporter{footer: footer}
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }

func (e *PDFExporter) Extension() string { return "pdf" }

func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if err := data.check(); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if e.footer != "" {
		footer := tr(e.footer)
		pdf.SetFooterFunc(func() {
			pdf.SetY(-12)
			pdf.SetFont("Arial", "I", 8)
			pdf.CellFormat(0, 8, fmt.Sprintf("%s - page %d", footer, pdf.PageNo()), "", 0, "C", false, 0, "")
		})
	}

	widths := columnWidths(data)
	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}

	pdf.AddPage()
	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range data.Rows {
		if pdf.GetY()+rowHeight > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], rowHeight, truncate(tr(cell), widths[i]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths spreads the printable width over the columns by weight.
func columnWidths(data Dataset) []float64 {
	out := make([]float64, len(data.Headers))
	total := 0.0
	for i := range out {
		w := 1.0
		if data.Widths != nil && data.Widths[i] > 0 {
			w = data.Widths[i]
		}
		out[i] = w
		total += w
	}
	for i := range out {
		out[i] = out[i] / total * printableWidth
	}
	return out
}

// truncate keeps a cell on one line.
func truncate(value string, width float64) string {
	limit := int(width * charsPerMM)
	if limit < 4 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
