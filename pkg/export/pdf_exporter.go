package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const pageWidth = 190.0

// PDFExporter renders datasets into a tabular A4 document.
type PDFExporter struct {
	// Widths optionally fixes column widths in mm, keyed by header.
	Widths map[string]float64
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) columnWidths(headers []string) []float64 {
	widths := make([]float64, len(headers))
	fixed, free := 0.0, 0
	for i, h := range headers {
		if w, ok := e.Widths[h]; ok && w > 0 {
			widths[i] = w
			fixed += w
		} else {
			free++
		}
	}
	if free > 0 {
		share := (pageWidth - fixed) / float64(free)
		if share < 10 {
			share = 10
		}
		for i := range widths {
			if widths[i] == 0 {
				widths[i] = share
			}
		}
	}
	return widths
}

// Render creates a PDF document with title, table body and summary lines.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
	}
	if data.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(data.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	widths := e.columnWidths(data.Headers)
	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range data.Rows {
		if pdf.GetY()+7 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for i, value := range data.record(row) {
			pdf.CellFormat(widths[i], 7, tr(value), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(data.Summary) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "", 10)
		for _, line := range data.Summary {
			pdf.CellFormat(0, 6, tr(line), "", 1, "", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
