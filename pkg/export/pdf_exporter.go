package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// CaseFile is the printable view of a report: a field summary followed by the
// chronological update log.
type CaseFile struct {
	Title   string
	Fields  []CaseField
	Updates []CaseNote
}

// CaseField is one labelled value in the summary block.
type CaseField struct {
	Label string
	Value string
}

// CaseNote is one entry in the update log.
type CaseNote struct {
	Author string
	Date   string
	Body   string
}

// PDFExporter renders case files into printable PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document for the case file.
func (e *PDFExporter) Render(cf CaseFile) ([]byte, error) {
	if cf.Title == "" {
		return nil, fmt.Errorf("pdf requires a case title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(cf.Title), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 10)
	for _, field := range cf.Fields {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 7, field.Label, "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(145, 7, field.Value, "1", "", false)
	}

	if len(cf.Updates) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Case Updates", "", 1, "", false, 0, "")
		for _, note := range cf.Updates {
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(0, 6, fmt.Sprintf("%s - %s", note.Date, note.Author), "", 1, "", false, 0, "")
			pdf.SetFont("Arial", "", 9)
			pdf.MultiCell(0, 5, note.Body, "", "", false)
			pdf.Ln(2)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
