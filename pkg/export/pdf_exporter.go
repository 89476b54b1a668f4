package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 277.0
	lineHeight = 5.0
)

// PDFExporter renders datasets as a landscape table with a repeated header.
type PDFExporter struct {
	now func() time.Time
}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	widths := columnWidths(data.Columns)

	pdf := gofpdf.New("L", "mm", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range data.Columns {
			pdf.CellFormat(widths[i], 7, tr(col.Title), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		if title != "" {
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
		}
		header()
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Arial", "I", 7)
		stamp := e.now().Format("2006-01-02 15:04")
		pdf.CellFormat(0, 5, fmt.Sprintf("%s  pagina %d", stamp, pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	for _, row := range data.Rows {
		record := data.record(row)
		lines := 1
		for i, value := range record {
			if n := len(pdf.SplitLines([]byte(tr(value)), widths[i]-2)); n > lines {
				lines = n
			}
		}
		height := float64(lines) * lineHeight
		_, pageHeight := pdf.GetPageSize()
		_, _, _, bottom := pdf.GetMargins()
		if pdf.GetY()+height > pageHeight-bottom {
			pdf.AddPage()
		}
		x, y := pdf.GetXY()
		for i, value := range record {
			pdf.Rect(x, y, widths[i], height, "D")
			pdf.MultiCell(widths[i], lineHeight, tr(value), "", "L", false)
			x += widths[i]
			pdf.SetXY(x, y)
		}
		pdf.SetXY(10, y+height)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths honors fixed widths and splits the rest of the page evenly.
func columnWidths(cols []Column) []float64 {
	out := make([]float64, len(cols))
	fixed, flexible := 0.0, 0
	for _, c := range cols {
		if c.Width > 0 {
			fixed += c.Width
		} else {
			flexible++
		}
	}
	share := 0.0
	if flexible > 0 && fixed < pageWidth {
		share = (pageWidth - fixed) / float64(flexible)
	}
	for i, c := range cols {
		out[i] = c.Width
		if out[i] <= 0 {
			out[i] = share
		}
	}
	return out
}
