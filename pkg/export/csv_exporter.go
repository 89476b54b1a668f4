// Package export renders tabular rows into downloadable CSV and PDF files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// utf8BOM makes spreadsheet tools read accented text correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Column is one exported field. Width is only used by the PDF renderer, in mm.
type Column struct {
	Key   string
	Title string
	Width float64
}

// Dataset is the content of one export.
type Dataset struct {
	Columns []Column
	Rows    []map[string]string
}

func (d Dataset) validate() error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset requires at least one column")
	}
	return nil
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		out[i] = row[col.Key]
	}
	return out
}

// CSVExporter renders datasets as UTF-8 CSV with a header row.
type CSVExporter struct {
	BOM bool
}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{BOM: true}
}

func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	if e.BOM {
		buf.Write(utf8BOM)
	}
	writer := csv.NewWriter(buf)
	titles := make([]string, len(data.Columns))
	for i, col := range data.Columns {
		titles[i] = col.Title
	}
	if err := writer.Write(titles); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range data.Rows {
		if err := writer.Write(data.record(row)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
