package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	opts WriteOptions
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(opts WriteOptions) *CSVWriter {
	return &CSVWriter{opts: opts}
}

// Write writes the header row, when present, and all records.
func (c *CSVWriter) Write(w io.Writer, headers []string, records [][]string) error {
	// Write BOM if requested (helps Excel recognize UTF-8)
	if c.opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)

	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
