package exporter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format is an output file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DefaultBaseName is the download name used when the caller gives none.
const DefaultBaseName = "ibp_timeseries_upload"

var ErrUnknownFormat = errors.New("unknown output format")

// Writer serialises a header row and records to w.
type Writer interface {
	Write(w io.Writer, headers []string, records [][]string) error
}

// WriteOptions configures the writers.
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility (CSV only)
	// SheetName names the XLSX worksheet; empty means "Sheet1".
	SheetName string
	// NumericColumns are stored as numbers in XLSX when the cell parses.
	NumericColumns []string
}

// ParseFormat accepts "csv" or "xlsx" in any case, with or without a dot.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	switch f {
	case FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q (want csv or xlsx)", ErrUnknownFormat, s)
	}
}

// FormatFromPath infers the format from a file extension, defaulting to CSV.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// ContentType returns the MIME type for downloads.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// DownloadName returns DefaultBaseName with the format's extension.
func (f Format) DownloadName() string {
	return DefaultBaseName + f.Extension()
}

// NewWriter returns the writer for f.
func NewWriter(f Format, opts WriteOptions) (Writer, error) {
	switch f {
	case FormatCSV:
		return NewCSVWriter(opts), nil
	case FormatXLSX:
		return NewXLSXWriter(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// WriteFile writes headers and records to path, creating parent directories.
func WriteFile(path string, w Writer, headers []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := w.Write(file, headers, records); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
