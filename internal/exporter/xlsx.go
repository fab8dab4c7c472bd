package exporter

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXWriter writes a single-sheet workbook through excelize's stream writer.
type XLSXWriter struct {
	opts WriteOptions
}

// NewXLSXWriter creates a new XLSX writer instance
func NewXLSXWriter(opts WriteOptions) *XLSXWriter {
	return &XLSXWriter{opts: opts}
}

// Write writes the header row and records as one worksheet.
func (x *XLSXWriter) Write(w io.Writer, headers []string, records [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := defaultSheet
	if x.opts.SheetName != "" && x.opts.SheetName != defaultSheet {
		sheet = x.opts.SheetName
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	numeric := make(map[int]bool)
	for i, h := range headers {
		for _, n := range x.opts.NumericColumns {
			if h == n {
				numeric[i] = true
			}
		}
	}

	row := 1
	if len(headers) > 0 {
		if err := setRow(sw, row, headers, nil); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
		row++
	}
	for i, record := range records {
		if err := setRow(sw, row, record, numeric); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
		row++
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(sw *excelize.StreamWriter, row int, cells []string, numeric map[int]bool) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
		if numeric[i] {
			if v, err := strconv.ParseFloat(strings.TrimSpace(c), 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
				values[i] = v
			}
		}
	}
	return sw.SetRow(cell, values)
}
