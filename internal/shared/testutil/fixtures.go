package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// ForecastRecords is a small monthly forecast in wide layout.
func ForecastRecords() [][]string {
	return [][]string{
		{"Product", "Location", "Jan-26", "Feb-26", "Mar-26"},
		{"P100", "DC01", "10", "20", "30"},
		{"P200", "DC01", "5", "", "7"},
	}
}

// CSVBytes encodes records as comma-separated text.
func CSVBytes(t *testing.T, records [][]string) []byte {
	t.Helper()

	path := WriteCSV(t, t.TempDir(), "data.csv", records)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv fixture: %v", err)
	}
	return data
}

// WriteCSV writes records to dir/name and returns the path.
func WriteCSV(t *testing.T, dir, name string, records [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create csv fixture: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		t.Fatalf("write csv fixture: %v", err)
	}
	return path
}

// WorkbookBytes builds an XLSX workbook whose first sheet, named sheet,
// holds records.
func WorkbookBytes(t *testing.T, sheet string, records [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet != "" && sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("rename sheet: %v", err)
		}
	} else {
		sheet = "Sheet1"
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		row := make([]interface{}, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook fixture: %v", err)
	}
	return buf.Bytes()
}
