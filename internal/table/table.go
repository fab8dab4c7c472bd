// Package table loads rectangular, header-first data from CSV and
// spreadsheet files.
package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptyInput        = errors.New("input has no header row")
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrRaggedRow         = errors.New("row has more cells than the header")
	ErrSheetNotFound     = errors.New("worksheet not found")
)

// Table is a header row plus data rows. Every row has exactly len(Columns)
// cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// FromRecords builds a Table from raw records. The first non-blank record is
// the header: cells are trimmed, blank names become "Unnamed: <index>" and
// repeated names get ".1", ".2" suffixes. Trailing blank header cells are
// dropped unless a data row has a value under them. Blank records are
// dropped and short records are padded with empty cells.
func FromRecords(records [][]string) (*Table, error) {
	start := -1
	for i, rec := range records {
		if !blank(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrEmptyInput
	}

	header := records[start]
	width := len(trimTrailingEmpty(header))
	for _, rec := range records[start+1:] {
		if n := len(trimTrailingEmpty(rec)); n > width {
			width = min(n, len(header))
		}
	}
	t := &Table{Columns: headerNames(header[:width])}

	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if blank(rec) {
			continue
		}
		rec = trimTrailingEmpty(rec)
		if len(rec) > width {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d", ErrRaggedRow, i+1, len(rec), width)
		}
		row := make([]string, width)
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]string, bool) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Head returns up to n leading rows.
func (t *Table) Head(n int) [][]string {
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return t.Rows[:n]
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.Columns) }

func headerNames(rec []string) []string {
	names := make([]string, len(rec))
	used := make(map[string]bool, len(rec))
	suffix := make(map[string]int)
	for i, cell := range rec {
		name := strings.TrimSpace(cell)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if used[name] {
			base := name
			for used[name] {
				suffix[base]++
				name = base + "." + strconv.Itoa(suffix[base])
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func blank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func trimTrailingEmpty(rec []string) []string {
	end := len(rec)
	for end > 0 && strings.TrimSpace(rec[end-1]) == "" {
		end--
	}
	return rec[:end]
}
