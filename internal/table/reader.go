package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// maxXLSRows bounds how many rows are read from a legacy workbook.
const maxXLSRows = 1 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadOptions tunes how an input file is decoded.
type ReadOptions struct {
	// Sheet selects a worksheet by name; empty means the first sheet.
	Sheet string
	// Comma forces the CSV delimiter; zero means detect from the header line.
	Comma rune
}

// Format identifies an input file type from its name.
func Format(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv", ".txt":
		return "csv", nil
	case ".xlsx", ".xlsm":
		return "xlsx", nil
	case ".xls":
		return "xls", nil
	default:
		return "", fmt.Errorf("%w: %q (want .csv, .txt, .xlsx, .xlsm or .xls)", ErrUnsupportedFormat, ext)
	}
}

// Read decodes r into a Table, choosing the decoder from filename's
// extension.
func Read(r io.Reader, filename string, opts ReadOptions) (*Table, error) {
	format, err := Format(filename)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	var records [][]string
	switch format {
	case "csv":
		records, err = readCSV(data, opts.Comma)
	case "xlsx":
		records, err = readXLSX(data, opts.Sheet)
	case "xls":
		records, err = readXLS(data, opts.Sheet)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	return FromRecords(records)
}

// ReadFile opens path and reads it with Read.
func ReadFile(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, filepath.Base(path), opts)
}

func readCSV(data []byte, comma rune) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if comma == 0 {
		comma = sniffDelimiter(data)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return records, nil
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab in the
// first non-blank line.
func sniffDelimiter(data []byte) rune {
	var line []byte
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			line, data = data, nil
		} else {
			line, data = data[:i], data[i+1:]
		}
		if len(bytes.TrimSpace(line)) > 0 {
			break
		}
	}

	best, bestCount := ',', 0
	for _, c := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func readXLSX(data []byte, sheet string) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	name := file.GetSheetName(0)
	if sheet != "" {
		name = ""
		for _, candidate := range file.GetSheetList() {
			if candidate == sheet {
				name = candidate
				break
			}
		}
		if name == "" {
			return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
		}
	}
	if name == "" {
		return nil, ErrSheetNotFound
	}

	rows, err := file.GetRows(name)
	if err != nil {
		return nil, err
	}
	return rectangular(rows), nil
}

// rectangular pads every row to the widest one. Spreadsheet readers drop
// trailing empty cells, which would otherwise hide a blank header cell that
// has data below it.
func rectangular(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	for i, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		}
	}
	return rows
}

func readXLS(data []byte, sheet string) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook.NumSheets() == 0 {
		return nil, ErrSheetNotFound
	}

	var ws *xls.WorkSheet
	if sheet == "" {
		ws = workbook.GetSheet(0)
	} else {
		for i := 0; i < workbook.NumSheets(); i++ {
			if s := workbook.GetSheet(i); s != nil && s.Name == sheet {
				ws = s
				break
			}
		}
	}
	if ws == nil {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}

	last := int(ws.MaxRow)
	if last >= maxXLSRows {
		last = maxXLSRows - 1
	}
	records := make([][]string, 0, last+1)
	for i := 0; i <= last; i++ {
		row := ws.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		records = append(records, cells)
	}
	return rectangular(records), nil
}
