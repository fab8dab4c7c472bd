package table

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFromRecords(t *testing.T) {
	records := [][]string{
		{"", ""},
		{" Product ", "Jan-26", "Feb-26", ""},
		{"A", "10", "20"},
		{"", "", "", ""},
		{"B", "30"},
	}

	tbl, err := FromRecords(records)
	require.NoError(t, err)

	assert.Equal(t, []string{"Product", "Jan-26", "Feb-26"}, tbl.Columns)
	assert.Equal(t, [][]string{{"A", "10", "20"}, {"B", "30", ""}}, tbl.Rows)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 3, tbl.Width())
}

func TestFromRecords_HeaderNames(t *testing.T) {
	tbl, err := FromRecords([][]string{{"A", "", "A", "A", "A.1", "B"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "Unnamed: 1", "A.1", "A.2", "A.1.1", "B"}, tbl.Columns)
	assert.Empty(t, tbl.Rows)
}

func TestFromRecords_BlankTrailingHeaderWithData(t *testing.T) {
	tbl, err := FromRecords([][]string{
		{"Product", "Jan-26", "", ""},
		{"A", "1", "5"},
		{"B", "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Product", "Jan-26", "Unnamed: 2"}, tbl.Columns)
	assert.Equal(t, [][]string{{"A", "1", "5"}, {"B", "2", ""}}, tbl.Rows)
}

func TestRead_CSVBlankLastHeader(t *testing.T) {
	tbl, err := Read(strings.NewReader("Product,Jan-26,\nA,1,5\n"), "data.csv", ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Product", "Jan-26", "Unnamed: 2"}, tbl.Columns)
	assert.Equal(t, [][]string{{"A", "1", "5"}}, tbl.Rows)
}

func TestRead_XLSXBlankLastHeader(t *testing.T) {
	data := workbook(t, map[string][][]interface{}{
		"Sheet1": {
			{"Product", "Jan-26"},
			{"A", 1, 5},
		},
	})

	tbl, err := Read(bytes.NewReader(data), "upload.xlsx", ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Product", "Jan-26", "Unnamed: 2"}, tbl.Columns)
	assert.Equal(t, [][]string{{"A", "1", "5"}}, tbl.Rows)
}

func TestFromRecords_Errors(t *testing.T) {
	_, err := FromRecords(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = FromRecords([][]string{{" ", ""}, {}})
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = FromRecords([][]string{{"A", "B"}, {"1", "2", "3"}})
	assert.ErrorIs(t, err, ErrRaggedRow)
	assert.Contains(t, err.Error(), "row 2")
}

func TestTableAccessors(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Product", "Jan-26"},
		Rows:    [][]string{{"A", "1"}, {"B", "2"}, {"C", "3"}},
	}

	assert.Equal(t, 1, tbl.Index("Jan-26"))
	assert.Equal(t, -1, tbl.Index("Feb-26"))
	assert.True(t, tbl.Has("Product"))

	col, ok := tbl.Column("Product")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "C"}, col)
	_, ok = tbl.Column("Missing")
	assert.False(t, ok)

	assert.Len(t, tbl.Head(2), 2)
	assert.Len(t, tbl.Head(10), 3)
	assert.Len(t, tbl.Head(-1), 3)
}

func TestRead_CSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"comma", "Product,Jan-26,Feb-26\nA,1,2\n"},
		{"semicolon", "Product;Jan-26;Feb-26\nA;1;2\n"},
		{"tab", "Product\tJan-26\tFeb-26\nA\t1\t2\n"},
		{"bom", "\ufeffProduct,Jan-26,Feb-26\r\nA,1,2\r\n"},
		{"leading blank lines", "\n\nProduct,Jan-26,Feb-26\nA,1,2\n"},
		{"quoted", "\"Product\",\"Jan-26\",\"Feb-26\"\n\"A\",\"1\",\"2\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Read(strings.NewReader(tt.input), "data.csv", ReadOptions{})
			require.NoError(t, err)
			assert.Equal(t, []string{"Product", "Jan-26", "Feb-26"}, tbl.Columns)
			assert.Equal(t, [][]string{{"A", "1", "2"}}, tbl.Rows)
		})
	}
}

func TestRead_CSVForcedDelimiter(t *testing.T) {
	tbl, err := Read(strings.NewReader("a|b\n1|2\n"), "data.txt", ReadOptions{Comma: '|'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Columns)
}

func TestRead_UnsupportedFormat(t *testing.T) {
	_, err := Read(strings.NewReader("{}"), "data.json", ReadOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRead_XLSX(t *testing.T) {
	data := workbook(t, map[string][][]interface{}{
		"Sheet1": {
			{"Product", "Jan-26", "Feb-26"},
			{"A", 10, 20},
			{"B", 30, 40},
		},
		"Other": {
			{"Region", "2025"},
			{"North", 5},
		},
	})

	tbl, err := Read(bytes.NewReader(data), "upload.xlsx", ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Product", "Jan-26", "Feb-26"}, tbl.Columns)
	assert.Equal(t, [][]string{{"A", "10", "20"}, {"B", "30", "40"}}, tbl.Rows)

	tbl, err = Read(bytes.NewReader(data), "upload.XLSX", ReadOptions{Sheet: "Other"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Region", "2025"}, tbl.Columns)

	_, err = Read(bytes.NewReader(data), "upload.xlsx", ReadOptions{Sheet: "Missing"})
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestRead_CorruptWorkbook(t *testing.T) {
	_, err := Read(strings.NewReader("not a zip"), "upload.xlsx", ReadOptions{})
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte("Product,2025\nA,1\n"), 0o644))

	tbl, err := ReadFile(path, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Product", "2025"}, tbl.Columns)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"), ReadOptions{})
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	for name, want := range map[string]string{
		"a.csv": "csv", "a.TXT": "csv", "a.xlsx": "xlsx", "a.xlsm": "xlsx", "a.xls": "xls",
	} {
		got, err := Format(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func workbook(t *testing.T, sheets map[string][][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if _, ok := sheets["Sheet1"]; !ok {
		t.Fatal("fixture needs a Sheet1")
	}
	for name, rows := range sheets {
		if name != "Sheet1" {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(name, cell, &r))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}
