// Package unpivot melts a wide table, one column per period, into the long
// KEYFIGURE / dimensions / PERIODID / VALUE layout used for IBP uploads.
package unpivot

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"ibpconv/internal/period"
	"ibpconv/internal/table"
)

// Reserved output columns.
const (
	ColumnKeyFigure = "KEYFIGURE"
	ColumnPeriodID  = "PERIODID"
	ColumnValue     = "VALUE"
)

var (
	ErrNoDateColumns      = errors.New("no date columns selected")
	ErrUnknownColumn      = errors.New("column not found in input")
	ErrDuplicateColumn    = errors.New("duplicate output column")
	ErrColumnOverlap      = errors.New("column used as both dimension and date")
	ErrMissingKeyFigure   = errors.New("key figure is required")
	ErrInvalidGranularity = errors.New("invalid granularity")
	ErrPeriodCollision    = errors.New("date columns resolve to the same period")
)

// Dimension maps an input column to an output column name.
type Dimension struct {
	Name   string `json:"name" yaml:"name"`
	Column string `json:"column" yaml:"column"`
}

// ParseDimension reads "NAME=Column" or a bare "Column", which keeps the
// input name.
func ParseDimension(s string) (Dimension, error) {
	name, column, found := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	column = strings.TrimSpace(column)
	if !found {
		column = name
	}
	if name == "" || column == "" {
		return Dimension{}, fmt.Errorf("invalid dimension %q: want NAME=Column or Column", s)
	}
	return Dimension{Name: name, Column: column}, nil
}

// Options controls a Melt.
type Options struct {
	Dimensions []Dimension
	// DateColumns lists the period columns in output order. Empty selects
	// every column that is not a dimension.
	DateColumns []string
	Granularity period.Granularity
	KeyFigure   string
	// SkipEmptyValues drops rows whose VALUE cell is blank.
	SkipEmptyValues bool
	// AllowDuplicatePeriods permits two date columns with the same PERIODID.
	AllowDuplicatePeriods bool
	// Workers bounds header resolution; zero means GOMAXPROCS.
	Workers int
}

// HeaderPeriod is the resolution of one date column.
type HeaderPeriod struct {
	Column   string `json:"column"`
	PeriodID string `json:"period_id"`
	Parsed   bool   `json:"parsed"`
	Strategy string `json:"strategy,omitempty"`
}

// Result is a melted table.
type Result struct {
	Columns []string
	Rows    [][]string
	Headers []HeaderPeriod
}

// Unparsed returns the date columns that did not resolve to a period and were
// passed through unchanged.
func (r *Result) Unparsed() []string {
	var out []string
	for _, h := range r.Headers {
		if !h.Parsed {
			out = append(out, h.Column)
		}
	}
	return out
}

// Records returns the header row followed by the data rows.
func (r *Result) Records() [][]string {
	out := make([][]string, 0, len(r.Rows)+1)
	out = append(out, r.Columns)
	return append(out, r.Rows...)
}

// CandidateDateColumns returns every column of t not mapped to a dimension,
// in table order.
func CandidateDateColumns(t *table.Table, dims []Dimension) []string {
	used := make(map[string]bool, len(dims))
	for _, d := range dims {
		used[d.Column] = true
	}
	var out []string
	for _, c := range t.Columns {
		if !used[c] {
			out = append(out, c)
		}
	}
	return out
}

// ResolveHeaders parses every header into a PERIODID. Headers are resolved
// concurrently; the result keeps input order.
func ResolveHeaders(ctx context.Context, headers []string, g period.Granularity, workers int) ([]HeaderPeriod, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]HeaderPeriod, len(headers))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, h := range headers {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := period.Resolve(h, g)
			out[i] = HeaderPeriod{
				Column:   h,
				PeriodID: res.Token,
				Parsed:   res.Parsed(),
				Strategy: res.Strategy,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Melt unpivots t. Rows are emitted date column by date column, and within
// a date column in input row order.
func Melt(ctx context.Context, t *table.Table, opts Options) (*Result, error) {
	keyFigure := strings.TrimSpace(opts.KeyFigure)
	if keyFigure == "" {
		return nil, ErrMissingKeyFigure
	}
	if !opts.Granularity.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGranularity, opts.Granularity)
	}

	dimIdx, err := dimensionIndexes(t, opts.Dimensions)
	if err != nil {
		return nil, err
	}

	dateCols := opts.DateColumns
	if len(dateCols) == 0 {
		dateCols = CandidateDateColumns(t, opts.Dimensions)
	}
	dateIdx, err := dateIndexes(t, dateCols, opts.Dimensions)
	if err != nil {
		return nil, err
	}

	headers, err := ResolveHeaders(ctx, dateCols, opts.Granularity, opts.Workers)
	if err != nil {
		return nil, err
	}
	if !opts.AllowDuplicatePeriods {
		if err := checkCollisions(headers); err != nil {
			return nil, err
		}
	}

	columns := make([]string, 0, len(opts.Dimensions)+3)
	columns = append(columns, ColumnKeyFigure)
	for _, d := range opts.Dimensions {
		columns = append(columns, d.Name)
	}
	columns = append(columns, ColumnPeriodID, ColumnValue)

	res := &Result{
		Columns: columns,
		Rows:    make([][]string, 0, len(dateIdx)*t.Len()),
		Headers: headers,
	}
	for i, col := range dateIdx {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pid := headers[i].PeriodID
		for _, in := range t.Rows {
			value := in[col]
			if opts.SkipEmptyValues && strings.TrimSpace(value) == "" {
				continue
			}
			row := make([]string, 0, len(columns))
			row = append(row, keyFigure)
			for _, di := range dimIdx {
				row = append(row, in[di])
			}
			row = append(row, pid, value)
			res.Rows = append(res.Rows, row)
		}
	}
	return res, nil
}

func dimensionIndexes(t *table.Table, dims []Dimension) ([]int, error) {
	names := map[string]bool{ColumnKeyFigure: true, ColumnPeriodID: true, ColumnValue: true}
	sources := make(map[string]bool, len(dims))
	idx := make([]int, len(dims))

	for i, d := range dims {
		if d.Name == "" || d.Column == "" {
			return nil, fmt.Errorf("dimension %d: name and column are required", i+1)
		}
		if names[d.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, d.Name)
		}
		if sources[d.Column] {
			return nil, fmt.Errorf("%w: input column %q mapped twice", ErrDuplicateColumn, d.Column)
		}
		names[d.Name] = true
		sources[d.Column] = true

		idx[i] = t.Index(d.Column)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: dimension %q", ErrUnknownColumn, d.Column)
		}
	}
	return idx, nil
}

func dateIndexes(t *table.Table, cols []string, dims []Dimension) ([]int, error) {
	if len(cols) == 0 {
		return nil, ErrNoDateColumns
	}

	dimCols := make(map[string]bool, len(dims))
	for _, d := range dims {
		dimCols[d.Column] = true
	}

	seen := make(map[string]bool, len(cols))
	idx := make([]int, len(cols))
	for i, c := range cols {
		if dimCols[c] {
			return nil, fmt.Errorf("%w: %q", ErrColumnOverlap, c)
		}
		if seen[c] {
			return nil, fmt.Errorf("%w: date column %q selected twice", ErrDuplicateColumn, c)
		}
		seen[c] = true

		idx[i] = t.Index(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: date column %q", ErrUnknownColumn, c)
		}
	}
	return idx, nil
}

func checkCollisions(headers []HeaderPeriod) error {
	first := make(map[string]string, len(headers))
	for _, h := range headers {
		if prev, ok := first[h.PeriodID]; ok {
			return fmt.Errorf("%w: %q and %q both map to %s", ErrPeriodCollision, prev, h.Column, h.PeriodID)
		}
		first[h.PeriodID] = h.Column
	}
	return nil
}
