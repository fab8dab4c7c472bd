// Command ibpconv converts a wide time-series sheet, one column per period,
// into the long format SAP IBP imports.
//
// Usage:
//
//	ibpconv -in forecast.xlsx -out upload.csv -granularity MONTH \
//	    -keyfigure CONSENSUSDEMAND -dim PRODUCTID=Material -dim LOCATIONID=Plant
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"ibpconv/internal/config"
	apierrors "ibpconv/internal/errors"
	"ibpconv/internal/exporter"
	"ibpconv/internal/infrastructure"
	"ibpconv/internal/period"
	"ibpconv/internal/services"
	"ibpconv/internal/table"
	"ibpconv/internal/unpivot"
	"ibpconv/internal/validation"
	"ibpconv/pkg/contracts"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	in, out         string
	granularity     string
	keyFigure       string
	dims, dates     stringList
	sheet           string
	format          string
	skipEmpty       bool
	allowDuplicates bool
	bom             bool
	preview         bool
	logLevel        string
	version         bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}

	opts, err := parseFlags(args, cfg.Conversion, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}

	logger, _, err := infrastructure.NewLogger(config.LoggingConfig{
		Level:  opts.logLevel,
		Format: "text",
		Output: "stderr",
	}, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	logger = infrastructure.WithComponent(logger, "cli")

	c := &converter{opts: opts, logger: logger, stdout: stdout, stderr: stderr}
	if err := c.run(ctx, cfg.Conversion); err != nil {
		logger.Debug("conversion aborted", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "error: %s\n", errorMessage(err))
		var usage usageError
		if errors.As(err, &usage) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

// usageError marks bad flag values, which exit with exitUsage.
type usageError struct{ error }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func parseFlags(args []string, defaults config.ConversionConfig, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("ibpconv", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.in, "in", "", "input file (.csv, .txt, .xlsx, .xlsm or .xls)")
	fs.StringVar(&opts.out, "out", "", "output file (.csv or .xlsx); stdout when empty")
	fs.StringVar(&opts.granularity, "granularity", defaults.DefaultGranularity, "DAY, WEEK, MONTH or YEAR")
	fs.StringVar(&opts.keyFigure, "keyfigure", defaults.DefaultKeyFigure, "KEYFIGURE value written on every row")
	fs.Var(&opts.dims, "dim", "dimension as NAME=COLUMN or COLUMN (repeatable)")
	fs.Var(&opts.dates, "date", "date column to unpivot (repeatable); default is every non-dimension column")
	fs.StringVar(&opts.sheet, "sheet", "", "worksheet name; default is the first sheet")
	fs.StringVar(&opts.format, "format", "", "output format for stdout: csv or xlsx")
	fs.BoolVar(&opts.skipEmpty, "skip-empty", defaults.SkipEmptyValues, "drop rows with a blank VALUE")
	fs.BoolVar(&opts.allowDuplicates, "allow-duplicates", defaults.AllowDuplicatePeriods, "allow date columns that map to the same PERIODID")
	fs.BoolVar(&opts.bom, "bom", defaults.BOMPrefix, "prefix CSV output with a UTF-8 BOM")
	fs.BoolVar(&opts.preview, "preview", false, "print how each header resolves and exit")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "debug, info, warn or error")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.in == "" && !opts.version {
		return nil, errors.New("-in is required")
	}
	return opts, nil
}

type converter struct {
	opts   *options
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func (c *converter) run(ctx context.Context, defaults config.ConversionConfig) error {
	g, err := period.ParseGranularity(c.opts.granularity)
	if err != nil {
		return usagef("%v", err)
	}
	dims := make([]unpivot.Dimension, 0, len(c.opts.dims))
	for _, s := range c.opts.dims {
		d, err := unpivot.ParseDimension(s)
		if err != nil {
			return usagef("%v", err)
		}
		dims = append(dims, d)
	}
	format := exporter.FormatFromPath(c.opts.out)
	if c.opts.out == "" {
		if format, err = exporter.ParseFormat(c.opts.format); err != nil {
			return usagef("%v", err)
		}
	}

	fv := validation.NewFileValidator(c.logger)
	if err := fv.ValidateInput(c.opts.in); err != nil {
		return err
	}
	if c.opts.out != "" && !c.opts.preview {
		if err := fv.ValidateOutput(c.opts.in, c.opts.out); err != nil {
			if errors.Is(err, validation.ErrOutputFormat) {
				return usagef("%v", err)
			}
			return err
		}
	}

	cfg := defaults
	cfg.BOMPrefix = c.opts.bom
	svc, err := services.NewConversionService(cfg, nil, c.logger)
	if err != nil {
		return err
	}

	tbl, err := c.load(ctx, svc)
	if err != nil {
		return err
	}

	if c.opts.preview {
		return c.preview(ctx, svc, tbl, g, dims)
	}

	res, err := svc.Convert(ctx, tbl, services.ConvertRequest{
		Dimensions:            dims,
		DateColumns:           c.opts.dates,
		Granularity:           g,
		KeyFigure:             c.opts.keyFigure,
		SkipEmptyValues:       c.opts.skipEmpty,
		AllowDuplicatePeriods: c.opts.allowDuplicates,
	})
	if err != nil {
		return err
	}

	if c.opts.out == "" {
		err = svc.Export(ctx, c.stdout, res, format)
	} else {
		err = svc.ExportFile(ctx, c.opts.out, res)
	}
	if err != nil {
		return err
	}

	c.summary(res)
	return nil
}

func (c *converter) load(ctx context.Context, svc *services.ConversionService) (*table.Table, error) {
	f, err := os.Open(c.opts.in)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return svc.Load(ctx, f, filepath.Base(c.opts.in), table.ReadOptions{Sheet: c.opts.sheet})
}

func (c *converter) preview(ctx context.Context, svc *services.ConversionService, tbl *table.Table, g period.Granularity, dims []unpivot.Dimension) error {
	p, err := svc.Preview(ctx, tbl, services.PreviewRequest{Granularity: g, Dimensions: dims})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tPERIODID\tSTRATEGY")
	for _, h := range p.Candidates {
		strategy := h.Strategy
		if !h.Parsed {
			strategy = "unparsed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", h.Column, h.PeriodID, strategy)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if p.Truncated {
		fmt.Fprintf(c.stderr, "showing the first %d candidate columns\n", len(p.Candidates))
	}
	fmt.Fprintf(c.stderr, "%d columns, %d rows, granularity %s\n", len(p.Columns), p.RowCount, g)
	return nil
}

func (c *converter) summary(res *unpivot.Result) {
	dest := c.opts.out
	if dest == "" {
		dest = "stdout"
	}
	fmt.Fprintf(c.stderr, "wrote %d rows from %d date columns to %s\n", len(res.Rows), len(res.Headers), dest)
	if unparsed := res.Unparsed(); len(unparsed) > 0 {
		fmt.Fprintf(c.stderr, "warning: %d headers kept their label as PERIODID: %s\n",
			len(unparsed), strings.Join(unparsed, ", "))
	}
}

// errorMessage drops the error-type tag that AppError prints.
func errorMessage(err error) string {
	var appErr *apierrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Cause != nil {
			return appErr.Message + ": " + appErr.Cause.Error()
		}
		return appErr.Message
	}
	return err.Error()
}
