package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ibpconv/internal/config"
	apierrors "ibpconv/internal/errors"
	"ibpconv/internal/exporter"
	"ibpconv/internal/infrastructure"
	"ibpconv/internal/period"
	"ibpconv/internal/table"
	"ibpconv/internal/unpivot"
)

// maxPreviewRows caps PreviewRequest.Rows.
const maxPreviewRows = 1000

// UploadSheetName names the worksheet of XLSX exports.
const UploadSheetName = "IBP Upload"

// ConversionService turns uploaded wide tables into IBP long format.
type ConversionService struct {
	cfg     config.ConversionConfig
	tracer  trace.Tracer
	metrics *infrastructure.ConversionMetrics
	logger  *slog.Logger
}

// NewConversionService creates a conversion service. A nil providers value
// disables tracing and metrics.
func NewConversionService(cfg config.ConversionConfig, providers *infrastructure.OTelProviders, logger *slog.Logger) (*ConversionService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if providers == nil {
		providers = infrastructure.NoopProviders(logger)
	}

	metrics, err := infrastructure.NewConversionMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversion metrics: %w", err)
	}

	return &ConversionService{
		cfg:     cfg,
		tracer:  providers.Tracer,
		metrics: metrics,
		logger:  logger.With(slog.String("service", "conversion")),
	}, nil
}

// PreviewRequest selects what a preview shows.
type PreviewRequest struct {
	Granularity period.Granularity
	// Rows is the number of leading data rows; zero means the configured default.
	Rows       int
	Dimensions []unpivot.Dimension
}

// Preview describes an input table before conversion.
type Preview struct {
	Columns    []string
	RowCount   int
	Rows       [][]string
	Candidates []unpivot.HeaderPeriod
	// Truncated is set when more candidate columns exist than were resolved.
	Truncated bool
}

// ConvertRequest configures one conversion. Zero values take the configured
// defaults.
type ConvertRequest struct {
	Dimensions            []unpivot.Dimension
	DateColumns           []string
	Granularity           period.Granularity
	KeyFigure             string
	SkipEmptyValues       bool
	AllowDuplicatePeriods bool
}

// Load reads an uploaded file into a table.
func (s *ConversionService) Load(ctx context.Context, r io.Reader, filename string, opts table.ReadOptions) (*table.Table, error) {
	t, err := table.Read(r, filename, opts)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read input",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		if errors.Is(err, table.ErrUnsupportedFormat) {
			return nil, apierrors.NewValidationError("unsupported input file", err)
		}
		return nil, apierrors.NewParsingError("could not read input file", err).
			WithContext("filename", filename)
	}

	s.logger.DebugContext(ctx, "input loaded",
		slog.String("filename", filename),
		slog.Int("columns", t.Width()),
		slog.Int("rows", t.Len()))
	return t, nil
}

// Preview reports the table's shape, its first rows and how the candidate
// date columns would resolve.
func (s *ConversionService) Preview(ctx context.Context, t *table.Table, req PreviewRequest) (*Preview, error) {
	if t == nil {
		return nil, classify("preview failed", ErrNilTable)
	}

	ctx, span := s.tracer.Start(ctx, "conversion.preview")
	defer span.End()

	g := req.Granularity
	if g == "" {
		g = s.cfg.Granularity()
	}
	if !g.Valid() {
		return nil, classify("preview failed", fmt.Errorf("%w: %q", unpivot.ErrInvalidGranularity, g))
	}

	rows := req.Rows
	if rows == 0 {
		rows = s.cfg.PreviewRows
	}
	if rows < 0 || rows > maxPreviewRows {
		return nil, classify("preview failed", fmt.Errorf("%w: %d (max %d)", ErrTooManyRows, rows, maxPreviewRows))
	}

	candidates := unpivot.CandidateDateColumns(t, req.Dimensions)
	truncated := false
	if limit := s.cfg.SampleHeaders; limit > 0 && len(candidates) > limit {
		candidates, truncated = candidates[:limit], true
	}

	headers, err := unpivot.ResolveHeaders(ctx, candidates, g, s.cfg.Workers)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, classify("preview failed", err)
	}

	span.SetAttributes(
		attribute.String("granularity", g.String()),
		attribute.Int("columns", t.Width()),
		attribute.Int("candidates", len(headers)),
	)

	return &Preview{
		Columns:    t.Columns,
		RowCount:   t.Len(),
		Rows:       t.Head(rows),
		Candidates: headers,
		Truncated:  truncated,
	}, nil
}

// Convert melts t into IBP long format.
func (s *ConversionService) Convert(ctx context.Context, t *table.Table, req ConvertRequest) (*unpivot.Result, error) {
	if t == nil {
		return nil, classify("conversion failed", ErrNilTable)
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "conversion.convert")
	defer span.End()

	opts := s.options(req)
	span.SetAttributes(
		attribute.String("granularity", opts.Granularity.String()),
		attribute.String("key_figure", opts.KeyFigure),
		attribute.Int("dimensions", len(opts.Dimensions)),
		attribute.Int("input_rows", t.Len()),
	)

	res, err := unpivot.Melt(ctx, t, opts)
	if err != nil {
		s.metrics.RecordConversion(ctx, "error", 0, time.Since(start))
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "conversion failed",
			slog.String("granularity", opts.Granularity.String()),
			slog.String("error", err.Error()))
		return nil, classify("conversion failed", err)
	}

	for _, h := range res.Headers {
		s.metrics.RecordHeader(ctx, h.Parsed, h.Strategy)
	}
	s.metrics.RecordConversion(ctx, "ok", len(res.Rows), time.Since(start))

	unparsed := res.Unparsed()
	if len(unparsed) > 0 {
		infrastructure.AddSpanEvent(ctx, "unparsed_headers", attribute.StringSlice("columns", unparsed))
		s.logger.WarnContext(ctx, "date columns kept their original label as PERIODID",
			slog.Int("count", len(unparsed)),
			slog.String("columns", strings.Join(unparsed, ", ")))
	}

	span.SetAttributes(
		attribute.Int("date_columns", len(res.Headers)),
		attribute.Int("output_rows", len(res.Rows)),
	)
	s.logger.InfoContext(ctx, "conversion completed",
		slog.String("granularity", opts.Granularity.String()),
		slog.String("key_figure", opts.KeyFigure),
		slog.Int("date_columns", len(res.Headers)),
		slog.Int("unparsed", len(unparsed)),
		slog.Int("rows", len(res.Rows)),
		slog.Duration("duration", time.Since(start)))

	return res, nil
}

// Export writes res to w in format f.
func (s *ConversionService) Export(ctx context.Context, w io.Writer, res *unpivot.Result, f exporter.Format) error {
	_, span := s.tracer.Start(ctx, "conversion.export",
		trace.WithAttributes(attribute.String("format", string(f))))
	defer span.End()

	writer, err := exporter.NewWriter(f, s.writeOptions())
	if err != nil {
		return apierrors.NewValidationError("unsupported output format", err)
	}
	if err := writer.Write(w, res.Columns, res.Rows); err != nil {
		infrastructure.RecordError(ctx, err)
		return apierrors.NewStorageError("failed to write output", err)
	}
	return nil
}

// ExportFile writes res to path, inferring the format from its extension.
func (s *ConversionService) ExportFile(ctx context.Context, path string, res *unpivot.Result) error {
	writer, err := exporter.NewWriter(exporter.FormatFromPath(path), s.writeOptions())
	if err != nil {
		return apierrors.NewValidationError("unsupported output format", err)
	}
	s.logger.InfoContext(ctx, "writing output file",
		slog.String("file_path", path),
		slog.Int("record_count", len(res.Rows)))
	if err := exporter.WriteFile(path, writer, res.Columns, res.Rows); err != nil {
		infrastructure.RecordError(ctx, err)
		return apierrors.NewStorageError("failed to write output", err).WithContext("path", path)
	}
	return nil
}

// ParseLabels resolves each label independently.
func (s *ConversionService) ParseLabels(ctx context.Context, labels []string, g period.Granularity) ([]period.Result, error) {
	if len(labels) == 0 {
		return nil, classify("parse failed", ErrNoLabels)
	}
	if !g.Valid() {
		return nil, classify("parse failed", fmt.Errorf("%w: %q", unpivot.ErrInvalidGranularity, g))
	}

	out := make([]period.Result, len(labels))
	for i, l := range labels {
		out[i] = period.Resolve(l, g)
		s.metrics.RecordHeader(ctx, out[i].Parsed(), out[i].Strategy)
	}
	return out, nil
}

// Defaults returns the conversion defaults in effect.
func (s *ConversionService) Defaults() config.ConversionConfig {
	return s.cfg
}

func (s *ConversionService) options(req ConvertRequest) unpivot.Options {
	opts := unpivot.Options{
		Dimensions:            req.Dimensions,
		DateColumns:           req.DateColumns,
		Granularity:           req.Granularity,
		KeyFigure:             req.KeyFigure,
		SkipEmptyValues:       req.SkipEmptyValues || s.cfg.SkipEmptyValues,
		AllowDuplicatePeriods: req.AllowDuplicatePeriods || s.cfg.AllowDuplicatePeriods,
		Workers:               s.cfg.Workers,
	}
	if opts.Granularity == "" {
		opts.Granularity = s.cfg.Granularity()
	}
	if strings.TrimSpace(opts.KeyFigure) == "" {
		opts.KeyFigure = s.cfg.DefaultKeyFigure
	}
	return opts
}

func (s *ConversionService) writeOptions() exporter.WriteOptions {
	return exporter.WriteOptions{
		BOMPrefix:      s.cfg.BOMPrefix,
		SheetName:      UploadSheetName,
		NumericColumns: []string{unpivot.ColumnValue},
	}
}
