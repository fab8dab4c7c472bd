package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibpconv/internal/config"
	apierrors "ibpconv/internal/errors"
	"ibpconv/internal/exporter"
	"ibpconv/internal/infrastructure"
	"ibpconv/internal/period"
	"ibpconv/internal/shared/testutil"
	"ibpconv/internal/table"
	"ibpconv/internal/unpivot"
)

func newService(t *testing.T, cfg config.ConversionConfig) (*ConversionService, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	svc, err := NewConversionService(cfg, nil, logger)
	require.NoError(t, err)
	return svc, handler
}

func loadForecast(t *testing.T, svc *ConversionService) *table.Table {
	t.Helper()
	data := testutil.CSVBytes(t, testutil.ForecastRecords())
	tbl, err := svc.Load(context.Background(), bytes.NewReader(data), "forecast.csv", table.ReadOptions{})
	require.NoError(t, err)
	return tbl
}

func appErrorType(t *testing.T, err error) apierrors.ErrorType {
	t.Helper()
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Type
}

func TestConversionService_Load(t *testing.T) {
	svc, _ := newService(t, config.Default().Conversion)

	tbl := loadForecast(t, svc)
	assert.Equal(t, 5, tbl.Width())
	assert.Equal(t, 2, tbl.Len())

	_, err := svc.Load(context.Background(), strings.NewReader("{}"), "forecast.json", table.ReadOptions{})
	assert.Equal(t, apierrors.ErrTypeValidation, appErrorType(t, err))
	assert.ErrorIs(t, err, table.ErrUnsupportedFormat)

	_, err = svc.Load(context.Background(), strings.NewReader("not a workbook"), "forecast.xlsx", table.ReadOptions{})
	assert.Equal(t, apierrors.ErrTypeParsing, appErrorType(t, err))

	_, err = svc.Load(context.Background(), strings.NewReader("\n\n"), "empty.csv", table.ReadOptions{})
	assert.ErrorIs(t, err, table.ErrEmptyInput)
}

func TestConversionService_Preview(t *testing.T) {
	cfg := config.Default().Conversion
	cfg.SampleHeaders = 3
	svc, _ := newService(t, cfg)
	tbl := loadForecast(t, svc)

	preview, err := svc.Preview(context.Background(), tbl, PreviewRequest{
		Rows:       1,
		Dimensions: []unpivot.Dimension{{Name: "Product", Column: "Product"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, preview.RowCount)
	assert.Len(t, preview.Rows, 1)
	assert.True(t, preview.Truncated)
	require.Len(t, preview.Candidates, 3)
	assert.Equal(t, "Location", preview.Candidates[0].Column)
	assert.False(t, preview.Candidates[0].Parsed)
	assert.Equal(t, "2026-01-01", preview.Candidates[1].PeriodID)
	assert.Equal(t, "2026-02-01", preview.Candidates[2].PeriodID)
}

func TestConversionService_PreviewErrors(t *testing.T) {
	svc, _ := newService(t, config.Default().Conversion)
	tbl := loadForecast(t, svc)

	tests := []struct {
		name string
		tbl  *table.Table
		req  PreviewRequest
		want error
	}{
		{"nil table", nil, PreviewRequest{}, ErrNilTable},
		{"bad granularity", tbl, PreviewRequest{Granularity: "HOUR"}, unpivot.ErrInvalidGranularity},
		{"too many rows", tbl, PreviewRequest{Rows: maxPreviewRows + 1}, ErrTooManyRows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Preview(context.Background(), tt.tbl, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, apierrors.ErrTypeValidation, appErrorType(t, err))
		})
	}
}

func TestConversionService_Convert(t *testing.T) {
	svc, handler := newService(t, config.Default().Conversion)
	tbl := loadForecast(t, svc)

	res, err := svc.Convert(context.Background(), tbl, ConvertRequest{
		Dimensions: []unpivot.Dimension{
			{Name: "PRODUCTID", Column: "Product"},
			{Name: "LOCATIONID", Column: "Location"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"KEYFIGURE", "PRODUCTID", "LOCATIONID", "PERIODID", "VALUE"}, res.Columns)
	require.Len(t, res.Rows, 6)
	assert.Equal(t, []string{"FCST", "P100", "DC01", "2026-01-01", "10"}, res.Rows[0])
	assert.Equal(t, []string{"FCST", "P200", "DC01", "2026-03-01", "7"}, res.Rows[5])

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "conversion completed")
	testutil.AssertLogAttr(t, handler, "service", "conversion")
}

func TestConversionService_ConvertDefaultsFromConfig(t *testing.T) {
	cfg := config.Default().Conversion
	cfg.DefaultGranularity = "WEEK"
	cfg.DefaultKeyFigure = "CONSENSUS"
	cfg.SkipEmptyValues = true
	svc, _ := newService(t, cfg)

	tbl := &table.Table{
		Columns: []string{"Product", "WK01 2025", "WK02 2025"},
		Rows:    [][]string{{"P1", "1", ""}},
	}

	res, err := svc.Convert(context.Background(), tbl, ConvertRequest{
		Dimensions: []unpivot.Dimension{{Name: "Product", Column: "Product"}},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"CONSENSUS", "P1", "2025-W01", "1"}}, res.Rows)
}

func TestConversionService_ConvertWarnsOnUnparsed(t *testing.T) {
	svc, handler := newService(t, config.Default().Conversion)

	tbl := &table.Table{
		Columns: []string{"Product", "Jan-26", "Total"},
		Rows:    [][]string{{"P1", "1", "1"}},
	}
	res, err := svc.Convert(context.Background(), tbl, ConvertRequest{
		Dimensions: []unpivot.Dimension{{Name: "Product", Column: "Product"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Total"}, res.Unparsed())

	testutil.AssertLogContains(t, handler, slog.LevelWarn, "original label")
	testutil.AssertLogAttr(t, handler, "columns", "Total")
}

func TestConversionService_ConvertErrors(t *testing.T) {
	svc, _ := newService(t, config.Default().Conversion)
	tbl := loadForecast(t, svc)
	product := []unpivot.Dimension{{Name: "Product", Column: "Product"}}

	tests := []struct {
		name     string
		req      ConvertRequest
		want     error
		wantType apierrors.ErrorType
	}{
		{"unknown column", ConvertRequest{Dimensions: []unpivot.Dimension{{Name: "SKU", Column: "SKU"}}}, unpivot.ErrUnknownColumn, apierrors.ErrTypeValidation},
		{"overlap", ConvertRequest{Dimensions: product, DateColumns: []string{"Product"}}, unpivot.ErrColumnOverlap, apierrors.ErrTypeValidation},
		{"collision", ConvertRequest{Dimensions: product, DateColumns: []string{"Jan-26", "Feb-26"}, Granularity: period.Year}, unpivot.ErrPeriodCollision, apierrors.ErrTypeConversion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Convert(context.Background(), tbl, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.wantType, appErrorType(t, err))
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Convert(ctx, tbl, ConvertRequest{Dimensions: product})
	assert.ErrorIs(t, err, context.Canceled)
	var appErr *apierrors.AppError
	assert.False(t, errors.As(err, &appErr), "cancellation should not be wrapped")
}

func TestConversionService_Export(t *testing.T) {
	svc, _ := newService(t, config.Default().Conversion)
	res := &unpivot.Result{
		Columns: []string{"KEYFIGURE", "Product", "PERIODID", "VALUE"},
		Rows:    [][]string{{"FCST", "P1", "2026-01-01", "10"}},
	}

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), &buf, res, exporter.FormatCSV))
	assert.Equal(t, "KEYFIGURE,Product,PERIODID,VALUE\nFCST,P1,2026-01-01,10\n", buf.String())

	buf.Reset()
	require.NoError(t, svc.Export(context.Background(), &buf, res, exporter.FormatXLSX))
	tbl, err := table.Read(&buf, "out.xlsx", table.ReadOptions{Sheet: UploadSheetName})
	require.NoError(t, err)
	assert.Equal(t, res.Columns, tbl.Columns)

	err = svc.Export(context.Background(), &buf, res, exporter.Format("json"))
	assert.Equal(t, apierrors.ErrTypeValidation, appErrorType(t, err))
}

func TestConversionService_ExportFile(t *testing.T) {
	svc, logs := newService(t, config.Default().Conversion)
	res := &unpivot.Result{
		Columns: []string{"KEYFIGURE", "PERIODID", "VALUE"},
		Rows:    [][]string{{"FCST", "2026", "1"}},
	}

	path := filepath.Join(t.TempDir(), "out", "upload.csv")
	require.NoError(t, svc.ExportFile(context.Background(), path, res))
	assert.True(t, logs.ContainsMessage("writing output file"))
	assert.True(t, logs.ContainsAttr("file_path", path))

	tbl, err := table.ReadFile(path, table.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, res.Rows, tbl.Rows)
}

func TestConversionService_ParseLabels(t *testing.T) {
	svc, _ := newService(t, config.Default().Conversion)

	got, err := svc.ParseLabels(context.Background(), []string{"Jan-26", "Region"}, period.Month)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-01-01", got[0].Token)
	assert.True(t, got[0].Parsed())
	assert.Equal(t, "Region", got[1].Token)
	assert.False(t, got[1].Parsed())

	_, err = svc.ParseLabels(context.Background(), nil, period.Month)
	assert.ErrorIs(t, err, ErrNoLabels)

	_, err = svc.ParseLabels(context.Background(), []string{"Jan-26"}, "HOUR")
	assert.ErrorIs(t, err, unpivot.ErrInvalidGranularity)
}

func TestConversionService_RecordsMetrics(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:   "ibpconv-test",
		EnableMetrics: true,
	}, slog.Default())
	require.NoError(t, err)

	svc, err := NewConversionService(config.Default().Conversion, providers, nil)
	require.NoError(t, err)

	tbl := &table.Table{Columns: []string{"Product", "Jan-26", "Total"}, Rows: [][]string{{"P1", "1", "2"}}}
	_, err = svc.Convert(context.Background(), tbl, ConvertRequest{
		Dimensions: []unpivot.Dimension{{Name: "Product", Column: "Product"}},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	providers.MetricsHandler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `ibp_conversions_total{`)
	assert.Contains(t, body, `outcome="passthrough"`)
	assert.Contains(t, body, `strategy="month_year"`)
}
