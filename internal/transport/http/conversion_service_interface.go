package http

import (
	"context"
	"io"

	"ibpconv/internal/config"
	"ibpconv/internal/exporter"
	"ibpconv/internal/period"
	"ibpconv/internal/services"
	"ibpconv/internal/table"
	"ibpconv/internal/unpivot"
)

// ConversionServiceInterface defines the conversion operations the handlers need
type ConversionServiceInterface interface {
	Load(ctx context.Context, r io.Reader, filename string, opts table.ReadOptions) (*table.Table, error)
	Preview(ctx context.Context, t *table.Table, req services.PreviewRequest) (*services.Preview, error)
	Convert(ctx context.Context, t *table.Table, req services.ConvertRequest) (*unpivot.Result, error)
	Export(ctx context.Context, w io.Writer, res *unpivot.Result, f exporter.Format) error
	ParseLabels(ctx context.Context, labels []string, g period.Granularity) ([]period.Result, error)
	Defaults() config.ConversionConfig
}

var _ ConversionServiceInterface = (*services.ConversionService)(nil)
