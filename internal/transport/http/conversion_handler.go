package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "ibpconv/internal/errors"
	"ibpconv/internal/exporter"
	"ibpconv/internal/middleware"
	"ibpconv/internal/period"
	"ibpconv/internal/services"
	"ibpconv/internal/table"
	"ibpconv/internal/unpivot"
	api "ibpconv/pkg/contracts/api/v1"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 8 << 20

// Response headers set on conversion downloads.
const (
	HeaderUnparsed = "X-Unparsed-Headers"
	HeaderRowCount = "X-Row-Count"
)

// ConversionHandler handles upload, preview and conversion requests
type ConversionHandler struct {
	service      ConversionServiceInterface
	validator    *middleware.Validator
	query        *middleware.QueryParamValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler(service ConversionServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ConversionHandler {
	return &ConversionHandler{
		service:      service,
		validator:    middleware.NewValidator(),
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "conversion")),
	}
}

// Routes returns the v1 conversion routes
func (h *ConversionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/periods", func(r chi.Router) {
		r.Get("/parse", h.ParseLabel)
		r.With(middleware.ContentTypeValidator(h.errorHandler, "application/json")).
			Post("/parse", h.ParseLabels)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"))
		r.Post("/preview", h.Preview)
		r.Post("/convert", h.Convert)
	})

	return r
}

// ParseLabel handles GET /api/v1/periods/parse?label=...&granularity=...
// The label parameter may repeat.
func (h *ConversionHandler) ParseLabel(w http.ResponseWriter, r *http.Request) {
	labels := r.URL.Query()["label"]
	if len(labels) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.MissingParameter("label"))
		return
	}

	g, ok := h.query.ValidateGranularity(w, r, "granularity", h.service.Defaults().Granularity())
	if !ok {
		return
	}

	h.renderLabels(w, r, labels, g)
}

// ParseLabels handles POST /api/v1/periods/parse
func (h *ConversionHandler) ParseLabels(w http.ResponseWriter, r *http.Request) {
	var req api.ParseLabelsRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	g, err := period.ParseGranularity(req.Granularity)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("invalid granularity", err))
		return
	}

	h.renderLabels(w, r, req.Labels, g)
}

func (h *ConversionHandler) renderLabels(w http.ResponseWriter, r *http.Request, labels []string, g period.Granularity) {
	results, err := h.service.ParseLabels(r.Context(), labels, g)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := api.ParseLabelsResponse{
		Granularity: g.String(),
		Results:     make([]api.PeriodResult, len(results)),
	}
	for i, res := range results {
		pr := api.PeriodResult{
			Label:    res.Label,
			PeriodID: res.Token,
			Parsed:   res.Parsed(),
			Strategy: res.Strategy,
		}
		if res.Parsed() {
			pr.Date = res.Date.Format("2006-01-02")
		} else {
			resp.Unparsed++
		}
		resp.Results[i] = pr
	}
	render.JSON(w, r, resp)
}

// Preview handles POST /api/v1/preview
func (h *ConversionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.errorHandler.HandleError(w, r, uploadError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := r.MultipartForm.Value
	req := api.PreviewRequest{
		Granularity: first(form, "granularity"),
		Sheet:       first(form, "sheet"),
		Dimensions:  form["dimension"],
	}
	rows, err := formInt(form, "rows")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	req.Rows = rows

	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	dims, err := parseDimensions(req.Dimensions)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename, tbl, ok := h.load(w, r, req.Sheet)
	if !ok {
		return
	}

	g := h.service.Defaults().Granularity()
	if req.Granularity != "" {
		g, _ = period.ParseGranularity(req.Granularity)
	}

	preview, err := h.service.Preview(r.Context(), tbl, services.PreviewRequest{
		Granularity: g,
		Rows:        req.Rows,
		Dimensions:  dims,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := api.PreviewResponse{
		Filename:    filename,
		Granularity: g.String(),
		Columns:     preview.Columns,
		RowCount:    preview.RowCount,
		Rows:        preview.Rows,
		Candidates:  make([]api.HeaderResult, len(preview.Candidates)),
		Truncated:   preview.Truncated,
	}
	for i, c := range preview.Candidates {
		resp.Candidates[i] = api.HeaderResult{
			Column:   c.Column,
			PeriodID: c.PeriodID,
			Parsed:   c.Parsed,
			Strategy: c.Strategy,
		}
	}
	render.JSON(w, r, resp)
}

// Convert handles POST /api/v1/convert. The response body is the upload
// file itself.
func (h *ConversionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.errorHandler.HandleError(w, r, uploadError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := r.MultipartForm.Value
	req := api.ConvertRequest{
		KeyFigure:   first(form, "keyfigure"),
		Granularity: first(form, "granularity"),
		Dimensions:  form["dimension"],
		DateColumns: form["date_column"],
		Format:      first(form, "format"),
		Sheet:       first(form, "sheet"),
	}
	var err error
	if req.SkipEmpty, err = formBool(form, "skip_empty"); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if req.AllowDuplicates, err = formBool(form, "allow_duplicates"); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	dims, err := parseDimensions(req.Dimensions)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	formatName := req.Format
	if formatName == "" {
		formatName = h.service.Defaults().DefaultFormat
	}
	format, err := exporter.ParseFormat(formatName)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("invalid output format", err))
		return
	}

	var g period.Granularity
	if req.Granularity != "" {
		g, _ = period.ParseGranularity(req.Granularity)
	}

	_, tbl, ok := h.load(w, r, req.Sheet)
	if !ok {
		return
	}

	res, err := h.service.Convert(r.Context(), tbl, services.ConvertRequest{
		Dimensions:            dims,
		DateColumns:           req.DateColumns,
		Granularity:           g,
		KeyFigure:             req.KeyFigure,
		SkipEmptyValues:       req.SkipEmpty,
		AllowDuplicatePeriods: req.AllowDuplicates,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// Buffer the file so a write failure can still be reported as a problem.
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf, res, format); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.DownloadName()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set(HeaderUnparsed, strconv.Itoa(len(res.Unparsed())))
	w.Header().Set(HeaderRowCount, strconv.Itoa(len(res.Rows)))
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write download",
			slog.String("error", err.Error()))
	}
}

// load reads the "file" part into a table. On failure the problem response
// has been written and ok is false.
func (h *ConversionHandler) load(w http.ResponseWriter, r *http.Request, sheet string) (string, *table.Table, bool) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.MissingParameter("file"))
		return "", nil, false
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	h.logger.InfoContext(r.Context(), "upload received",
		slog.String("filename", filename),
		slog.Int64("size", header.Size))

	tbl, err := h.service.Load(r.Context(), file, filename, table.ReadOptions{Sheet: sheet})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return "", nil, false
	}
	return filename, tbl, true
}

// uploadError keeps size-limit errors recognisable and reports anything else
// as a malformed request.
func uploadError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	if errors.Is(err, multipart.ErrMessageTooLarge) {
		return apierrors.ErrPayloadTooLarge
	}
	return apierrors.InvalidRequestWithError(err)
}

func parseDimensions(values []string) ([]unpivot.Dimension, error) {
	dims := make([]unpivot.Dimension, 0, len(values))
	for _, v := range values {
		d, err := unpivot.ParseDimension(v)
		if err != nil {
			return nil, apierrors.NewValidationError("invalid dimension", err)
		}
		dims = append(dims, d)
	}
	return dims, nil
}

func first(form map[string][]string, key string) string {
	if v := form[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func formBool(form map[string][]string, key string) (bool, error) {
	s := first(form, key)
	if s == "" {
		return false, nil
	}
	if s == "on" {
		return true, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, apierrors.NewValidationErrors([]apierrors.ValidationError{
			{Field: key, Message: fmt.Sprintf("%s must be true or false", key)},
		})
	}
	return b, nil
}

func formInt(form map[string][]string, key string) (int, error) {
	s := first(form, key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apierrors.NewValidationErrors([]apierrors.ValidationError{
			{Field: key, Message: fmt.Sprintf("%s must be a valid integer", key)},
		})
	}
	return n, nil
}
