package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "ibpconv/internal/errors"
	"ibpconv/internal/period"
)

type sampleRequest struct {
	KeyFigure   string   `json:"key_figure" validate:"required,max=64"`
	Granularity string   `json:"granularity" validate:"granularity"`
	Format      string   `json:"format" validate:"outformat"`
	Dimensions  []string `json:"dimensions" validate:"dive,dimension"`
}

func TestValidator_ValidateStruct(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name       string
		req        sampleRequest
		wantFields []string
	}{
		{"valid", sampleRequest{KeyFigure: "FCST", Granularity: "week", Format: "XLSX", Dimensions: []string{"PRODUCTID=Product"}}, nil},
		{"empty optional fields", sampleRequest{KeyFigure: "FCST"}, nil},
		{"missing key figure", sampleRequest{}, []string{"key_figure"}},
		{"bad granularity", sampleRequest{KeyFigure: "FCST", Granularity: "QUARTER"}, []string{"granularity"}},
		{"bad format", sampleRequest{KeyFigure: "FCST", Format: "json"}, []string{"format"}},
		{"bad dimension", sampleRequest{KeyFigure: "FCST", Dimensions: []string{"=Product"}}, []string{"dimensions[0]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.req)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)

			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)
			fields := make([]string, 0, len(details.Errors))
			for _, e := range details.Errors {
				fields = append(fields, e.Field)
				assert.NotEmpty(t, e.Message)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestContentTypeValidator(t *testing.T) {
	eh := apierrors.NewErrorHandler(discardLogger(), false)
	h := ContentTypeValidator(eh, "application/json", "multipart/form-data")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		name        string
		method      string
		contentType string
		want        int
	}{
		{"get skipped", http.MethodGet, "", http.StatusOK},
		{"json", http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{"multipart", http.MethodPost, "multipart/form-data; boundary=x", http.StatusOK},
		{"missing", http.MethodPost, "", http.StatusBadRequest},
		{"unsupported", http.MethodPost, "text/plain", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestQueryParamValidator(t *testing.T) {
	qv := NewQueryParamValidator(discardLogger(), apierrors.NewErrorHandler(discardLogger(), false))

	t.Run("int default", func(t *testing.T) {
		rec := httptest.NewRecorder()
		n, ok := qv.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/", nil), "rows", 1, 100, 10)
		assert.True(t, ok)
		assert.Equal(t, 10, n)
	})

	t.Run("int out of range", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := qv.ValidateInt(rec, httptest.NewRequest(http.MethodGet, "/?rows=500", nil), "rows", 1, 100, 10)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "/errors/validation", body["type"])
	})

	t.Run("granularity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		g, ok := qv.ValidateGranularity(rec, httptest.NewRequest(http.MethodGet, "/?granularity=week", nil), "granularity", period.Month)
		assert.True(t, ok)
		assert.Equal(t, period.Week, g)

		rec = httptest.NewRecorder()
		_, ok = qv.ValidateGranularity(rec, httptest.NewRequest(http.MethodGet, "/?granularity=hour", nil), "granularity", period.Month)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
