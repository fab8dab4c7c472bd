// Package api contains the HTTP contract of the converter.
// Version v1 represents the current stable API version.
package api

// ParseLabelsRequest resolves a batch of header labels.
type ParseLabelsRequest struct {
	Labels      []string `json:"labels" validate:"required,min=1,max=1000,dive,max=256"`
	Granularity string   `json:"granularity" validate:"required,granularity"`
}

// PreviewRequest carries the form fields of a preview upload.
type PreviewRequest struct {
	Granularity string   `form:"granularity" validate:"granularity"`
	Sheet       string   `form:"sheet" validate:"max=31"`
	Rows        int      `form:"rows" validate:"gte=0,lte=1000"`
	Dimensions  []string `form:"dimension" validate:"max=64,dive,dimension"`
}

// ConvertRequest carries the form fields of a conversion upload.
type ConvertRequest struct {
	KeyFigure       string   `form:"keyfigure" validate:"max=64"`
	Granularity     string   `form:"granularity" validate:"granularity"`
	Dimensions      []string `form:"dimension" validate:"max=64,dive,dimension"`
	DateColumns     []string `form:"date_column" validate:"max=10000,dive,required"`
	Format          string   `form:"format" validate:"outformat"`
	Sheet           string   `form:"sheet" validate:"max=31"`
	SkipEmpty       bool     `form:"skip_empty"`
	AllowDuplicates bool     `form:"allow_duplicates"`
}
