package api

// PeriodResult is the resolution of one header label.
type PeriodResult struct {
	Label    string `json:"label"`
	PeriodID string `json:"period_id"`
	Parsed   bool   `json:"parsed"`
	Strategy string `json:"strategy,omitempty"`
	Date     string `json:"date,omitempty"`
}

// ParseLabelsResponse lists results in request order.
type ParseLabelsResponse struct {
	Granularity string         `json:"granularity"`
	Results     []PeriodResult `json:"results"`
	Unparsed    int            `json:"unparsed"`
}

// HeaderResult is how one candidate date column would resolve.
type HeaderResult struct {
	Column   string `json:"column"`
	PeriodID string `json:"period_id"`
	Parsed   bool   `json:"parsed"`
	Strategy string `json:"strategy,omitempty"`
}

// PreviewResponse describes an uploaded table.
type PreviewResponse struct {
	Filename    string         `json:"filename"`
	Granularity string         `json:"granularity"`
	Columns     []string       `json:"columns"`
	RowCount    int            `json:"row_count"`
	Rows        [][]string     `json:"rows"`
	Candidates  []HeaderResult `json:"candidates"`
	Truncated   bool           `json:"truncated,omitempty"`
}
