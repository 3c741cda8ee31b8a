package model

// Summary is the aggregate handed to the reporting layer. A non-empty Error
// means the aggregation failed and the other fields are zero values.
type Summary struct {
	Total           int            `json:"total"`
	PeriodDays      int            `json:"period_days"`
	WindowDays      int            `json:"window_days"`
	FallbackApplied bool           `json:"fallback_applied"`
	Filters         SummaryFilters `json:"filters"`
	TopCompanies    []string       `json:"top_companies"`
	TopTags         []TagCount     `json:"top_tags"`
	WorkModalities  []string       `json:"work_modalities"`
	Listings        []Listing      `json:"listings"`
	Error           string         `json:"error,omitempty"`
}

// SummaryFilters echoes the filters a Summary was computed with.
type SummaryFilters struct {
	Region string   `json:"region"`
	Tags   []string `json:"tags"`
	Limit  int      `json:"limit"`
}

// TagCount is one entry of the top-tags ranking.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
