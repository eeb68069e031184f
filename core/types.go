package core

// Row is a single dataset record keyed by column name. Values are the JSON
// scalar types: string, float64, bool or nil (plus int64/time.Time for rows
// built in-process before serialization).
type Row map[string]interface{}

// SamplingMetadata describes how a result set relates to the full dataset.
// It is attached to every chart data response, local or remote; a cache hit
// carries the trivial metadata (not sampled, ratio 1).
type SamplingMetadata struct {
	IsSampled        bool    `json:"is_sampled"`
	TotalRows        int     `json:"total_rows"`
	ReturnedRows     int     `json:"returned_rows"`
	SamplingMethod   *string `json:"sampling_method"`
	SamplingInterval *int    `json:"sampling_interval"`
	SamplingRatio    float64 `json:"sampling_ratio"`
}

// UnifiedChartDataResponse is the shape every chart read resolves to,
// whether served from the local cache or the backend sampling endpoint.
type UnifiedChartDataResponse struct {
	Data     []Row            `json:"data"`
	Columns  []string         `json:"columns"`
	SizeKB   float64          `json:"size_kb"`
	Sampling SamplingMetadata `json:"sampling"`
}

// FilteredChartDataResponse extends the unified response with the record
// count after server-side filtering, before sampling.
type FilteredChartDataResponse struct {
	UnifiedChartDataResponse
	TotalFilteredRecords int `json:"total_filtered_records"`
}
