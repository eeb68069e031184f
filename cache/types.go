// Package cache implements the local dataset cache backing chart rendering:
// one persisted record per uploaded file, read through column projection,
// pagination and substring search, with a coordinated fallback to the
// backend sampling endpoint when no usable local copy exists.
package cache

import (
	"time"

	"github.com/plotwise/chartcache/core"
)

// FileData is the persisted record for one cached file. Records are written
// whole at upload time and never partially mutated; a re-upload of the same
// file name overwrites the record.
type FileData struct {
	FileID           string     `json:"file_id"`
	FileName         string     `json:"file_name"`
	Columns          []string   `json:"columns"`
	Rows             []core.Row `json:"rows"`
	RowCount         int        `json:"row_count"`
	CompressedSizeKB float64    `json:"compressed_size_kb"`
	UploadedAt       time.Time  `json:"uploaded_at"`
}

// StorageInfo aggregates the stored records. It is computed by reading every
// record rather than from a running total, so it stays consistent under
// partial failures and evictions.
type StorageInfo struct {
	FileCount   int     `json:"file_count"`
	TotalSizeKB float64 `json:"total_size_kb"`
	TotalSizeMB float64 `json:"total_size_mb"`
}

// ColumnView is a column-subset read of a cached file.
type ColumnView struct {
	Columns []string   `json:"columns"`
	Rows    []core.Row `json:"rows"`
}

// PlotView is a full-width read of a cached file.
type PlotView struct {
	Data     []core.Row `json:"data"`
	Columns  []string   `json:"columns"`
	RowCount int        `json:"row_count"`
}

// Page is one window of a paginated read. Pages are 0-indexed contiguous
// slices of the stored row order.
type Page struct {
	Data            []core.Row `json:"data"`
	TotalRows       int        `json:"total_rows"`
	TotalPages      int        `json:"total_pages"`
	CurrentPage     int        `json:"current_page"`
	HasNextPage     bool       `json:"has_next_page"`
	HasPreviousPage bool       `json:"has_previous_page"`
}
