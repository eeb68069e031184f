package core

import (
	"context"
)

// ChartDataProvider defines the interface chart consumers use to read
// dataset rows. Implementations hide whether the data came from the local
// cache or the backend sampling endpoint.
type ChartDataProvider interface {
	// FetchChartData returns the requested columns of a file, served from
	// the local cache when a usable copy exists and from the backend
	// otherwise.
	FetchChartData(ctx context.Context, fileID string, columns []string, fileName, chartType string) (*UnifiedChartDataResponse, error)

	// FetchFilteredChartData applies a server-evaluated filter expression
	// and returns the sampled result. Filtered views always go to the
	// backend.
	FetchFilteredChartData(ctx context.Context, fileID, filterExpr string, columns []string, fileName string) (*FilteredChartDataResponse, error)
}
