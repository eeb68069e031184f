package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/plotwise/chartcache/core"
)

const (
	unifiedDataPath  = "/chart/unified-data"
	filteredDataPath = "/chart/filtered-data"

	defaultRequestTimeout = 30 * time.Second
)

// Coordinator is the single entry point chart consumers use. It serves
// column reads from the local cache when a usable copy exists and falls back
// to the backend sampling endpoint otherwise. Each call is self-contained;
// the only state shared across calls is the in-flight request registry used
// to de-duplicate identical concurrent fallbacks.
type Coordinator struct {
	repo    *Repository
	client  *http.Client
	baseURL string

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

type inflightCall struct {
	done chan struct{}
	resp *core.UnifiedChartDataResponse
	err  error
}

var _ core.ChartDataProvider = (*Coordinator)(nil)

// NewCoordinator creates a coordinator over a repository and the backend
// base URL. timeout <= 0 uses the default request timeout.
func NewCoordinator(repo *Repository, baseURL string, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Coordinator{
		repo:     repo,
		client:   &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(baseURL, "/"),
		inflight: make(map[string]*inflightCall),
	}
}

type unifiedDataRequest struct {
	FileID         string   `json:"file_id"`
	Columns        []string `json:"columns"`
	MaxPoints      int      `json:"max_points"`
	SamplingMethod string   `json:"sampling_method"`
}

type filteredDataRequest struct {
	unifiedDataRequest
	PythonCodeSnippet string `json:"python_code_snippet"`
}

// errorResponse is the backend's error body shape.
type errorResponse struct {
	Error string `json:"error"`
}

// FetchChartData returns the requested columns of a file. A usable local
// copy answers without network access and with trivial sampling metadata;
// any cache-tier failure is treated as a miss and the backend is asked to
// sample per the chart type's policy. The fallback result is not written
// back to the cache, since a sampled view must not be mistaken for a full
// copy.
func (c *Coordinator) FetchChartData(ctx context.Context, fileID string, columns []string, fileName, chartType string) (*core.UnifiedChartDataResponse, error) {
	if resp, err := c.fromCache(ctx, fileName, columns); err == nil {
		core.Debugf(ctx, "chart data for %s served from cache (%d rows)", fileName, resp.Sampling.TotalRows)
		return resp, nil
	} else {
		core.Debugf(ctx, "cache miss for %s: %v", fileName, err)
	}

	return c.fallback(ctx, fileID, columns, chartType)
}

func (c *Coordinator) fromCache(ctx context.Context, fileName string, columns []string) (*core.UnifiedChartDataResponse, error) {
	data, err := c.repo.Load(ctx, fileName)
	if err != nil {
		return nil, err
	}
	rows, projected, err := projectRows(data, columns)
	if err != nil {
		return nil, err
	}

	return &core.UnifiedChartDataResponse{
		Data:    rows,
		Columns: projected,
		SizeKB:  data.CompressedSizeKB,
		Sampling: core.SamplingMetadata{
			IsSampled:     false,
			TotalRows:     data.RowCount,
			ReturnedRows:  len(rows),
			SamplingRatio: 1.0,
		},
	}, nil
}

// fallback de-duplicates identical concurrent backend requests through the
// in-flight registry keyed by file ID plus the sorted column set. The entry
// is removed on completion; later identical calls issue a fresh request.
func (c *Coordinator) fallback(ctx context.Context, fileID string, columns []string, chartType string) (*core.UnifiedChartDataResponse, error) {
	key := inflightKey(fileID, columns)

	c.mu.Lock()
	if call, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-call.done
		return call.resp, call.err
	}
	call := &inflightCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Unlock()

	call.resp, call.err = c.requestUnified(ctx, fileID, columns, chartType)

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(call.done)

	return call.resp, call.err
}

func inflightKey(fileID string, columns []string) string {
	sorted := make([]string, len(columns))
	copy(sorted, columns)
	sort.Strings(sorted)
	return fileID + "|" + strings.Join(sorted, ",")
}

func (c *Coordinator) requestUnified(ctx context.Context, fileID string, columns []string, chartType string) (*core.UnifiedChartDataResponse, error) {
	policy := PolicyFor(chartType)
	core.Infof(ctx, "falling back to backend for file %s (%s: %d points, %s sampling)",
		fileID, chartType, policy.MaxPoints, policy.Method)

	reqBody := unifiedDataRequest{
		FileID:         fileID,
		Columns:        columns,
		MaxPoints:      policy.MaxPoints,
		SamplingMethod: policy.Method,
	}

	var resp core.UnifiedChartDataResponse
	if err := c.postJSON(ctx, unifiedDataPath, reqBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchFilteredChartData always goes to the backend: filtered views are
// inherently dynamic and excluded from local caching. The filter expression
// is opaque to this subsystem and evaluated server-side.
func (c *Coordinator) FetchFilteredChartData(ctx context.Context, fileID, filterExpr string, columns []string, fileName string) (*core.FilteredChartDataResponse, error) {
	policy := DefaultPolicy
	reqBody := filteredDataRequest{
		unifiedDataRequest: unifiedDataRequest{
			FileID:         fileID,
			Columns:        columns,
			MaxPoints:      policy.MaxPoints,
			SamplingMethod: policy.Method,
		},
		PythonCodeSnippet: filterExpr,
	}

	core.Infof(ctx, "fetching filtered chart data for file %s (%s)", fileID, fileName)

	var resp core.FilteredChartDataResponse
	if err := c.postJSON(ctx, filteredDataPath, reqBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Coordinator) postJSON(ctx context.Context, path string, reqBody, out interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return backendError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

func backendError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &BackendError{Status: resp.StatusCode, Message: errResp.Error}
	}
	return &BackendError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}
