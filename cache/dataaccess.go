package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/plotwise/chartcache/core"
)

// DataAccess derives read views from cached records without mutating them.
type DataAccess struct {
	repo *Repository
}

// NewDataAccess wraps a Repository.
func NewDataAccess(repo *Repository) *DataAccess {
	return &DataAccess{repo: repo}
}

// Columns returns the requested column subset of a cached file, preserving
// row order. Nil or empty requested means all columns. A file that is not
// cached yields ErrCacheMiss; a column the file does not carry yields
// ErrColumnNotFound.
func (d *DataAccess) Columns(ctx context.Context, fileName string, requested []string) (*ColumnView, error) {
	data, err := d.repo.Load(ctx, fileName)
	if err != nil {
		return nil, err
	}

	rows, columns, err := projectRows(data, requested)
	if err != nil {
		return nil, err
	}
	return &ColumnView{Columns: columns, Rows: rows}, nil
}

// ForPlotting is a full-width read of a cached file.
func (d *DataAccess) ForPlotting(ctx context.Context, fileName string) (*PlotView, error) {
	data, err := d.repo.Load(ctx, fileName)
	if err != nil {
		return nil, err
	}
	return &PlotView{Data: data.Rows, Columns: data.Columns, RowCount: data.RowCount}, nil
}

// Paginated returns the 0-indexed page [page*pageSize, (page+1)*pageSize) of
// the stored row order. A page beyond the last is a valid empty result, not
// an error.
func (d *DataAccess) Paginated(ctx context.Context, fileName string, page, pageSize int) (*Page, error) {
	if page < 0 {
		return nil, fmt.Errorf("page must be >= 0, got %d", page)
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("page size must be > 0, got %d", pageSize)
	}

	data, err := d.repo.Load(ctx, fileName)
	if err != nil {
		return nil, err
	}

	totalRows := len(data.Rows)
	totalPages := (totalRows + pageSize - 1) / pageSize

	start := page * pageSize
	end := start + pageSize
	if start > totalRows {
		start = totalRows
	}
	if end > totalRows {
		end = totalRows
	}

	return &Page{
		Data:            data.Rows[start:end],
		TotalRows:       totalRows,
		TotalPages:      totalPages,
		CurrentPage:     page,
		HasNextPage:     end < totalRows,
		HasPreviousPage: page > 0,
	}, nil
}

// Search returns every row with a case-insensitive substring match of term
// in any scanned column. Nil or empty columns scans all columns. The result
// set is not capped; callers limit it for display. A whitespace-only term is
// ErrInvalidSearchTerm.
func (d *DataAccess) Search(ctx context.Context, fileName, term string, columns []string) ([]core.Row, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrInvalidSearchTerm
	}

	data, err := d.repo.Load(ctx, fileName)
	if err != nil {
		return nil, err
	}

	scanColumns := columns
	if len(scanColumns) == 0 {
		scanColumns = data.Columns
	} else {
		if err := checkColumns(data, scanColumns); err != nil {
			return nil, err
		}
	}

	needle := strings.ToLower(term)
	var matches []core.Row
	for _, row := range data.Rows {
		for _, col := range scanColumns {
			if strings.Contains(strings.ToLower(stringify(row[col])), needle) {
				matches = append(matches, row)
				break
			}
		}
	}
	return matches, nil
}

func checkColumns(data *FileData, requested []string) error {
	have := make(map[string]struct{}, len(data.Columns))
	for _, col := range data.Columns {
		have[col] = struct{}{}
	}
	for _, col := range requested {
		if _, ok := have[col]; !ok {
			return fmt.Errorf("%w: %q in %s", ErrColumnNotFound, col, data.FileName)
		}
	}
	return nil
}

func projectRows(data *FileData, requested []string) ([]core.Row, []string, error) {
	if len(requested) == 0 {
		return data.Rows, data.Columns, nil
	}
	if err := checkColumns(data, requested); err != nil {
		return nil, nil, err
	}

	rows := make([]core.Row, len(data.Rows))
	for i, row := range data.Rows {
		projected := make(core.Row, len(requested))
		for _, col := range requested {
			projected[col] = row[col]
		}
		rows[i] = projected
	}
	return rows, requested, nil
}

// stringify renders a scalar the way it reads in the UI. Nulls never match a
// search.
func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}
