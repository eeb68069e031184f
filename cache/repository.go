package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/plotwise/chartcache/core"
	"github.com/plotwise/chartcache/kv"
)

// EligibilityPolicy bounds the serialized payload sizes worth caching:
// lower <= size < upper. Files outside the range always read from the
// backend instead.
type EligibilityPolicy struct {
	MinBytes int64
	MaxBytes int64
}

// DefaultEligibility caches files between 512 KiB and 5 MiB.
var DefaultEligibility = EligibilityPolicy{
	MinBytes: 512 * 1024,
	MaxBytes: 5 * 1024 * 1024,
}

// Repository enforces the FileData contract and the eligibility policy on
// top of a kv.Store.
type Repository struct {
	store  kv.Store
	policy EligibilityPolicy
}

// NewRepository wraps a kv.Store. A zero policy falls back to
// DefaultEligibility.
func NewRepository(store kv.Store, policy EligibilityPolicy) *Repository {
	if policy.MinBytes == 0 && policy.MaxBytes == 0 {
		policy = DefaultEligibility
	}
	return &Repository{store: store, policy: policy}
}

// IsEligible reports whether a payload of the given size qualifies for
// caching.
func (r *Repository) IsEligible(sizeBytes int64) bool {
	return sizeBytes >= r.policy.MinBytes && sizeBytes < r.policy.MaxBytes
}

// Store serializes and persists a record. Ineligible payloads return
// ErrNotEligible without persisting. RowCount and CompressedSizeKB are
// recomputed from the payload before writing so the stored invariants hold
// regardless of what the caller filled in. A write rejected for space wraps
// kv.ErrQuotaExceeded so callers can offer clear-and-retry.
func (r *Repository) Store(ctx context.Context, data *FileData) error {
	if data == nil {
		return fmt.Errorf("file data is required")
	}
	if strings.TrimSpace(data.FileName) == "" {
		return fmt.Errorf("file name is required")
	}

	data.RowCount = len(data.Rows)

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", data.FileName, err)
	}
	if !r.IsEligible(int64(len(payload))) {
		return fmt.Errorf("%w: %s is %d bytes, cacheable range is [%d, %d)",
			ErrNotEligible, data.FileName, len(payload), r.policy.MinBytes, r.policy.MaxBytes)
	}

	data.CompressedSizeKB = roundKB(float64(len(payload)) / 1024)
	payload, err = json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", data.FileName, err)
	}

	if err := r.store.Put(ctx, data.FileName, payload); err != nil {
		return fmt.Errorf("store %s: %w", data.FileName, err)
	}
	return nil
}

// Load reads and decodes a record. An absent file is ErrCacheMiss; a payload
// that fails to decode or violates the record invariants is ErrCorruptRecord,
// never silently coerced.
func (r *Repository) Load(ctx context.Context, fileName string) (*FileData, error) {
	payload, err := r.store.Get(ctx, fileName)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCacheMiss, fileName)
		}
		return nil, fmt.Errorf("load %s: %w", fileName, err)
	}

	var data FileData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, fileName, err)
	}
	if err := validateRecord(&data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, fileName, err)
	}
	return &data, nil
}

func validateRecord(data *FileData) error {
	if data.FileName == "" {
		return fmt.Errorf("missing file_name")
	}
	if data.RowCount != len(data.Rows) {
		return fmt.Errorf("row_count %d does not match %d rows", data.RowCount, len(data.Rows))
	}
	for i, row := range data.Rows {
		if len(row) != len(data.Columns) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(data.Columns))
		}
		for _, col := range data.Columns {
			if _, ok := row[col]; !ok {
				return fmt.Errorf("row %d is missing column %q", i, col)
			}
		}
	}
	return nil
}

// Exists reports whether a readable record is stored under the file name.
func (r *Repository) Exists(ctx context.Context, fileName string) bool {
	_, err := r.store.Get(ctx, fileName)
	return err == nil
}

// ListFileNames enumerates cached files in unspecified order.
func (r *Repository) ListFileNames(ctx context.Context) ([]string, error) {
	return r.store.Keys(ctx)
}

// Remove deletes a cached record.
func (r *Repository) Remove(ctx context.Context, fileName string) error {
	if err := r.store.Delete(ctx, fileName); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrCacheMiss, fileName)
		}
		return fmt.Errorf("remove %s: %w", fileName, err)
	}
	return nil
}

// Clear removes every cached record.
func (r *Repository) Clear(ctx context.Context) error {
	return r.store.Clear(ctx)
}

// StorageInfo aggregates size and count across all stored records by reading
// each one. Records that fail to load are skipped, not fatal.
func (r *Repository) StorageInfo(ctx context.Context) (StorageInfo, error) {
	names, err := r.store.Keys(ctx)
	if err != nil {
		return StorageInfo{}, err
	}

	var info StorageInfo
	for _, name := range names {
		data, err := r.Load(ctx, name)
		if err != nil {
			core.Debugf(ctx, "storage info: skipping %s: %v", name, err)
			continue
		}
		info.FileCount++
		info.TotalSizeKB += data.CompressedSizeKB
	}
	info.TotalSizeKB = roundKB(info.TotalSizeKB)
	info.TotalSizeMB = roundKB(info.TotalSizeKB / 1024)
	return info, nil
}

// SweepCorrupt removes records that no longer decode and returns their
// names. Reads never remove records implicitly; this is the explicit
// removal path for corrupt entries.
func (r *Repository) SweepCorrupt(ctx context.Context) ([]string, error) {
	names, err := r.store.Keys(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, name := range names {
		if _, err := r.Load(ctx, name); errors.Is(err, ErrCorruptRecord) {
			if err := r.store.Delete(ctx, name); err != nil {
				core.Errorf(ctx, "sweep: failed to remove corrupt record %s: %v", name, err)
				continue
			}
			removed = append(removed, name)
		}
	}
	return removed, nil
}

func roundKB(v float64) float64 {
	return math.Round(v*100) / 100
}
