package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrNotEligible means the serialized payload falls outside the
	// cacheable size range. The file is not persisted; future reads go to
	// the backend.
	ErrNotEligible = errors.New("file size outside cacheable range")

	// ErrCacheMiss means the requested file has no local copy. It drives
	// backend fallback, never a user-visible failure.
	ErrCacheMiss = errors.New("file not cached")

	// ErrCorruptRecord means a stored record failed to decode against the
	// expected schema. Treated as a miss on read; the record is a removal
	// candidate.
	ErrCorruptRecord = errors.New("cached record is corrupt")

	// ErrColumnNotFound means a requested column is not part of the cached
	// record.
	ErrColumnNotFound = errors.New("column not in cached file")

	// ErrInvalidSearchTerm rejects empty or whitespace-only search terms.
	ErrInvalidSearchTerm = errors.New("search term is empty")
)

// BackendError reports a non-success status from the chart data endpoint.
// There is no further fallback after the network tier, so it surfaces to the
// caller with the backend's status and message.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}
