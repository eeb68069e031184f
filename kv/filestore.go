package kv

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

const recordExt = ".rec"

// FileStore keeps one file per key on an afero filesystem. With
// afero.NewOsFs it is a durable on-disk store; with afero.NewMemMapFs it
// backs tests. MaxBytes, when set, caps the total stored payload size and
// turns oversized writes into ErrQuotaExceeded.
type FileStore struct {
	fs       afero.Fs
	dir      string
	maxBytes int64

	// Guards the quota check against concurrent writers in this process.
	mu sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-per-key store rooted at dir. maxBytes <= 0
// means no quota.
func NewFileStore(fs afero.Fs, dir string, maxBytes int64) (*FileStore, error) {
	if fs == nil {
		return nil, fmt.Errorf("%w: filesystem is required", ErrUnavailable)
	}
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: storage directory is required", ErrUnavailable)
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrUnavailable, dir, err)
	}
	return &FileStore{fs: fs, dir: dir, maxBytes: maxBytes}, nil
}

// Keys can contain path separators and other characters the filesystem
// rejects, so they are escaped into the file name.
func (s *FileStore) pathFor(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+recordExt)
}

func (s *FileStore) usedBytes(except string) (int64, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %v", ErrUnavailable, s.dir, err)
	}
	var total int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}
		if entry.Name() == except {
			continue
		}
		total += entry.Size()
	}
	return total, nil
}

// Put writes the record to a temp file and renames it into place, so a
// concurrent Get never observes a partial record.
func (s *FileStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.pathFor(key)
	if s.maxBytes > 0 {
		used, err := s.usedBytes(filepath.Base(target))
		if err != nil {
			return err
		}
		if used+int64(len(value)) > s.maxBytes {
			return fmt.Errorf("%w: %d bytes used, %d requested, %d allowed",
				ErrQuotaExceeded, used, len(value), s.maxBytes)
		}
	}

	tmp := target + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, value, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrUnavailable, key, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Get reads a record by key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, err := afero.ReadFile(s.fs, s.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, key, err)
	}
	return value, nil
}

// Delete removes a record by key.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.fs.Remove(s.pathFor(key)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: remove %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Keys enumerates stored keys.
func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, s.dir, err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, recordExt))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Clear removes every record in the collection.
func (s *FileStore) Clear(ctx context.Context) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the store holds no open handles between calls.
func (s *FileStore) Close() error {
	return nil
}
