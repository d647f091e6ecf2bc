package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Store keeps rendered artifacts until process teardown. Put returns the
// handle stored on the job; Get and Delete take that handle.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, handle string) ([]byte, error)
	Delete(ctx context.Context, handle string) error
}

// SafeKey strips path elements and characters that do not belong in a file
// name.
func SafeKey(key string) string {
	key = filepath.Base(strings.ReplaceAll(key, "\\", "/"))
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "artifact"
	}
	return out
}

// MemoryStore holds artifacts in a map.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte) (string, error) {
	handle := SafeKey(key)
	cp := append([]byte(nil), data...)
	s.mu.Lock()
	s.items[handle] = cp
	s.mu.Unlock()
	return handle, nil
}

func (s *MemoryStore) Get(_ context.Context, handle string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.items[handle]
	if !ok {
		return nil, fmt.Errorf("artifact %q: %w", handle, common.ErrNotFound)
	}
	return append([]byte(nil), b...), nil
}

func (s *MemoryStore) Delete(_ context.Context, handle string) error {
	s.mu.Lock()
	delete(s.items, handle)
	s.mu.Unlock()
	return nil
}

// DirStore writes artifacts as files under a directory.
type DirStore struct {
	dir string
}

// DefaultDir is used when no artifact directory is configured.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "invoicextractor")
}

// NewDirStore creates dir if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) Dir() string { return s.dir }

func (s *DirStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	handle := SafeKey(key)
	path := filepath.Join(s.dir, handle)
	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return handle, nil
}

func (s *DirStore) Get(_ context.Context, handle string) ([]byte, error) {
	if handle != SafeKey(handle) {
		return nil, fmt.Errorf("artifact %q: %w", handle, common.ErrNotFound)
	}
	b, err := os.ReadFile(filepath.Join(s.dir, handle))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("artifact %q: %w", handle, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return b, nil
}

func (s *DirStore) Delete(_ context.Context, handle string) error {
	if handle != SafeKey(handle) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, handle))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}
