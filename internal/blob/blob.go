// Package blob abstracts the attachment payload store. The engine only
// ever hands a payload over and keeps the returned path; retrieval by
// path is outside its responsibility.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Store accepts an attachment payload and returns the path it is stored
// under.
type Store interface {
	Put(ctx context.Context, filename string, data []byte) (string, error)
}

// FileStore writes payloads under a base directory. Stored names are
// prefixed with a random token so uploads never clobber each other.
type FileStore struct {
	dir string
}

// NewFileStore creates the base directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Put(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stored := uuid.NewString() + "-" + filepath.Base(filename)
	if err := os.WriteFile(filepath.Join(s.dir, stored), data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return stored, nil
}

// MemoryStore keeps payloads in a map. Test double.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := uuid.NewString() + "-" + filename
	payload := make([]byte, len(data))
	copy(payload, data)
	s.blobs[stored] = payload
	return stored, nil
}

// Len reports how many payloads are stored.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
