package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/marmos91/dittohttp/pkg/content"
)

// MemoryContentStore keeps content in a map. It is used for tests and for
// small sites seeded from a directory at startup.
//
// Stored and returned slices are copies, so callers can't mutate the store
// through them.
type MemoryContentStore struct {
	mu     sync.RWMutex
	data   map[content.ContentID][]byte
	closed bool
}

// NewMemoryContentStore creates an empty store.
func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{
		data: make(map[content.ContentID][]byte),
	}
}

func (s *MemoryContentStore) get(ctx context.Context, id content.ContentID) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, content.ErrStoreClosed
	}
	data, ok := s.data[id]
	return data, ok, nil
}

// ReadContent returns a reader over a snapshot of the content.
func (s *MemoryContentStore) ReadContent(ctx context.Context, id content.ContentID) (io.ReadCloser, error) {
	data, ok, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	// data is never modified in place; WriteContent replaces the slice.
	return io.NopCloser(bytes.NewReader(data)), nil
}

// GetContentSize returns the length of the stored content.
func (s *MemoryContentStore) GetContentSize(ctx context.Context, id content.ContentID) (uint64, error) {
	data, ok, err := s.get(ctx, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	return uint64(len(data)), nil
}

// ContentExists reports whether id is stored.
func (s *MemoryContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	_, ok, err := s.get(ctx, id)
	return ok, err
}

// WriteContent stores a copy of data.
func (s *MemoryContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return content.ErrStoreClosed
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.data[id] = stored
	return nil
}

// Delete removes id. Missing IDs are ignored.
func (s *MemoryContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return content.ErrStoreClosed
	}
	delete(s.data, id)
	return nil
}

// Len returns the number of stored items.
func (s *MemoryContentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close drops all content. Subsequent calls return ErrStoreClosed.
func (s *MemoryContentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.data = nil
	return nil
}
