// Package memory provides an in-memory objectstore.Store for tests.
package memory

import (
	"context"
	"sync"

	"github.com/marmos91/rollcache/pkg/objectstore"
)

// Store is an in-memory implementation of objectstore.Store. Objects are
// seeded via Put before a stream is opened against it.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
	closed  bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func refKey(ref objectstore.ObjectRef) string {
	return ref.Bucket + "/" + ref.Key + "@" + ref.Version
}

// Put seeds the store with an object's full contents.
func (s *Store) Put(ref objectstore.ObjectRef, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]byte, len(data))
	copy(copied, data)
	s.objects[refKey(ref)] = copied
}

func (s *Store) Size(ctx context.Context, ref objectstore.ObjectRef) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, objectstore.ErrUnavailable
	}

	data, ok := s.objects[refKey(ref)]
	if !ok {
		return 0, objectstore.ErrNotFound
	}

	return uint64(len(data)), nil
}

func (s *Store) GetRange(ctx context.Context, ref objectstore.ObjectRef, start, end int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if start < 0 || start >= end {
		return nil, objectstore.ErrInvalidRange
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, objectstore.ErrUnavailable
	}

	data, ok := s.objects[refKey(ref)]
	if !ok {
		return nil, objectstore.ErrNotFound
	}

	if start >= int64(len(data)) {
		return []byte{}, nil
	}

	// Short read at end-of-object is authoritative, not an error.
	actualEnd := end
	if actualEnd > int64(len(data)) {
		actualEnd = int64(len(data))
	}

	result := make([]byte, actualEnd-start)
	copy(result, data[start:actualEnd])
	return result, nil
}

// Close marks the store as closed; subsequent calls fail with ErrUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
