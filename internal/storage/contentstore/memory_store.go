package contentstore

import (
	"context"
	"sync"

	"github.com/legion-labs/databuild-go/internal/domain"
)

// MemoryStore is an in-process Store for tests and local builds.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[domain.Checksum][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[domain.Checksum][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, data []byte) (domain.Checksum, error) {
	checksum := domain.ChecksumOf(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[checksum]; !ok {
		s.blobs[checksum] = append([]byte(nil), data...)
	}
	return checksum, nil
}

func (s *MemoryStore) Get(ctx context.Context, checksum domain.Checksum) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[checksum]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Exists(ctx context.Context, checksum domain.Checksum) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[checksum]
	return ok, nil
}
