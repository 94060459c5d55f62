// Package memory provides an in-process OutputIndex used by tests and
// local builds that do not need durable cache state.
package memory

import (
	"context"
	"sync"

	"github.com/legion-labs/databuild-go/internal/domain"
	"github.com/legion-labs/databuild-go/internal/repo"
)

type OutputIndex struct {
	mu      sync.RWMutex
	entries map[string]repo.CompiledEntry
	pathIDs map[domain.ResourceTypeAndID]domain.ResourcePathID
}

func NewOutputIndex() *OutputIndex {
	return &OutputIndex{
		entries: make(map[string]repo.CompiledEntry),
		pathIDs: make(map[domain.ResourceTypeAndID]domain.ResourcePathID),
	}
}

func (s *OutputIndex) InsertCompiled(ctx context.Context, entry repo.CompiledEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[entry.Fingerprint]; ok {
		if !sameEntry(existing, entry) {
			return repo.ErrFingerprintConflict
		}
		return nil
	}
	s.entries[entry.Fingerprint] = cloneEntry(entry)
	return nil
}

func (s *OutputIndex) FindCompiled(ctx context.Context, fingerprint string) (repo.CompiledEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[fingerprint]
	if !ok {
		return repo.CompiledEntry{}, repo.ErrNotFound
	}
	return cloneEntry(entry), nil
}

func (s *OutputIndex) RecordPathID(ctx context.Context, path domain.ResourcePathID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pathIDs[path.ResourceID()] = path
	return nil
}

func (s *OutputIndex) LookupPathID(ctx context.Context, id domain.ResourceTypeAndID) (domain.ResourcePathID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path, ok := s.pathIDs[id]
	if !ok {
		return domain.ResourcePathID{}, repo.ErrNotFound
	}
	return path, nil
}

func sameEntry(a, b repo.CompiledEntry) bool {
	if len(a.Resources) != len(b.Resources) || len(a.References) != len(b.References) {
		return false
	}
	for i := range a.Resources {
		if !a.Resources[i].Path.Equal(b.Resources[i].Path) ||
			a.Resources[i].Checksum != b.Resources[i].Checksum ||
			a.Resources[i].Size != b.Resources[i].Size {
			return false
		}
	}
	for i := range a.References {
		if !a.References[i].Path.Equal(b.References[i].Path) ||
			!a.References[i].Reference.Equal(b.References[i].Reference) {
			return false
		}
	}
	return true
}

func cloneEntry(entry repo.CompiledEntry) repo.CompiledEntry {
	return repo.CompiledEntry{
		Fingerprint: entry.Fingerprint,
		Resources:   append([]domain.CompiledResource(nil), entry.Resources...),
		References:  append([]domain.CompiledReference(nil), entry.References...),
	}
}
