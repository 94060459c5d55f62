// Package graph maintains the build's view of source resources and their
// declared dependencies, and expands compile targets into ordered build
// graphs.
package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/legion-labs/databuild-go/internal/domain"
)

type resourceInfo struct {
	id           domain.ResourcePathID
	resourceHash domain.Checksum // "" for path-derived entries
	dependencies []domain.ResourcePathID
}

// SourceIndex is the in-process snapshot of which resources exist and what
// they directly depend on, refreshed by Pull. Reads during a compile see a
// consistent snapshot as long as Pull is not called concurrently; the
// orchestrator serializes the two.
type SourceIndex struct {
	mu        sync.RWMutex
	resources map[string]*resourceInfo
}

func NewSourceIndex() *SourceIndex {
	return &SourceIndex{resources: make(map[string]*resourceInfo)}
}

// Pull refreshes the index from the project and returns how many resources
// changed (content hash or dependency list). The count is informational;
// correctness always re-derives from content hashes at fingerprint time.
func (s *SourceIndex) Pull(ctx context.Context, project Project) (int, error) {
	ids, err := project.ResourceList(ctx)
	if err != nil {
		return 0, fmt.Errorf("resource list: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, id := range ids {
		hash, deps, err := project.ResourceInfo(ctx, id)
		if err != nil {
			return updated, fmt.Errorf("resource info %s: %w", id, err)
		}
		if s.updateResource(domain.PathFromResource(id), hash, deps) {
			updated++
		}
		// Derived dependencies are recorded with their own direct
		// dependency so graph expansion can walk through them.
		for _, dep := range deps {
			if direct, ok := dep.DirectDependency(); ok {
				if s.updateResource(dep, "", []domain.ResourcePathID{direct}) {
					updated++
				}
			}
		}
	}
	return updated, nil
}

func (s *SourceIndex) updateResource(id domain.ResourcePathID, hash domain.Checksum, deps []domain.ResourcePathID) bool {
	sorted := append([]domain.ResourcePathID(nil), deps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	key := id.String()
	existing, ok := s.resources[key]
	if !ok {
		s.resources[key] = &resourceInfo{id: id, resourceHash: hash, dependencies: sorted}
		return true
	}
	if existing.resourceHash == hash && samePaths(existing.dependencies, sorted) {
		return false
	}
	existing.resourceHash = hash
	existing.dependencies = sorted
	return true
}

// FindDependencies returns the declared direct dependencies of id.
func (s *SourceIndex) FindDependencies(id domain.ResourcePathID) ([]domain.ResourcePathID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.resources[id.String()]
	if !ok {
		return nil, false
	}
	return append([]domain.ResourcePathID(nil), info.dependencies...), true
}

// ResourceHash returns the content checksum recorded for a source path.
func (s *SourceIndex) ResourceHash(id domain.ResourcePathID) (domain.Checksum, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.resources[id.String()]
	if !ok || info.resourceHash == "" {
		return "", false
	}
	return info.resourceHash, true
}

// ComputeSourceHash returns a combined hash of id's content and the content
// of everything reachable through declared dependencies. Two paths with the
// same closure hash have byte-identical compilation inputs.
func (s *SourceIndex) ComputeSourceHash(id domain.ResourcePathID) domain.Checksum {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]domain.Checksum)
	queue := []domain.ResourcePathID{id}
	for len(queue) > 0 {
		resource := queue[0]
		queue = queue[1:]
		key := resource.String()
		if _, done := seen[key]; done {
			continue
		}
		if info, ok := s.resources[key]; ok {
			seen[key] = info.resourceHash
			queue = append(queue, info.dependencies...)
		} else {
			seen[key] = ""
			// Follow the path when the index has no entry: derived
			// paths depend on their direct dependency.
			if direct, ok := resource.DirectDependency(); ok {
				queue = append(queue, direct)
			}
		}
	}

	hashes := make([]string, 0, len(seen))
	for _, h := range seen {
		if h != "" {
			hashes = append(hashes, string(h))
		}
	}
	sort.Strings(hashes)

	hasher := sha256.New()
	for _, h := range hashes {
		hasher.Write([]byte(h))
		hasher.Write([]byte{0})
	}
	return domain.Checksum(hex.EncodeToString(hasher.Sum(nil)))
}

func samePaths(a, b []domain.ResourcePathID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
