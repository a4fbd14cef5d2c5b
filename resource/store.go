// Package resource holds current resource content and the historical
// versions the pipeline has served, for later diffing.
package resource

import (
	"sync"

	"github.com/buyukakyuz/bpx"
)

// Store is the resource-facing half of the pipeline's storage: the
// current content of each resource, and the exact bytes served under
// each version previously minted for that resource.
type Store interface {
	GetResource(path bpx.ResourcePath) ([]byte, error)
	GetResourceVersion(path bpx.ResourcePath, version bpx.Version) ([]byte, error)
	StoreVersion(path bpx.ResourcePath, version bpx.Version, content []byte)
	SetResource(path bpx.ResourcePath, content []byte)
}

// InMemoryStore is the default Store: two concurrent maps, each
// guarded by its own RWMutex so reads of current content never wait
// on version-history writes.
type InMemoryStore struct {
	mu        sync.RWMutex
	resources map[bpx.ResourcePath][]byte

	versionsMu sync.RWMutex
	versions   map[bpx.ResourcePath]map[bpx.Version][]byte
}

// New builds an empty in-memory resource store.
func New() *InMemoryStore {
	return &InMemoryStore{
		resources: make(map[bpx.ResourcePath][]byte),
		versions:  make(map[bpx.ResourcePath]map[bpx.Version][]byte),
	}
}

// GetResource returns the current content for path, or
// ClientStateNotFound if no content has been set.
func (s *InMemoryStore) GetResource(path bpx.ResourcePath) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.resources[path]
	if !ok {
		return nil, bpx.NewError(bpx.ClientStateNotFound, "resource:%s", path)
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

// GetResourceVersion returns the exact bytes stored under (path,
// version), or ClientStateNotFound if that version was never stored
// or has since been purged.
func (s *InMemoryStore) GetResourceVersion(path bpx.ResourcePath, version bpx.Version) ([]byte, error) {
	s.versionsMu.RLock()
	defer s.versionsMu.RUnlock()
	byVersion, ok := s.versions[path]
	if !ok {
		return nil, bpx.NewError(bpx.ClientStateNotFound, "version:%s:%s", path, version)
	}
	content, ok := byVersion[version]
	if !ok {
		return nil, bpx.NewError(bpx.ClientStateNotFound, "version:%s:%s", path, version)
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

// StoreVersion idempotently records content under (path, version).
func (s *InMemoryStore) StoreVersion(path bpx.ResourcePath, version bpx.Version, content []byte) {
	s.versionsMu.Lock()
	defer s.versionsMu.Unlock()
	byVersion, ok := s.versions[path]
	if !ok {
		byVersion = make(map[bpx.Version][]byte)
		s.versions[path] = byVersion
	}
	stored := make([]byte, len(content))
	copy(stored, content)
	byVersion[version] = stored
}

// SetResource sets the current content for path. This is how an
// external collaborator (the application owning the resource)
// publishes new content; the pipeline only ever reads it.
func (s *InMemoryStore) SetResource(path bpx.ResourcePath, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(content))
	copy(stored, content)
	s.resources[path] = stored
}

// ResourceCount reports the number of resources with current content.
func (s *InMemoryStore) ResourceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.resources)
}

// VersionCount reports the total number of stored historical versions
// across all resources.
func (s *InMemoryStore) VersionCount() int {
	s.versionsMu.RLock()
	defer s.versionsMu.RUnlock()
	total := 0
	for _, byVersion := range s.versions {
		total += len(byVersion)
	}
	return total
}
