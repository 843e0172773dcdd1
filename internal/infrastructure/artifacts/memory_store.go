// Package artifacts holds the in-process artifact store addressed by index refs.
package artifacts

import (
	"sync"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/ports"
)

// MemoryStore maps refs to artifacts. Refs are never reused, so a ref retracted
// by ReplaceFile misses instead of resolving to another artifact.
type MemoryStore struct {
	mu     sync.RWMutex
	slots  []*domain.Artifact
	byPath map[string][]int
	byID   map[string][]int
	live   int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byPath: make(map[string][]int),
		byID:   make(map[string][]int),
	}
}

// ReplaceFile retracts the artifacts of path and stores chunks under new refs.
func (s *MemoryStore) ReplaceFile(path string, chunks []domain.Artifact) (removed []int, added []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed = s.byPath[path]
	for _, ref := range removed {
		if a := s.slots[ref]; a != nil {
			s.dropID(a.ID(), ref)
			s.slots[ref] = nil
			s.live--
		}
	}
	delete(s.byPath, path)

	added = make([]int, 0, len(chunks))
	for i := range chunks {
		a := chunks[i]
		ref := len(s.slots)
		s.slots = append(s.slots, &a)
		s.byID[a.ID()] = append(s.byID[a.ID()], ref)
		added = append(added, ref)
		s.live++
	}
	if len(added) > 0 {
		s.byPath[path] = added
	}
	return removed, added
}

func (s *MemoryStore) dropID(id string, ref int) {
	refs := s.byID[id]
	for i, r := range refs {
		if r == ref {
			refs = append(refs[:i], refs[i+1:]...)
			break
		}
	}
	if len(refs) == 0 {
		delete(s.byID, id)
		return
	}
	s.byID[id] = refs
}

// ByRef resolves an index ref.
func (s *MemoryStore) ByRef(ref int) (domain.Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ref < 0 || ref >= len(s.slots) || s.slots[ref] == nil {
		return domain.Artifact{}, false
	}
	return *s.slots[ref], true
}

// ByID resolves an artifact id to its oldest live copy.
func (s *MemoryStore) ByID(id string) (domain.Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := s.byID[id]
	if len(refs) == 0 {
		return domain.Artifact{}, false
	}
	return *s.slots[refs[0]], true
}

// Len is the number of live artifacts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// Files is the number of files with live artifacts.
func (s *MemoryStore) Files() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPath)
}

var (
	_ ports.ArtifactReader = (*MemoryStore)(nil)
	_ ports.ArtifactWriter = (*MemoryStore)(nil)
)
