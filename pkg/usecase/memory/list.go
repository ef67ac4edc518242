package memory

import (
	"github.com/m-mizutani/arjournal/pkg/model"
)

// List returns the memories in insertion order. The slice is a copy; the
// memories themselves must be treated as read-only.
func (s *Store) List() []*model.Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Memory, len(s.memories))
	copy(out, s.memories)
	return out
}

// Get returns the memory with id
func (s *Store) Get(id model.MemoryID) (*model.Memory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.memories {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Len returns the number of stored memories
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memories)
}
