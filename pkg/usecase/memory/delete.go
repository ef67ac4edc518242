package memory

import (
	"context"
	"slices"

	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Delete removes the memory with id. It returns false, and changes nothing,
// if no such memory exists. A persistence failure is reported as an error
// wrapping model.ErrPersistence, with the removal kept.
func (s *Store) Delete(ctx context.Context, id model.MemoryID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.memories, func(m *model.Memory) bool { return m.ID == id })
	if idx < 0 {
		return false, nil
	}

	title := s.memories[idx].Title
	s.memories = slices.Delete(s.memories, idx, idx+1)

	logger := logging.From(ctx)
	if err := s.persist(ctx); err != nil {
		logger.Error("failed to persist deletion", "memory_id", id, "error", err)
		return true, goerr.Wrap(model.ErrPersistence, err.Error(), goerr.V("memory_id", id))
	}

	logger.Info("memory deleted", "memory_id", id, "title", title)
	return true, nil
}

// Clear removes every memory.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memories = nil
	if err := s.persist(ctx); err != nil {
		logging.From(ctx).Error("failed to persist cleared store", "error", err)
		return goerr.Wrap(model.ErrPersistence, err.Error())
	}

	logging.From(ctx).Info("all memories cleared")
	return nil
}
