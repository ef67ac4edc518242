package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// CreateInput holds the user-provided and captured values of a new memory
type CreateInput struct {
	Title       string
	Description string
	Position    model.Vec3
	// Color is picked at random when empty
	Color model.Color
	// Location is nil when geolocation was unavailable
	Location *model.Coordinate
	// Snapshot is the serialized world map, nil if capture failed
	Snapshot []byte
}

// Create appends a new memory and persists the list. If only persisting
// fails, the created memory is returned together with an error wrapping
// model.ErrPersistence; the memory stays in the store.
func (s *Store) Create(ctx context.Context, input CreateInput) (*model.Memory, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, goerr.Wrap(model.ErrValidation, "title is required")
	}

	color := input.Color
	if color == "" {
		color = s.color()
	}
	if err := color.Validate(); err != nil {
		return nil, err
	}

	memory := &model.Memory{
		ID:          s.newID(),
		Title:       input.Title,
		Description: input.Description,
		Position:    input.Position,
		Color:       color,
		CreatedAt:   s.now(),
	}
	if input.Location != nil {
		loc := *input.Location
		memory.Location = &loc
	}
	if len(input.Snapshot) > 0 {
		memory.WorldSnapshot = slices.Clone(input.Snapshot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.ContainsFunc(s.memories, func(m *model.Memory) bool { return m.ID == memory.ID }) {
		return nil, goerr.Wrap(model.ErrValidation, "memory ID already exists", goerr.V("memory_id", memory.ID))
	}
	s.memories = append(s.memories, memory)

	logger := logging.From(ctx)
	if err := s.persist(ctx); err != nil {
		logger.Error("failed to persist new memory", "memory_id", memory.ID, "error", err)
		return memory, goerr.Wrap(model.ErrPersistence, err.Error(), goerr.V("memory_id", memory.ID))
	}

	logger.Info("memory saved", "memory_id", memory.ID, "title", memory.Title, "count", len(s.memories))
	return memory, nil
}
