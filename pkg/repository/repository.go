package repository

import (
	"context"

	"github.com/m-mizutani/arjournal/pkg/model"
)

// Repository persists the whole memory list. Implementations must return
// records from LoadAll in the order they were given to SaveAll, with every
// field of model.Memory preserved.
type Repository interface {
	// SaveAll replaces the persisted list with memories
	SaveAll(ctx context.Context, memories []*model.Memory) error

	// LoadAll returns the persisted list, or an empty list if nothing has
	// been saved yet
	LoadAll(ctx context.Context) ([]*model.Memory, error)
}
