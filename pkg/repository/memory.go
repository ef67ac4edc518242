package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/m-mizutani/arjournal/pkg/model"
)

// Memory keeps the list in process memory. It is used for tests and for
// throwaway sessions.
type Memory struct {
	mu       sync.Mutex
	memories []*model.Memory
}

func NewMemory() *Memory {
	return &Memory{}
}

func (r *Memory) SaveAll(ctx context.Context, memories []*model.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memories = cloneAll(memories)
	return nil
}

func (r *Memory) LoadAll(ctx context.Context) ([]*model.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.memories), nil
}

func cloneAll(src []*model.Memory) []*model.Memory {
	dst := make([]*model.Memory, 0, len(src))
	for _, m := range src {
		c := *m
		if m.Location != nil {
			loc := *m.Location
			c.Location = &loc
		}
		c.WorldSnapshot = slices.Clone(m.WorldSnapshot)
		dst = append(dst, &c)
	}
	return dst
}
