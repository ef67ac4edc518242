package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/repository"
	"github.com/m-mizutani/arjournal/pkg/utils/logging"
)

// Store owns the list of memories and writes it through to the repository
// after every mutation. The in-memory list is authoritative: a failed write
// is reported but never rolled back.
type Store struct {
	mu       sync.RWMutex
	repo     repository.Repository
	memories []*model.Memory

	now   func() time.Time
	newID func() model.MemoryID
	color func() model.Color
}

// Option is a functional option for Store
type Option func(*Store)

// WithClock sets the time source used for CreatedAt
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator sets the ID generator used for new memories
func WithIDGenerator(gen func() model.MemoryID) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// WithColorPicker sets the color chosen when none is specified
func WithColorPicker(pick func() model.Color) Option {
	return func(s *Store) {
		s.color = pick
	}
}

// New creates a Store and loads the persisted list. A load failure is logged
// and the store starts empty, so an unreadable backing blob never blocks use.
func New(ctx context.Context, repo repository.Repository, opts ...Option) *Store {
	s := &Store{
		repo:  repo,
		now:   time.Now,
		newID: model.NewMemoryID,
		color: model.RandomColor,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	logger := logging.From(ctx)

	memories, err := s.repo.LoadAll(ctx)
	if err != nil {
		logger.Error("failed to load memories, starting empty", "error", err)
		s.memories = nil
		return
	}

	loaded := make([]*model.Memory, 0, len(memories))
	seen := make(map[model.MemoryID]struct{}, len(memories))
	for _, m := range memories {
		if m == nil {
			continue
		}
		if _, ok := seen[m.ID]; ok {
			logger.Warn("skipping duplicated memory", "memory_id", m.ID)
			continue
		}
		if err := m.Validate(); err != nil {
			logger.Warn("skipping invalid memory", "error", err)
			continue
		}
		seen[m.ID] = struct{}{}
		loaded = append(loaded, m)
	}

	s.memories = loaded
	logger.Debug("memories loaded", "count", len(loaded))
}

// persist must be called with s.mu held.
func (s *Store) persist(ctx context.Context) error {
	snapshot := make([]*model.Memory, len(s.memories))
	copy(snapshot, s.memories)
	return s.repo.SaveAll(ctx, snapshot)
}
