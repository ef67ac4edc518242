package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/repository"
	"github.com/m-mizutani/arjournal/pkg/usecase/memory"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

// Mock repository that can be told to fail
type mockRepository struct {
	saved   []*model.Memory
	saves   int
	saveErr error
	loadErr error
	toLoad  []*model.Memory
}

func (m *mockRepository) SaveAll(ctx context.Context, memories []*model.Memory) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = memories
	return nil
}

func (m *mockRepository) LoadAll(ctx context.Context) ([]*model.Memory, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.toLoad, nil
}

func TestCreateFirstMemory(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	store := memory.New(ctx, repo)

	m, err := store.Create(ctx, memory.CreateInput{
		Title:    "Note A",
		Position: model.Vec3{},
		Color:    model.ColorGold,
	})
	gt.NoError(t, err)
	gt.NotEqual(t, m.ID, model.MemoryID(""))

	list := store.List()
	gt.A(t, list).Length(1)
	gt.Equal(t, list[0].Title, "Note A")
	gt.Equal(t, list[0].Color, model.ColorGold)
	gt.True(t, list[0].Location == nil)
	gt.False(t, list[0].HasSnapshot())

	gt.Equal(t, repo.saves, 1)
	gt.A(t, repo.saved).Length(1)
}

func TestCreateAssignsIDTimestampAndColor(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 10, 4, 9, 0, 0, 0, time.UTC)
	store := memory.New(ctx, &mockRepository{},
		memory.WithClock(func() time.Time { return fixed }),
		memory.WithIDGenerator(func() model.MemoryID { return "fixed-id" }),
		memory.WithColorPicker(func() model.Color { return model.ColorEmerald }),
	)

	loc := &model.Coordinate{Latitude: 1, Longitude: 2}
	snapshot := []byte("world-map")
	m, err := store.Create(ctx, memory.CreateInput{
		Title:    "Porch",
		Position: model.Vec3{X: 1, Y: 0, Z: 2},
		Location: loc,
		Snapshot: snapshot,
	})
	gt.NoError(t, err)
	gt.Equal(t, m.ID, model.MemoryID("fixed-id"))
	gt.Equal(t, m.CreatedAt, fixed)
	gt.Equal(t, m.Color, model.ColorEmerald)
	gt.Equal(t, *m.Location, *loc)
	gt.Equal(t, string(m.WorldSnapshot), "world-map")

	// Inputs are copied, not aliased
	loc.Latitude = 99
	snapshot[0] = 'X'
	gt.Equal(t, m.Location.Latitude, 1.0)
	gt.Equal(t, string(m.WorldSnapshot), "world-map")
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	store := memory.New(ctx, repo)

	for _, title := range []string{"", "   "} {
		m, err := store.Create(ctx, memory.CreateInput{Title: title})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrValidation))
		gt.True(t, m == nil)
	}
	gt.Equal(t, store.Len(), 0)
	gt.Equal(t, repo.saves, 0)
}

func TestCreateRejectsUnknownColor(t *testing.T) {
	ctx := context.Background()
	store := memory.New(ctx, &mockRepository{})

	_, err := store.Create(ctx, memory.CreateInput{Title: "x", Color: "Teal"})
	gt.True(t, errors.Is(err, model.ErrValidation))
	gt.Equal(t, store.Len(), 0)
}

func TestCreateKeepsMemoryWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{saveErr: goerr.New("disk full")}
	store := memory.New(ctx, repo)

	m, err := store.Create(ctx, memory.CreateInput{Title: "Still here"})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrPersistence))
	gt.NotNil(t, m)

	list := store.List()
	gt.A(t, list).Length(1)
	gt.Equal(t, list[0].ID, m.ID)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	store := memory.New(ctx, repo)

	a, err := store.Create(ctx, memory.CreateInput{Title: "A"})
	gt.NoError(t, err)
	b, err := store.Create(ctx, memory.CreateInput{Title: "B"})
	gt.NoError(t, err)

	deleted, err := store.Delete(ctx, a.ID)
	gt.NoError(t, err)
	gt.True(t, deleted)

	list := store.List()
	gt.A(t, list).Length(1)
	gt.Equal(t, list[0].ID, b.ID)
	gt.A(t, repo.saved).Length(1)
	gt.Equal(t, repo.saved[0].ID, b.ID)

	_, ok := store.Get(a.ID)
	gt.False(t, ok)
}

func TestDeleteUnknownID(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	store := memory.New(ctx, repo)

	_, err := store.Create(ctx, memory.CreateInput{Title: "A"})
	gt.NoError(t, err)
	saves := repo.saves

	deleted, err := store.Delete(ctx, "no-such-id")
	gt.NoError(t, err)
	gt.False(t, deleted)
	gt.Equal(t, store.Len(), 1)
	gt.Equal(t, repo.saves, saves)
}

func TestDeleteKeepsRemovalWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	store := memory.New(ctx, repo)

	a, err := store.Create(ctx, memory.CreateInput{Title: "A"})
	gt.NoError(t, err)

	repo.saveErr = goerr.New("read-only")
	deleted, err := store.Delete(ctx, a.ID)
	gt.True(t, deleted)
	gt.True(t, errors.Is(err, model.ErrPersistence))
	gt.Equal(t, store.Len(), 0)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	store := memory.New(ctx, repo)

	for _, title := range []string{"A", "B", "C"} {
		_, err := store.Create(ctx, memory.CreateInput{Title: title})
		gt.NoError(t, err)
	}

	gt.NoError(t, store.Clear(ctx))
	gt.Equal(t, store.Len(), 0)
	gt.A(t, repo.saved).Length(0)
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.New(ctx, &mockRepository{loadErr: goerr.New("corrupted blob")})

	gt.Equal(t, store.Len(), 0)

	_, err := store.Create(ctx, memory.CreateInput{Title: "Works anyway"})
	gt.NoError(t, err)
	gt.Equal(t, store.Len(), 1)
}

func TestLoadSkipsInvalidAndDuplicated(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{toLoad: []*model.Memory{
		{ID: "a", Title: "A", Color: model.ColorGold},
		{ID: "a", Title: "A again", Color: model.ColorGold},
		{ID: "b", Title: "", Color: model.ColorGold},
		nil,
		{ID: "c", Title: "C", Color: model.ColorRuby},
	}}
	store := memory.New(ctx, repo)

	list := store.List()
	gt.A(t, list).Length(2)
	gt.Equal(t, list[0].ID, model.MemoryID("a"))
	gt.Equal(t, list[0].Title, "A")
	gt.Equal(t, list[1].ID, model.MemoryID("c"))
}

func TestStoreRoundTripThroughRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	store := memory.New(ctx, repo)

	_, err := store.Create(ctx, memory.CreateInput{
		Title:    "With everything",
		Position: model.Vec3{X: 0.5, Y: 1, Z: -1},
		Color:    model.ColorSapphire,
		Location: &model.Coordinate{Latitude: 48.8584, Longitude: 2.2945},
		Snapshot: []byte{1, 2, 3},
	})
	gt.NoError(t, err)
	_, err = store.Create(ctx, memory.CreateInput{Title: "Bare", Color: model.ColorCoral})
	gt.NoError(t, err)

	reloaded := memory.New(ctx, repo)
	want := store.List()
	got := reloaded.List()
	gt.A(t, got).Length(len(want))
	for i := range want {
		gt.Equal(t, *got[i], *want[i])
	}
}
