package repository_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/m-mizutani/arjournal/pkg/adapter"
	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/repository"
	"github.com/m-mizutani/gt"
)

type countingStorage struct {
	adapter.Storage
	puts int
}

func (s *countingStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	s.puts++
	return s.Storage.Put(ctx, key)
}

func TestSnapshotStoreWritesOnce(t *testing.T) {
	ctx := context.Background()
	files, err := adapter.NewFileStorage(t.TempDir())
	gt.NoError(t, err)
	storage := &countingStorage{Storage: files}
	store := repository.NewSnapshotStore(storage)

	id := model.NewMemoryID()
	for range 3 {
		key, err := store.Put(ctx, id, []byte("simworld/1\n{}"))
		gt.NoError(t, err)
		gt.Equal(t, key, repository.SnapshotKey(id))
	}
	gt.Equal(t, storage.puts, 1)

	data, err := store.Get(ctx, repository.SnapshotKey(id))
	gt.NoError(t, err)
	gt.Equal(t, string(data), "simworld/1\n{}")
}

func TestSnapshotStoreGetMissing(t *testing.T) {
	files, err := adapter.NewFileStorage(t.TempDir())
	gt.NoError(t, err)
	store := repository.NewSnapshotStore(files)

	_, err = store.Get(context.Background(), repository.SnapshotKey("absent"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, adapter.ErrNotFound))
}
