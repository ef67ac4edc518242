package repository

import (
	"context"
	"io"
	"sync"

	"github.com/m-mizutani/arjournal/pkg/adapter"
	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// MaxInlineSnapshot is the largest world snapshot kept inside a Firestore
// document. A document may not exceed 1 MiB including its other fields.
const MaxInlineSnapshot = 768 << 10

// ErrSnapshotTooLarge is returned when a snapshot cannot be stored inline
// and no SnapshotStore is configured.
var ErrSnapshotTooLarge = goerr.New("world snapshot is too large to store inline")

// SnapshotStore keeps world snapshots as separate blobs. Snapshots never
// change once a memory is created, so each one is uploaded only once per
// process.
type SnapshotStore struct {
	storage adapter.Storage

	mu       sync.Mutex
	uploaded map[model.MemoryID]string
}

func NewSnapshotStore(storage adapter.Storage) *SnapshotStore {
	return &SnapshotStore{
		storage:  storage,
		uploaded: make(map[model.MemoryID]string),
	}
}

// SnapshotKey is the blob key of the snapshot of memory id.
func SnapshotKey(id model.MemoryID) string {
	return "snapshot_" + id.String() + ".bin"
}

// Put writes data for memory id unless it was written before, and returns
// its key.
func (s *SnapshotStore) Put(ctx context.Context, id model.MemoryID, data []byte) (string, error) {
	s.mu.Lock()
	key, done := s.uploaded[id]
	s.mu.Unlock()
	if done {
		return key, nil
	}

	key = SnapshotKey(id)
	w, err := s.storage.Put(ctx, key)
	if err != nil {
		return "", goerr.Wrap(err, "failed to open snapshot blob", goerr.V("key", key))
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to write snapshot blob", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to commit snapshot blob", goerr.V("key", key))
	}

	s.mu.Lock()
	s.uploaded[id] = key
	s.mu.Unlock()
	return key, nil
}

func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open snapshot blob", goerr.V("key", key))
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read snapshot blob", goerr.V("key", key))
	}
	return data, nil
}
