package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/m-mizutani/arjournal/pkg/adapter"
	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultBlobKey is the storage key holding the encoded memory list.
const DefaultBlobKey = "SavedMemories.json"

// Blob stores the memory list as a single JSON document in a key-value
// blob store.
type Blob struct {
	storage adapter.Storage
	key     string
}

// NewBlob creates a Blob repository writing to key in storage. An empty key
// selects DefaultBlobKey.
func NewBlob(storage adapter.Storage, key string) *Blob {
	if key == "" {
		key = DefaultBlobKey
	}
	return &Blob{storage: storage, key: key}
}

func (r *Blob) SaveAll(ctx context.Context, memories []*model.Memory) error {
	if memories == nil {
		memories = []*model.Memory{}
	}
	data, err := json.Marshal(memories)
	if err != nil {
		return goerr.Wrap(err, "failed to encode memories")
	}

	w, err := r.storage.Put(ctx, r.key)
	if err != nil {
		return goerr.Wrap(err, "failed to open blob for writing", goerr.V("key", r.key))
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write blob", goerr.V("key", r.key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to commit blob", goerr.V("key", r.key))
	}
	return nil
}

func (r *Blob) LoadAll(ctx context.Context) ([]*model.Memory, error) {
	rc, err := r.storage.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			return []*model.Memory{}, nil
		}
		return nil, goerr.Wrap(err, "failed to open blob", goerr.V("key", r.key))
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read blob", goerr.V("key", r.key))
	}

	var memories []*model.Memory
	if err := json.Unmarshal(data, &memories); err != nil {
		return nil, goerr.Wrap(err, "failed to decode memories", goerr.V("key", r.key))
	}
	if memories == nil {
		memories = []*model.Memory{}
	}
	return memories, nil
}
