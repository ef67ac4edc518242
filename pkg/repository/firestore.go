package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

const collectionMemories = "memories"

// Firestore stores one document per memory. A seq field keeps the list
// order, since document IDs are random. Snapshots are stored in the
// document up to MaxInlineSnapshot bytes, or always in the SnapshotStore
// when one is set.
type Firestore struct {
	client     *firestore.Client
	collection string
	snapshots  *SnapshotStore
}

type FirestoreOption func(*Firestore)

// WithCollection overrides the collection name
func WithCollection(name string) FirestoreOption {
	return func(r *Firestore) {
		r.collection = name
	}
}

// WithSnapshotStore keeps world snapshots out of the memory documents
func WithSnapshotStore(store *SnapshotStore) FirestoreOption {
	return func(r *Firestore) {
		r.snapshots = store
	}
}

// New creates a Firestore repository
func New(ctx context.Context, projectID, databaseID string, opts ...FirestoreOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		)
	}

	r := &Firestore{
		client:     client,
		collection: collectionMemories,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

type memoryDoc struct {
	Seq           int               `firestore:"seq"`
	ID            model.MemoryID    `firestore:"id"`
	Title         string            `firestore:"title"`
	Description   string            `firestore:"description"`
	Position      model.Vec3        `firestore:"position"`
	Color         model.Color       `firestore:"color"`
	CreatedAt     time.Time         `firestore:"created_at"`
	CreatedAtNano int64             `firestore:"created_at_ns"`
	Location      *model.Coordinate `firestore:"location"`
	WorldSnapshot []byte            `firestore:"world_snapshot"`
	SnapshotKey   string            `firestore:"snapshot_key"`
}

func (r *Firestore) SaveAll(ctx context.Context, memories []*model.Memory) error {
	col := r.client.Collection(r.collection)

	// Blobs are written before the transaction, which may be retried.
	docs := make([]*memoryDoc, len(memories))
	for i, m := range memories {
		doc, err := r.encode(ctx, i, m)
		if err != nil {
			return err
		}
		docs[i] = doc
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.DocumentRefs(col).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to list memory documents")
		}

		keep := make(map[string]struct{}, len(memories))
		for _, m := range memories {
			keep[string(m.ID)] = struct{}{}
		}

		for _, ref := range existing {
			if _, ok := keep[ref.ID]; ok {
				continue
			}
			if err := tx.Delete(ref); err != nil {
				return goerr.Wrap(err, "failed to delete memory document", goerr.V("memory_id", ref.ID))
			}
		}

		for _, doc := range docs {
			if err := tx.Set(col.Doc(string(doc.ID)), doc); err != nil {
				return goerr.Wrap(err, "failed to set memory document", goerr.V("memory_id", doc.ID))
			}
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to save memories to firestore", goerr.V("count", len(memories)))
	}
	return nil
}

func (r *Firestore) LoadAll(ctx context.Context) ([]*model.Memory, error) {
	iter := r.client.Collection(r.collection).OrderBy("seq", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	memories := []*model.Memory{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memory documents")
		}

		var doc memoryDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode memory document", goerr.V("doc_id", snap.Ref.ID))
		}
		m, err := r.decode(ctx, &doc)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, nil
}

func (r *Firestore) encode(ctx context.Context, seq int, m *model.Memory) (*memoryDoc, error) {
	doc := toDoc(seq, m)
	if len(doc.WorldSnapshot) == 0 {
		return doc, nil
	}

	if r.snapshots != nil {
		key, err := r.snapshots.Put(ctx, m.ID, doc.WorldSnapshot)
		if err != nil {
			return nil, err
		}
		doc.SnapshotKey = key
		doc.WorldSnapshot = nil
		return doc, nil
	}

	if len(doc.WorldSnapshot) > MaxInlineSnapshot {
		return nil, goerr.Wrap(ErrSnapshotTooLarge, "failed to encode memory document",
			goerr.V("memory_id", m.ID),
			goerr.V("size", len(doc.WorldSnapshot)),
		)
	}
	return doc, nil
}

func (r *Firestore) decode(ctx context.Context, doc *memoryDoc) (*model.Memory, error) {
	m := fromDoc(doc)
	if doc.SnapshotKey == "" {
		return m, nil
	}
	if r.snapshots == nil {
		return nil, goerr.New("memory snapshot is stored outside firestore but no snapshot store is set",
			goerr.V("memory_id", doc.ID),
			goerr.V("key", doc.SnapshotKey),
		)
	}

	data, err := r.snapshots.Get(ctx, doc.SnapshotKey)
	if err != nil {
		return nil, err
	}
	m.WorldSnapshot = data
	return m, nil
}

func toDoc(seq int, m *model.Memory) *memoryDoc {
	return &memoryDoc{
		Seq:           seq,
		ID:            m.ID,
		Title:         m.Title,
		Description:   m.Description,
		Position:      m.Position,
		Color:         m.Color,
		CreatedAt:     m.CreatedAt,
		CreatedAtNano: m.CreatedAt.UnixNano(),
		Location:      m.Location,
		WorldSnapshot: m.WorldSnapshot,
	}
}

func fromDoc(doc *memoryDoc) *model.Memory {
	m := &model.Memory{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Position:    doc.Position,
		Color:       doc.Color,
		CreatedAt:   doc.CreatedAt,
		Location:    doc.Location,
	}
	// Firestore timestamps have microsecond precision
	if doc.CreatedAtNano != 0 {
		m.CreatedAt = time.Unix(0, doc.CreatedAtNano)
	}
	if len(doc.WorldSnapshot) > 0 {
		m.WorldSnapshot = doc.WorldSnapshot
	}
	return m
}
