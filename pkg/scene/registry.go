package scene

import (
	"github.com/m-mizutani/arjournal/pkg/model"
)

// DefaultLabelMinDistance is the horizontal camera distance, in meters,
// below which labels keep their orientation.
const DefaultLabelMinDistance = 0.05

// maxOwnershipDepth bounds the parent walk in Resolve.
const maxOwnershipDepth = 64

type entry struct {
	id     model.MemoryID
	anchor Handle
	parts  map[string]Handle
	label  Handle
}

// Registry is the single source of truth for which memories are rendered.
// It is not safe for concurrent use; the engine calls it from its control
// goroutine only.
type Registry struct {
	renderer Renderer

	entries map[model.MemoryID]*entry
	// order holds entries in population order for per-frame iteration
	order  []*entry
	owners map[Handle]model.MemoryID

	labelMinDistance float32
}

// Option is a functional option for Registry
type Option func(*Registry)

// WithLabelMinDistance sets the horizontal distance below which labels are
// not re-oriented
func WithLabelMinDistance(meters float32) Option {
	return func(r *Registry) {
		r.labelMinDistance = meters
	}
}

func NewRegistry(renderer Renderer, opts ...Option) *Registry {
	r := &Registry{
		renderer:         renderer,
		entries:          make(map[model.MemoryID]*entry),
		owners:           make(map[Handle]model.MemoryID),
		labelMinDistance: DefaultLabelMinDistance,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Populate replaces every registered anchor with a fresh one per memory.
// Afterwards the registered IDs equal the IDs of memories. Duplicated
// memories are registered once.
func (r *Registry) Populate(memories []*model.Memory) {
	r.Clear()

	for _, m := range memories {
		if _, ok := r.entries[m.ID]; ok {
			continue
		}
		e := r.build(m)
		r.entries[m.ID] = e
		r.order = append(r.order, e)
	}
}

// Sync repopulates only if the set of memory IDs differs from the registered
// set. It reports whether the scene was rebuilt.
func (r *Registry) Sync(memories []*model.Memory) bool {
	if r.Matches(memories) {
		return false
	}
	r.Populate(memories)
	return true
}

// Matches reports whether memories have exactly the registered IDs.
func (r *Registry) Matches(memories []*model.Memory) bool {
	seen := make(map[model.MemoryID]struct{}, len(memories))
	for _, m := range memories {
		if _, ok := r.entries[m.ID]; !ok {
			return false
		}
		seen[m.ID] = struct{}{}
	}
	return len(seen) == len(r.entries)
}

func (r *Registry) build(m *model.Memory) *entry {
	anchor := r.renderer.CreateAnchor(model.Transform{
		Position: m.Position,
		Rotation: model.IdentityQuat,
	})

	e := &entry{
		id:     m.ID,
		anchor: anchor,
		parts:  make(map[string]Handle, 6),
	}
	r.owners[anchor] = m.ID

	for _, p := range treasureParts(m) {
		parent := anchor
		if p.parent != "" {
			parent = e.parts[p.parent]
		}
		h := r.renderer.AddSubEntity(parent, p.desc)
		e.parts[p.desc.Name] = h
		r.owners[h] = m.ID
	}
	e.label = e.parts[PartTitle]
	return e
}

// Clear removes every anchor from the scene and empties the registry.
func (r *Registry) Clear() {
	for _, e := range r.order {
		r.renderer.RemoveAnchor(e.anchor)
	}
	clear(r.entries)
	clear(r.owners)
	clear(r.order)
	r.order = r.order[:0]
}

// Resolve maps a struck entity to the memory that owns it by walking up the
// ownership chain.
func (r *Registry) Resolve(h Handle) (model.MemoryID, bool) {
	for range maxOwnershipDepth {
		if id, ok := r.owners[h]; ok {
			return id, true
		}
		parent, ok := r.renderer.Parent(h)
		if !ok {
			return "", false
		}
		h = parent
	}
	return "", false
}

// Lookup returns the anchor of a registered memory.
func (r *Registry) Lookup(id model.MemoryID) (Handle, bool) {
	e, ok := r.entries[id]
	if !ok {
		return 0, false
	}
	return e.anchor, true
}

// Part returns a named sub-entity of a registered memory.
func (r *Registry) Part(id model.MemoryID, name string) (Handle, bool) {
	e, ok := r.entries[id]
	if !ok {
		return 0, false
	}
	h, ok := e.parts[name]
	return h, ok
}

// IDs returns the registered memory IDs in population order.
func (r *Registry) IDs() []model.MemoryID {
	ids := make([]model.MemoryID, len(r.order))
	for i, e := range r.order {
		ids[i] = e.id
	}
	return ids
}

func (r *Registry) Len() int { return len(r.order) }

// Emphasize plays the lid-opening animation of a registered memory.
func (r *Registry) Emphasize(id model.MemoryID) bool {
	hinge, ok := r.Part(id, PartHinge)
	if !ok {
		return false
	}
	r.renderer.Animate(hinge, lidOpenAnimation())
	return true
}

// UpdateLabels turns every title label toward camera around the vertical
// axis. Labels closer than the minimum horizontal distance are skipped. It
// returns the number of labels updated.
func (r *Registry) UpdateLabels(camera model.Vec3) int {
	updated := 0
	for _, e := range r.order {
		pos, ok := r.renderer.WorldPosition(e.label)
		if !ok {
			continue
		}
		dx := camera.X - pos.X
		dz := camera.Z - pos.Z
		if (model.Vec3{X: dx, Z: dz}).HorizontalLength() < r.labelMinDistance {
			continue
		}
		r.renderer.SetOrientation(e.label, model.YawTowards(dx, dz))
		updated++
	}
	return updated
}
