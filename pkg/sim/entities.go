package sim

import (
	"slices"

	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/scene"
)

func (s *Scene) CreateAnchor(pose model.Transform) scene.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.nodes[s.next] = &node{local: pose}
	return s.next
}

func (s *Scene) AddSubEntity(parent scene.Handle, d scene.Descriptor) scene.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[parent]; !ok {
		return 0
	}
	s.next++
	s.nodes[s.next] = &node{
		parent: parent,
		local:  model.Transform{Position: d.Position, Rotation: model.IdentityQuat},
		desc:   d,
	}
	return s.next
}

func (s *Scene) RemoveAnchor(anchor scene.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[anchor]
	if !ok || n.parent != 0 {
		return
	}
	var doomed []scene.Handle
	for h := range s.nodes {
		if s.rootLocked(h) == anchor {
			doomed = append(doomed, h)
		}
	}
	for _, h := range doomed {
		delete(s.nodes, h)
	}
}

func (s *Scene) rootLocked(h scene.Handle) scene.Handle {
	for {
		n, ok := s.nodes[h]
		if !ok {
			return 0
		}
		if n.parent == 0 {
			return h
		}
		h = n.parent
	}
}

func (s *Scene) Parent(h scene.Handle) (scene.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[h]
	if !ok || n.parent == 0 {
		return 0, false
	}
	return n.parent, true
}

func (s *Scene) worldLocked(h scene.Handle) (model.Transform, bool) {
	n, ok := s.nodes[h]
	if !ok {
		return model.Transform{}, false
	}
	if n.parent == 0 {
		return n.local, true
	}
	parent, ok := s.worldLocked(n.parent)
	if !ok {
		return model.Transform{}, false
	}
	return parent.Compose(n.local), true
}

func (s *Scene) WorldPosition(h scene.Handle) (model.Vec3, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.worldLocked(h)
	return w.Position, ok
}

func (s *Scene) SetOrientation(h scene.Handle, q model.Quat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[h]; ok {
		n.local.Rotation = q
	}
}

// Animate jumps straight to the final rotation and records the animation.
func (s *Scene) Animate(h scene.Handle, a scene.Animation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[h]
	if !ok {
		return
	}
	n.local.Rotation = a.Rotation
	s.animations = append(s.animations, AnimationRecord{Handle: h, Animation: a})
}

// Orientation returns the local rotation of an entity.
func (s *Scene) Orientation(h scene.Handle) (model.Quat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[h]
	if !ok {
		return model.Quat{}, false
	}
	return n.local.Rotation, true
}

// Name returns the descriptor name of an entity; anchors have none.
func (s *Scene) Name(h scene.Handle) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[h]
	if !ok {
		return "", false
	}
	return n.desc.Name, true
}

// Anchors returns the live anchors in creation order.
func (s *Scene) Anchors() []scene.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []scene.Handle
	for h, n := range s.nodes {
		if n.parent == 0 {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out
}

// EntityCount returns the number of live anchors and entities.
func (s *Scene) EntityCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

func (s *Scene) Animations() []AnimationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.animations)
}
