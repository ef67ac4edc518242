// Package scene keeps the live scene anchors of the visible memories and
// maps struck entities back to the memory that owns them.
package scene

import (
	"time"

	"github.com/m-mizutani/arjournal/pkg/model"
)

// Handle identifies an anchor or entity inside the rendering collaborator.
// The zero value never refers to a live entity.
type Handle uint64

// ScreenPoint is a position in view coordinates, in points.
type ScreenPoint struct {
	X, Y float32
}

// Shape selects the geometry of a sub-entity.
type Shape string

const (
	ShapeGroup Shape = "group"
	ShapeBox   Shape = "box"
	ShapeText  Shape = "text"
)

// Descriptor describes one sub-entity to attach under a parent entity.
type Descriptor struct {
	Name         string
	Shape        Shape
	Size         model.Vec3
	CornerRadius float32
	Color        [4]float32
	Text         string
	// Position is relative to the parent entity
	Position model.Vec3
	// Collidable entities can be returned by EntityAt
	Collidable bool
}

// Animation moves an entity to a target local rotation over Duration.
type Animation struct {
	Rotation model.Quat
	Duration time.Duration
}

// Renderer is the rendering and tracking collaborator. Implementations are
// called from the control goroutine only.
type Renderer interface {
	// HitTest returns the pose of the detected surface under p
	HitTest(p ScreenPoint) (model.Transform, bool)
	// EntityAt returns the collidable entity under p
	EntityAt(p ScreenPoint) (Handle, bool)
	// CameraPose returns the current camera pose in tracking space
	CameraPose() (model.Transform, bool)

	CreateAnchor(pose model.Transform) Handle
	AddSubEntity(parent Handle, d Descriptor) Handle
	// RemoveAnchor detaches the anchor and all entities below it
	RemoveAnchor(anchor Handle)

	// Parent returns the owner of h; false for anchors and unknown handles
	Parent(h Handle) (Handle, bool)
	WorldPosition(h Handle) (model.Vec3, bool)
	SetOrientation(h Handle, q model.Quat)
	Animate(h Handle, a Animation)
}
