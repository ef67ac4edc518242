package scene

import (
	"math"
	"time"

	"github.com/m-mizutani/arjournal/pkg/model"
)

// Sub-entity names of a memory's treasure box
const (
	PartContainer = "container"
	PartBase      = "base"
	PartHinge     = "hinge"
	PartLid       = "lid"
	PartLatch     = "latch"
	PartTitle     = "title"
)

var (
	boxSize   = model.Vec3{X: 0.14, Y: 0.08, Z: 0.14}
	lidSize   = model.Vec3{X: boxSize.X * 1.02, Y: boxSize.Y * 0.25, Z: boxSize.Z * 1.02}
	latchSize = model.Vec3{X: boxSize.X * 0.22, Y: boxSize.Y * 0.1, Z: boxSize.Z * 0.06}

	latchColor = [4]float32{1, 0.8, 0, 1}
	titleColor = [4]float32{1, 1, 1, 1}
)

// lidOpenAngle is the hinge rotation around X when a memory is opened.
const lidOpenAngle = -math.Pi / 2.8

const lidOpenDuration = 400 * time.Millisecond

type part struct {
	parent string
	desc   Descriptor
}

// treasureParts lists the sub-entities of a memory in creation order; every
// parent appears before its children. An empty parent means the anchor.
func treasureParts(m *model.Memory) []part {
	color := m.Color.RGBA()
	lidColor := color
	lidColor[3] = 0.95

	return []part{
		{"", Descriptor{Name: PartContainer, Shape: ShapeGroup}},
		{PartContainer, Descriptor{
			Name:         PartBase,
			Shape:        ShapeBox,
			Size:         boxSize,
			CornerRadius: 0.01,
			Color:        color,
			Collidable:   true,
		}},
		{PartContainer, Descriptor{
			Name:     PartHinge,
			Shape:    ShapeGroup,
			Position: model.Vec3{Y: boxSize.Y*0.5 + lidSize.Y*0.5, Z: -boxSize.Z * 0.5},
		}},
		{PartHinge, Descriptor{
			Name:         PartLid,
			Shape:        ShapeBox,
			Size:         lidSize,
			CornerRadius: 0.008,
			Color:        lidColor,
			Position:     model.Vec3{Z: lidSize.Z * 0.5},
			Collidable:   true,
		}},
		{PartContainer, Descriptor{
			Name:       PartLatch,
			Shape:      ShapeBox,
			Size:       latchSize,
			Color:      latchColor,
			Position:   model.Vec3{Z: boxSize.Z * 0.52},
			Collidable: true,
		}},
		{PartContainer, Descriptor{
			Name:     PartTitle,
			Shape:    ShapeText,
			Text:     m.Title,
			Color:    titleColor,
			Position: model.Vec3{Y: boxSize.Y * 0.9},
		}},
	}
}

func lidOpenAnimation() Animation {
	return Animation{
		Rotation: model.QuatAxisAngle(model.Vec3{X: 1}, lidOpenAngle),
		Duration: lidOpenDuration,
	}
}
