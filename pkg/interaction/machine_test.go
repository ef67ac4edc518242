package interaction_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/m-mizutani/arjournal/pkg/interaction"
	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/scene"
	"github.com/m-mizutani/arjournal/pkg/sim"
	"github.com/m-mizutani/gt"
)

var center = scene.ScreenPoint{X: 195, Y: 422}

type fixture struct {
	scene    *sim.Scene
	registry *scene.Registry
	machine  *interaction.Machine
}

// newFixture looks down at a floor so that the screen center hits (0, 0, -1.5).
func newFixture(mode model.Mode, memories ...*model.Memory) *fixture {
	s := sim.New()
	s.AddPlane(sim.Floor(0, 10))
	cam := sim.LookFrom(model.Vec3{Y: 1.5}, 0, -math.Pi/4)
	s.SetCamera(&cam)

	r := scene.NewRegistry(s)
	r.Populate(memories)
	return &fixture{
		scene:    s,
		registry: r,
		machine: interaction.New(interaction.Input{
			Renderer: s,
			Registry: r,
			Mode:     mode,
		}),
	}
}

func memoryAt(id string, pos model.Vec3) *model.Memory {
	return &model.Memory{ID: model.MemoryID(id), Title: id, Position: pos, Color: model.ColorRuby, CreatedAt: time.Now()}
}

func near(a, b model.Vec3) bool { return a.Sub(b).Length() < 1e-3 }

func TestTapOnSurface(t *testing.T) {
	f := newFixture(model.ModeAdd)

	out := f.machine.Tap(center)
	gt.Equal(t, out.Action, interaction.ActionPendingCreate)
	gt.False(t, out.Fallback)
	gt.NoError(t, out.Miss)
	gt.True(t, near(out.Position, model.Vec3{Z: -1.5}))

	st := f.machine.State()
	gt.Equal(t, st.Kind, interaction.KindPendingCreate)
	gt.Equal(t, st.Position, out.Position)
}

func TestTapWithoutSurfaceFallsBack(t *testing.T) {
	f := newFixture(model.ModeAdd)
	f.scene.ClearPlanes()

	out := f.machine.Tap(center)
	gt.Equal(t, out.Action, interaction.ActionPendingCreate)
	gt.True(t, out.Fallback)
	gt.True(t, errors.Is(out.Miss, model.ErrHitTestMiss))

	cam, _ := f.scene.CameraPose()
	want := cam.Position.Add(cam.Forward().Scale(0.5))
	gt.B(t, near(out.Position, want)).Describef("got %+v want %+v", out.Position, want).True()
}

func TestFallbackDistanceOption(t *testing.T) {
	f := newFixture(model.ModeAdd)
	f.scene.ClearPlanes()
	m := interaction.New(interaction.Input{
		Renderer:         f.scene,
		Registry:         f.registry,
		Mode:             model.ModeAdd,
		FallbackDistance: 2,
	})

	out := m.Tap(center)
	cam, _ := f.scene.CameraPose()
	gt.True(t, math.Abs(float64(out.Position.Sub(cam.Position).Length()-2)) < 1e-4)
}

func TestTapWithoutCameraStaysIdle(t *testing.T) {
	f := newFixture(model.ModeAdd)
	f.scene.SetCamera(nil)

	out := f.machine.Tap(center)
	gt.Equal(t, out.Action, interaction.ActionNone)
	gt.True(t, errors.Is(out.Miss, model.ErrHitTestMiss))
	gt.Equal(t, f.machine.State().Kind, interaction.KindIdle)
}

func TestTapOpensMemory(t *testing.T) {
	for _, mode := range []model.Mode{model.ModeAdd, model.ModeExplore} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(mode, memoryAt("a", model.Vec3{Z: -1.5}))

			out := f.machine.Tap(center)
			gt.Equal(t, out.Action, interaction.ActionOpen)
			gt.Equal(t, out.MemoryID, model.MemoryID("a"))
			gt.Equal(t, f.machine.State(), interaction.State{Kind: interaction.KindViewing, MemoryID: "a"})
			gt.A(t, f.scene.Animations()).Length(1)
		})
	}
}

func TestExploreTapOnSurfaceIsIgnored(t *testing.T) {
	f := newFixture(model.ModeExplore)

	out := f.machine.Tap(center)
	gt.Equal(t, out.Action, interaction.ActionNone)
	gt.NoError(t, out.Miss)
	gt.Equal(t, f.machine.State().Kind, interaction.KindIdle)
}

func TestTapOnUnownedEntity(t *testing.T) {
	f := newFixture(model.ModeExplore)
	anchor := f.scene.CreateAnchor(model.Transform{Position: model.Vec3{Z: -1.5}, Rotation: model.IdentityQuat})
	f.scene.AddSubEntity(anchor, scene.Descriptor{
		Name:       "decoration",
		Shape:      scene.ShapeBox,
		Size:       model.Vec3{X: 0.3, Y: 0.3, Z: 0.3},
		Collidable: true,
	})

	out := f.machine.Tap(center)
	gt.Equal(t, out.Action, interaction.ActionNone)
	gt.True(t, errors.Is(out.Miss, model.ErrEntityResolutionMiss))
	gt.Equal(t, f.machine.State().Kind, interaction.KindIdle)

	// In add mode the tap falls through to creation.
	f.machine.SetMode(model.ModeAdd)
	out = f.machine.Tap(center)
	gt.Equal(t, out.Action, interaction.ActionPendingCreate)
}

func TestTapIgnoredUnlessIdle(t *testing.T) {
	f := newFixture(model.ModeAdd, memoryAt("a", model.Vec3{X: 5}))

	first := f.machine.Tap(center)
	gt.Equal(t, first.Action, interaction.ActionPendingCreate)

	second := f.machine.Tap(scene.ScreenPoint{X: 10, Y: 800})
	gt.Equal(t, second.Action, interaction.ActionNone)
	gt.Equal(t, f.machine.State().Position, first.Position)
}

func TestPendingCreateThenCancel(t *testing.T) {
	f := newFixture(model.ModeAdd)
	f.machine.Tap(center)

	gt.NoError(t, f.machine.Cancel())
	gt.Equal(t, f.machine.State(), interaction.State{})

	gt.True(t, errors.Is(f.machine.Cancel(), model.ErrInvalidState))
}

func TestSave(t *testing.T) {
	f := newFixture(model.ModeAdd)
	out := f.machine.Tap(center)

	req, err := f.machine.Save("Note A", "under the desk")
	gt.NoError(t, err)
	gt.Equal(t, req, interaction.CreateRequest{
		Title:           "Note A",
		Description:     "under the desk",
		Position:        out.Position,
		CaptureSnapshot: true,
	})
	gt.Equal(t, f.machine.State().Kind, interaction.KindIdle)
}

func TestSaveRequiresTitle(t *testing.T) {
	f := newFixture(model.ModeAdd)
	f.machine.Tap(center)

	_, err := f.machine.Save("   ", "")
	gt.True(t, errors.Is(err, model.ErrValidation))
	gt.Equal(t, f.machine.State().Kind, interaction.KindPendingCreate)
}

func TestSaveWhileIdle(t *testing.T) {
	f := newFixture(model.ModeAdd)
	_, err := f.machine.Save("Note", "")
	gt.True(t, errors.Is(err, model.ErrInvalidState))
}

func TestViewingTransitions(t *testing.T) {
	t.Run("dismiss", func(t *testing.T) {
		f := newFixture(model.ModeExplore, memoryAt("a", model.Vec3{Z: -1.5}))
		f.machine.Tap(center)

		gt.NoError(t, f.machine.Dismiss())
		gt.Equal(t, f.machine.State().Kind, interaction.KindIdle)
		gt.True(t, errors.Is(f.machine.Dismiss(), model.ErrInvalidState))
	})

	t.Run("delete", func(t *testing.T) {
		f := newFixture(model.ModeExplore, memoryAt("a", model.Vec3{Z: -1.5}))
		f.machine.Tap(center)

		id, err := f.machine.Delete()
		gt.NoError(t, err)
		gt.Equal(t, id, model.MemoryID("a"))
		gt.Equal(t, f.machine.State().Kind, interaction.KindIdle)

		_, err = f.machine.Delete()
		gt.True(t, errors.Is(err, model.ErrInvalidState))
	})

	t.Run("save and cancel are rejected", func(t *testing.T) {
		f := newFixture(model.ModeAdd, memoryAt("a", model.Vec3{Z: -1.5}))
		f.machine.Tap(center)

		_, err := f.machine.Save("x", "")
		gt.True(t, errors.Is(err, model.ErrInvalidState))
		gt.True(t, errors.Is(f.machine.Cancel(), model.ErrInvalidState))
		gt.Equal(t, f.machine.State().Kind, interaction.KindViewing)
	})
}

func TestSetModeResetsState(t *testing.T) {
	f := newFixture(model.ModeAdd)
	f.machine.Tap(center)

	f.machine.SetMode(model.ModeExplore)
	gt.Equal(t, f.machine.Mode(), model.ModeExplore)
	gt.Equal(t, f.machine.State().Kind, interaction.KindIdle)
}

func TestDefaultMode(t *testing.T) {
	m := interaction.New(interaction.Input{Renderer: sim.New(), Registry: scene.NewRegistry(sim.New())})
	gt.Equal(t, m.Mode(), model.ModeAdd)
}
