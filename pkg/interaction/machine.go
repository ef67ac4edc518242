// Package interaction resolves screen taps into memory creation or opening
// and tracks the pending user action.
package interaction

import (
	"strings"

	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/scene"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultFallbackDistance is how far in front of the camera a memory is
// placed when no surface is under the tap, in meters.
const DefaultFallbackDistance = 0.5

type Kind int

const (
	KindIdle Kind = iota
	KindPendingCreate
	KindViewing
)

func (k Kind) String() string {
	switch k {
	case KindPendingCreate:
		return "pending_create"
	case KindViewing:
		return "viewing"
	default:
		return "idle"
	}
}

// State is the pending interaction. Position is set for KindPendingCreate
// and MemoryID for KindViewing.
type State struct {
	Kind     Kind
	Position model.Vec3
	MemoryID model.MemoryID
}

// Action is what a tap resolved to.
type Action int

const (
	ActionNone Action = iota
	ActionPendingCreate
	ActionOpen
)

// Outcome is the result of a tap.
type Outcome struct {
	Action   Action
	Position model.Vec3
	MemoryID model.MemoryID
	// Fallback is set when the position was placed in front of the camera
	// because no surface was hit
	Fallback bool
	// Miss is the recoverable miss that shaped the outcome:
	// model.ErrHitTestMiss or model.ErrEntityResolutionMiss
	Miss error
}

// CreateRequest is emitted by Save for the memory store.
type CreateRequest struct {
	Title       string
	Description string
	Position    model.Vec3
	// CaptureSnapshot is set when the active mode persists world snapshots
	CaptureSnapshot bool
}

// Input holds the collaborators the machine resolves taps against.
type Input struct {
	Renderer scene.Renderer
	Registry *scene.Registry
	Mode     model.Mode
	// FallbackDistance defaults to DefaultFallbackDistance
	FallbackDistance float32
}

// Machine is the single-writer interaction state machine. Only taps and
// explicit user actions change its state.
type Machine struct {
	renderer         scene.Renderer
	registry         *scene.Registry
	mode             model.Mode
	fallbackDistance float32

	state State
}

func New(in Input) *Machine {
	m := &Machine{
		renderer:         in.Renderer,
		registry:         in.Registry,
		mode:             in.Mode,
		fallbackDistance: in.FallbackDistance,
	}
	if m.mode == "" {
		m.mode = model.ModeAdd
	}
	if m.fallbackDistance <= 0 {
		m.fallbackDistance = DefaultFallbackDistance
	}
	return m
}

func (m *Machine) State() State     { return m.state }
func (m *Machine) Mode() model.Mode { return m.mode }

// SetMode switches the interaction mode and drops any pending action.
func (m *Machine) SetMode(mode model.Mode) {
	m.mode = mode
	m.state = State{}
}

// Tap resolves a tap at p. Taps are only handled while idle. In a mode that
// can explore, a tap on a registered memory opens it and plays its emphasis
// animation. Otherwise, in a mode that can create, the tap selects the hit
// surface or, with no surface, a point in front of the camera.
func (m *Machine) Tap(p scene.ScreenPoint) Outcome {
	if m.state.Kind != KindIdle {
		return Outcome{}
	}

	var miss error
	if m.mode.CanExplore() {
		if h, ok := m.renderer.EntityAt(p); ok {
			if id, ok := m.registry.Resolve(h); ok {
				m.registry.Emphasize(id)
				m.state = State{Kind: KindViewing, MemoryID: id}
				return Outcome{Action: ActionOpen, MemoryID: id}
			}
			miss = model.ErrEntityResolutionMiss
		}
	}

	if !m.mode.CanCreate() {
		return Outcome{Miss: miss}
	}

	if pose, ok := m.renderer.HitTest(p); ok {
		m.state = State{Kind: KindPendingCreate, Position: pose.Position}
		return Outcome{Action: ActionPendingCreate, Position: pose.Position}
	}

	pos, ok := m.inFrontOfCamera()
	if !ok {
		return Outcome{Miss: model.ErrHitTestMiss}
	}
	m.state = State{Kind: KindPendingCreate, Position: pos}
	return Outcome{Action: ActionPendingCreate, Position: pos, Fallback: true, Miss: model.ErrHitTestMiss}
}

func (m *Machine) inFrontOfCamera() (model.Vec3, bool) {
	cam, ok := m.renderer.CameraPose()
	if !ok {
		return model.Vec3{}, false
	}
	return cam.Apply(model.Vec3{Z: -m.fallbackDistance}), true
}

// Save turns the pending position into a create request and returns to
// idle. An empty title is rejected and the pending position is kept.
func (m *Machine) Save(title, description string) (CreateRequest, error) {
	if m.state.Kind != KindPendingCreate {
		return CreateRequest{}, goerr.Wrap(model.ErrInvalidState, "nothing to save", goerr.V("state", m.state.Kind))
	}
	if strings.TrimSpace(title) == "" {
		return CreateRequest{}, goerr.Wrap(model.ErrValidation, "title is required")
	}

	req := CreateRequest{
		Title:           title,
		Description:     description,
		Position:        m.state.Position,
		CaptureSnapshot: m.mode.PersistsWorld(),
	}
	m.state = State{}
	return req, nil
}

// Cancel discards the pending position.
func (m *Machine) Cancel() error {
	if m.state.Kind != KindPendingCreate {
		return goerr.Wrap(model.ErrInvalidState, "nothing to cancel", goerr.V("state", m.state.Kind))
	}
	m.state = State{}
	return nil
}

// Dismiss closes the opened memory.
func (m *Machine) Dismiss() error {
	if m.state.Kind != KindViewing {
		return goerr.Wrap(model.ErrInvalidState, "no memory is open", goerr.V("state", m.state.Kind))
	}
	m.state = State{}
	return nil
}

// Delete closes the opened memory and returns its ID for deletion.
func (m *Machine) Delete() (model.MemoryID, error) {
	if m.state.Kind != KindViewing {
		return "", goerr.Wrap(model.ErrInvalidState, "no memory is open", goerr.V("state", m.state.Kind))
	}
	id := m.state.MemoryID
	m.state = State{}
	return id, nil
}
