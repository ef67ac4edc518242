// Package sim is a headless stand-in for the camera, tracking and rendering
// stack. It keeps a plain entity tree, hit-tests against flat planes and
// axis-aligned boxes, and fakes world snapshots. It backs the sim command
// and the engine tests.
package sim

import (
	"math"
	"sync"
	"time"

	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/scene"
	"github.com/m-mizutani/arjournal/pkg/tracking"
)

// Viewport maps screen points to camera rays with a pinhole model.
type Viewport struct {
	Width, Height float32
	// Focal is the focal length in points
	Focal float32
}

// DefaultViewport is a portrait phone screen.
var DefaultViewport = Viewport{Width: 390, Height: 844, Focal: 500}

// Plane is a horizontal detected surface at height Y bounded in X and Z.
type Plane struct {
	Y    float32 `json:"y"`
	MinX float32 `json:"min_x"`
	MaxX float32 `json:"max_x"`
	MinZ float32 `json:"min_z"`
	MaxZ float32 `json:"max_z"`
}

func (p Plane) contains(v model.Vec3) bool {
	return v.X >= p.MinX && v.X <= p.MaxX && v.Z >= p.MinZ && v.Z <= p.MaxZ
}

// Floor returns a square plane of half-size extent centered on the origin.
func Floor(y, extent float32) Plane {
	return Plane{Y: y, MinX: -extent, MaxX: extent, MinZ: -extent, MaxZ: extent}
}

type node struct {
	parent scene.Handle
	local  model.Transform
	desc   scene.Descriptor
}

// AnimationRecord is an animation that was played on an entity.
type AnimationRecord struct {
	Handle    scene.Handle
	Animation scene.Animation
}

// RunRecord is one call to Session.Run.
type RunRecord struct {
	Config tracking.Config
	World  *World
}

// Scene implements scene.Renderer, tracking.Session and tracking.Snapshotter.
type Scene struct {
	mu sync.Mutex

	viewport Viewport
	camera   *model.Transform
	planes   []Plane
	next     scene.Handle
	nodes    map[scene.Handle]*node

	features     int
	minFeatures  int
	captureDelay time.Duration

	states     chan tracking.State
	runs       []RunRecord
	pauses     int
	animations []AnimationRecord
}

type Option func(*Scene)

func WithViewport(v Viewport) Option {
	return func(s *Scene) {
		s.viewport = v
	}
}

// WithMinFeatures sets how many tracked features Capture needs.
func WithMinFeatures(n int) Option {
	return func(s *Scene) {
		s.minFeatures = n
	}
}

func New(opts ...Option) *Scene {
	s := &Scene{
		viewport:    DefaultViewport,
		nodes:       make(map[scene.Handle]*node),
		minFeatures: 100,
		features:    500,
		states:      make(chan tracking.State, 64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCamera places the camera. A nil pose means no camera frame yet.
func (s *Scene) SetCamera(pose *model.Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pose == nil {
		s.camera = nil
		return
	}
	p := *pose
	s.camera = &p
}

// LookFrom returns an upright camera pose at pos turned by yaw radians
// around the vertical axis and pitched by pitch radians.
func LookFrom(pos model.Vec3, yaw, pitch float64) model.Transform {
	rot := model.QuatAxisAngle(model.Vec3{Y: 1}, yaw).Mul(model.QuatAxisAngle(model.Vec3{X: 1}, pitch))
	return model.Transform{Position: pos, Rotation: rot.Normalize()}
}

func (s *Scene) AddPlane(p Plane) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planes = append(s.planes, p)
}

func (s *Scene) ClearPlanes() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planes = nil
}

// SetFeatures sets the number of currently tracked features.
func (s *Scene) SetFeatures(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features = n
}

// SetCaptureDelay makes Capture wait before answering.
func (s *Scene) SetCaptureDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captureDelay = d
}

// ray returns the world-space ray through screen point p.
func (s *Scene) ray(p scene.ScreenPoint) (origin, dir model.Vec3, ok bool) {
	if s.camera == nil {
		return model.Vec3{}, model.Vec3{}, false
	}
	v := s.viewport
	local := model.Vec3{
		X: (p.X - v.Width/2) / v.Focal,
		Y: -(p.Y - v.Height/2) / v.Focal,
		Z: -1,
	}
	return s.camera.Position, s.camera.Rotation.Rotate(local).Normalize(), true
}

// Project returns the screen point showing world position w.
func (s *Scene) Project(w model.Vec3) (scene.ScreenPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.camera == nil {
		return scene.ScreenPoint{}, false
	}
	c := s.camera.Inverse(w)
	if c.Z >= 0 {
		return scene.ScreenPoint{}, false
	}
	v := s.viewport
	return scene.ScreenPoint{
		X: v.Width/2 + v.Focal*c.X/-c.Z,
		Y: v.Height/2 - v.Focal*c.Y/-c.Z,
	}, true
}

func (s *Scene) HitTest(p scene.ScreenPoint) (model.Transform, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	origin, dir, ok := s.ray(p)
	if !ok || dir.Y == 0 {
		return model.Transform{}, false
	}

	best := float32(math.MaxFloat32)
	var hit model.Vec3
	found := false
	for _, pl := range s.planes {
		t := (pl.Y - origin.Y) / dir.Y
		if t <= 0 || t >= best {
			continue
		}
		point := origin.Add(dir.Scale(t))
		if !pl.contains(point) {
			continue
		}
		best, hit, found = t, point, true
	}
	if !found {
		return model.Transform{}, false
	}
	return model.Transform{Position: hit, Rotation: model.IdentityQuat}, true
}

func (s *Scene) EntityAt(p scene.ScreenPoint) (scene.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	origin, dir, ok := s.ray(p)
	if !ok {
		return 0, false
	}

	best := float32(math.MaxFloat32)
	var hit scene.Handle
	for h, n := range s.nodes {
		if !n.desc.Collidable {
			continue
		}
		center, ok := s.worldLocked(h)
		if !ok {
			continue
		}
		t, ok := intersectBox(origin, dir, center.Position, n.desc.Size.Scale(0.5))
		if !ok {
			continue
		}
		// Ties go to the lower handle so results do not depend on map order
		if t < best || (t == best && h < hit) {
			best, hit = t, h
		}
	}
	return hit, hit != 0
}

// intersectBox is the slab test for an axis-aligned box.
func intersectBox(origin, dir, center, half model.Vec3) (float32, bool) {
	tmin := float32(-math.MaxFloat32)
	tmax := float32(math.MaxFloat32)

	o := [3]float32{origin.X, origin.Y, origin.Z}
	d := [3]float32{dir.X, dir.Y, dir.Z}
	lo := [3]float32{center.X - half.X, center.Y - half.Y, center.Z - half.Z}
	hi := [3]float32{center.X + half.X, center.Y + half.Y, center.Z + half.Z}

	for i := range 3 {
		if d[i] == 0 {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - o[i]) / d[i]
		t2 := (hi[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	return max(tmin, 0), true
}

func (s *Scene) CameraPose() (model.Transform, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.camera == nil {
		return model.Transform{}, false
	}
	return *s.camera, true
}
