// Package engine runs the spatial memory core on a single control
// goroutine. Collaborator callbacks and background work are marshaled onto
// that goroutine, which alone touches the interaction state, the anchor
// registry and the tracking controller.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/arjournal/pkg/adapter"
	"github.com/m-mizutani/arjournal/pkg/geo"
	"github.com/m-mizutani/arjournal/pkg/interaction"
	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/scene"
	"github.com/m-mizutani/arjournal/pkg/tracking"
	"github.com/m-mizutani/arjournal/pkg/usecase/memory"
	"github.com/m-mizutani/arjournal/pkg/usecase/proximity"
	"github.com/m-mizutani/arjournal/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrClosed is returned by calls made after Run has returned.
	ErrClosed = goerr.New("engine is closed")

	errAlreadyRunning = goerr.New("engine is already running")
)

// Config tunes the engine. Zero values fall back to the defaults.
type Config struct {
	RadiusMeters         float64         `yaml:"radius_meters"`
	FallbackDistance     float32         `yaml:"fallback_distance_meters"`
	LabelMinDistance     float32         `yaml:"label_min_distance_meters"`
	SnapshotTimeout      time.Duration   `yaml:"snapshot_timeout"`
	RelocalizationPolicy tracking.Policy `yaml:"relocalization_policy"`
	PlaneDetection       string          `yaml:"plane_detection"`
	Narration            bool            `yaml:"narration"`
}

func DefaultConfig() Config {
	return Config{
		RadiusMeters:         proximity.DefaultRadiusMeters,
		FallbackDistance:     interaction.DefaultFallbackDistance,
		LabelMinDistance:     scene.DefaultLabelMinDistance,
		SnapshotTimeout:      tracking.DefaultCaptureTimeout,
		RelocalizationPolicy: tracking.PolicyFirst,
		PlaneDetection:       tracking.DefaultConfig().PlaneDetection,
		Narration:            true,
	}
}

func (c Config) Validate() error {
	if c.RadiusMeters < 0 {
		return goerr.Wrap(model.ErrValidation, "radius must not be negative", goerr.V("radius_meters", c.RadiusMeters))
	}
	if c.RelocalizationPolicy != "" {
		if err := c.RelocalizationPolicy.Validate(); err != nil {
			return err
		}
	}
	switch c.PlaneDetection {
	case "", "horizontal", "vertical", "both", "none":
	default:
		return goerr.Wrap(model.ErrValidation, "unknown plane detection", goerr.V("plane_detection", c.PlaneDetection))
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RadiusMeters == 0 {
		c.RadiusMeters = d.RadiusMeters
	}
	if c.FallbackDistance <= 0 {
		c.FallbackDistance = d.FallbackDistance
	}
	if c.LabelMinDistance <= 0 {
		c.LabelMinDistance = d.LabelMinDistance
	}
	if c.SnapshotTimeout <= 0 {
		c.SnapshotTimeout = d.SnapshotTimeout
	}
	if c.RelocalizationPolicy == "" {
		c.RelocalizationPolicy = d.RelocalizationPolicy
	}
	if c.PlaneDetection == "" {
		c.PlaneDetection = d.PlaneDetection
	}
	return c
}

// Input holds the collaborators of the engine. Locator, Snapshots and
// Narrator are optional.
type Input struct {
	Store     *memory.Store
	Locator   geo.Locator
	Renderer  scene.Renderer
	Session   tracking.Session
	Snapshots tracking.Snapshotter
	Narrator  adapter.Narrator
	// Mode is entered when Run starts; defaults to model.ModeAdd
	Mode   model.Mode
	Config Config
}

type task func(ctx context.Context)

type Engine struct {
	config    Config
	store     *memory.Store
	locator   geo.Locator
	session   tracking.Session
	snapshots tracking.Snapshotter
	narrator  adapter.Narrator

	// owned by the control goroutine
	registry    *scene.Registry
	machine     *interaction.Machine
	controller  *tracking.Controller
	relocalizer *tracking.Relocalizer
	narration   Narration
	narrationID uint64

	tasks   chan task
	frames  chan struct{}
	camera  atomic.Pointer[model.Vec3]
	stopped chan struct{}
	started atomic.Bool
	workers sync.WaitGroup
}

func New(in Input) (*Engine, error) {
	if in.Store == nil || in.Renderer == nil || in.Session == nil {
		return nil, goerr.New("store, renderer and session are required")
	}
	if err := in.Config.Validate(); err != nil {
		return nil, err
	}
	mode := in.Mode
	if mode == "" {
		mode = model.ModeAdd
	}
	if err := mode.Validate(); err != nil {
		return nil, err
	}

	cfg := in.Config.withDefaults()
	tcfg := tracking.DefaultConfig()
	tcfg.PlaneDetection = cfg.PlaneDetection

	registry := scene.NewRegistry(in.Renderer, scene.WithLabelMinDistance(cfg.LabelMinDistance))
	controller := tracking.NewController(in.Session, in.Snapshots, tcfg)

	return &Engine{
		config:    cfg,
		store:     in.Store,
		locator:   in.Locator,
		session:   in.Session,
		snapshots: in.Snapshots,
		narrator:  in.Narrator,

		registry: registry,
		machine: interaction.New(interaction.Input{
			Renderer:         in.Renderer,
			Registry:         registry,
			Mode:             mode,
			FallbackDistance: cfg.FallbackDistance,
		}),
		controller:  controller,
		relocalizer: tracking.NewRelocalizer(controller, cfg.RelocalizationPolicy),

		tasks:   make(chan task),
		frames:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}, nil
}

// Run enters the initial mode and serves calls until ctx is canceled. On
// return every background worker has finished and the tracking session is
// paused. Run can be called only once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}

	ctx = logging.WithAttrs(ctx, "component", "engine")
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return e.loop(ctx) })
	eg.Go(func() error { return e.forwardStates(ctx) })
	err := eg.Wait()

	e.workers.Wait()
	e.controller.Pause()
	logging.From(ctx).Debug("engine stopped")
	return err
}

func (e *Engine) loop(ctx context.Context) error {
	defer close(e.stopped)

	if err := e.enterMode(ctx, e.machine.Mode()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-e.tasks:
			t(ctx)
		case <-e.frames:
			if cam := e.camera.Load(); cam != nil {
				e.registry.UpdateLabels(*cam)
			}
		}
	}
}

func (e *Engine) forwardStates(ctx context.Context) error {
	states := e.session.States()
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-states:
			if !e.post(func(ctx context.Context) { e.handleState(ctx, s) }) {
				return nil
			}
		}
	}
}

// post hands t to the control goroutine. It returns false once the loop
// has stopped.
func (e *Engine) post(t task) bool {
	select {
	case e.tasks <- t:
		return true
	case <-e.stopped:
		return false
	}
}

// goWorker runs fn off the control goroutine. Run waits for it to finish.
func (e *Engine) goWorker(fn func()) {
	e.workers.Go(fn)
}

// call runs fn on the control goroutine and waits for its result.
func call[T any](ctx context.Context, e *Engine, fn func(ctx context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	t := func(ctx context.Context) {
		v, err := fn(ctx)
		ch <- result{value: v, err: err}
	}

	var zero T
	select {
	case e.tasks <- t:
	case <-e.stopped:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, goerr.Wrap(ctx.Err(), "engine call canceled")
	}

	// An accepted task always runs to completion before the loop stops.
	r := <-ch
	return r.value, r.err
}

func (e *Engine) handleState(ctx context.Context, s tracking.State) {
	was := e.controller.Relocalizing()
	e.controller.HandleState(s)
	if was && !e.controller.Relocalizing() {
		logging.From(ctx).Info("relocalized", "state", s)
	}
}

// Relocalizing reports whether the current session is still aligning to a
// restored snapshot. It is safe to call from any goroutine.
func (e *Engine) Relocalizing() bool {
	return e.controller.Relocalizing()
}
