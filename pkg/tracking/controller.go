package tracking

import (
	"context"
	"sync/atomic"

	"github.com/m-mizutani/arjournal/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Controller runs the tracking session and exposes whether the current
// session is still aligning itself to a restored snapshot.
type Controller struct {
	session   Session
	snapshots Snapshotter
	config    Config

	running      bool
	state        State
	relocalizing atomic.Bool
}

func NewController(session Session, snapshots Snapshotter, config Config) *Controller {
	return &Controller{
		session:   session,
		snapshots: snapshots,
		config:    config,
		state:     StateNotAvailable,
	}
}

// Start runs a session. If snapshot is non-empty and can be restored, the
// session is seeded with it and Relocalizing reports true until tracking
// becomes normal. A snapshot that cannot be restored is logged and the
// session starts unseeded. It reports whether the session was seeded.
func (c *Controller) Start(ctx context.Context, snapshot []byte) (bool, error) {
	var world WorldMap
	if len(snapshot) > 0 && c.snapshots != nil {
		w, err := c.snapshots.Restore(snapshot)
		if err != nil {
			logging.From(ctx).Warn("failed to restore world snapshot, starting unseeded", "error", err)
		} else {
			world = w
		}
	}

	if err := c.run(world); err != nil {
		return false, err
	}
	return world != nil, nil
}

func (c *Controller) run(world WorldMap) error {
	if err := c.session.Run(c.config, world); err != nil {
		return goerr.Wrap(err, "failed to run tracking session", goerr.V("seeded", world != nil))
	}
	c.running = true
	c.relocalizing.Store(world != nil)
	return nil
}

// Pause stops the session. Relocalization in progress is abandoned.
func (c *Controller) Pause() {
	if !c.running {
		return
	}
	c.session.Pause()
	c.running = false
	c.relocalizing.Store(false)
}

// HandleState records a tracking state change. Normal tracking ends
// relocalization.
func (c *Controller) HandleState(s State) {
	c.state = s
	if s == StateNormal {
		c.relocalizing.Store(false)
	}
}

// Relocalizing is safe to call from any goroutine.
func (c *Controller) Relocalizing() bool { return c.relocalizing.Load() }

func (c *Controller) Running() bool { return c.running }

func (c *Controller) State() State { return c.state }
