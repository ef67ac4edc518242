// Package tracking owns the camera tracking session lifecycle and re-aligns
// tracking space across sessions from saved world snapshots.
package tracking

import (
	"context"
)

// State is the tracking quality reported by the collaborator.
type State string

const (
	StateNotAvailable State = "not_available"
	StateLimited      State = "limited"
	StateNormal       State = "normal"
)

// Config is the session configuration passed to the collaborator.
type Config struct {
	// PlaneDetection is "horizontal", "vertical", "both" or "none"
	PlaneDetection       string `yaml:"plane_detection"`
	EnvironmentTexturing bool   `yaml:"environment_texturing"`
	SceneDepth           bool   `yaml:"scene_depth"`
}

// DefaultConfig detects horizontal planes with smoothed scene depth and no
// environment texturing.
func DefaultConfig() Config {
	return Config{
		PlaneDetection:       "horizontal",
		EnvironmentTexturing: false,
		SceneDepth:           true,
	}
}

// WorldMap is an opaque restored snapshot understood by the Session.
type WorldMap any

// Session is the camera tracking collaborator.
type Session interface {
	// Run (re)starts tracking. A nil world starts an unseeded session with a
	// fresh origin.
	Run(cfg Config, world WorldMap) error
	Pause()
	// States delivers tracking state changes. The channel is read from a
	// single goroutine for the lifetime of the engine.
	States() <-chan State
}

// Snapshotter captures and restores serialized world snapshots.
type Snapshotter interface {
	// Capture may return model.ErrSnapshotUnavailable when too few features
	// are tracked. It should return promptly once ctx is done.
	Capture(ctx context.Context) ([]byte, error)
	Restore(data []byte) (WorldMap, error)
}
