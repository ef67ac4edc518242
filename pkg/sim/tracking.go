package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/tracking"
	"github.com/m-mizutani/goerr/v2"
)

var worldMagic = []byte("simworld/1\n")

// World is the content of a simulated world snapshot.
type World struct {
	Planes   []Plane `json:"planes"`
	Features int     `json:"features"`
}

// Run records the call. A seeded run restores the snapshot's planes and
// reports limited tracking until SetTrackingState is called.
func (s *Scene) Run(cfg tracking.Config, world tracking.WorldMap) error {
	s.mu.Lock()
	rec := RunRecord{Config: cfg}
	if w, ok := world.(*World); ok && w != nil {
		rec.World = w
		s.planes = slices.Clone(w.Planes)
	} else if world != nil {
		s.mu.Unlock()
		return goerr.New("unsupported world map", goerr.V("type", world))
	}
	s.runs = append(s.runs, rec)
	s.mu.Unlock()

	s.emit(tracking.StateLimited)
	return nil
}

func (s *Scene) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses++
}

func (s *Scene) States() <-chan tracking.State {
	return s.states
}

// SetTrackingState reports a tracking state change to the engine.
func (s *Scene) SetTrackingState(state tracking.State) {
	s.emit(state)
}

func (s *Scene) emit(state tracking.State) {
	select {
	case s.states <- state:
	default:
	}
}

func (s *Scene) Runs() []RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.runs)
}

func (s *Scene) Pauses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pauses
}

// Capture serializes the detected planes. It fails with
// model.ErrSnapshotUnavailable when fewer features than required are
// tracked.
func (s *Scene) Capture(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	delay := s.captureDelay
	world := World{Planes: slices.Clone(s.planes), Features: s.features}
	enough := s.features >= s.minFeatures
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, goerr.Wrap(ctx.Err(), "capture interrupted")
		}
	}

	if !enough {
		return nil, goerr.Wrap(model.ErrSnapshotUnavailable, "not enough tracked features",
			goerr.V("features", world.Features))
	}

	data, err := json.Marshal(world)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode world")
	}
	return append(slices.Clone(worldMagic), data...), nil
}

func (s *Scene) Restore(data []byte) (tracking.WorldMap, error) {
	body, ok := bytes.CutPrefix(data, worldMagic)
	if !ok {
		return nil, goerr.New("not a simulated world snapshot")
	}
	var w World
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, goerr.Wrap(err, "failed to decode world snapshot")
	}
	return &w, nil
}
